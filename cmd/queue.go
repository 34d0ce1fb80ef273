package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/desertthunder/partyq/internal/formatter"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

type searchResult struct {
	Tracks []models.Track `json:"tracks"`
}

type queueResult struct {
	Upstream    *models.QueueSnapshot `json:"upstream"`
	Submissions []struct {
		ID    string       `json:"id"`
		Guest string       `json:"guest"`
		Track models.Track `json:"track"`
		Votes int          `json:"votes"`
	} `json:"submissions"`
}

// Search queries the catalog through the running server.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	resp, err := r.api.Get(ctx, "/api/search?q="+url.QueryEscape(query))
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	var result searchResult
	if err := resp.Decode(&result); err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Results for %q", query))
	for i, track := range result.Tracks {
		r.writePlain("%2d. %s — %s (%s)\n", i+1, track.Title, track.Artist, track.ID)
	}
	if len(result.Tracks) == 0 {
		r.writePlain("No tracks found\n")
	}

	return nil
}

// QueueList shows guest submissions with vote counts, then the upstream queue.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Get(ctx, "/api/queue")
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	var result queueResult
	if err := resp.Decode(&result); err != nil {
		return err
	}

	if format := cmd.String("format"); format != "" {
		return r.exportQueue(ctx, &result, format, cmd.String("output"))
	}

	r.writePlainHeader("Party queue")
	if len(result.Submissions) == 0 {
		r.writePlain("No guest submissions yet\n")
	}
	for i, sub := range result.Submissions {
		r.writePlain("%2d. %s — %s (by %s, %d votes)\n", i+1, sub.Track.Title, sub.Track.Artist, sub.Guest, sub.Votes)
	}

	if result.Upstream != nil && len(result.Upstream.Queue) > 0 {
		r.writePlainln("Up next on Spotify:")
		for i, track := range result.Upstream.Queue {
			r.writePlain("%2d. %s — %s\n", i+1, track.Title, track.Artist)
		}
	}

	return nil
}

// exportQueue writes the current queue to a file via [formatter.WriteExport].
//
// Guest submissions come first, then the upstream Spotify queue.
func (r *Runner) exportQueue(ctx context.Context, result *queueResult, format, output string) error {
	export := &formatter.QueueExport{SessionName: "Party queue"}
	if session, err := r.fetchSession(ctx); err == nil {
		export.SessionName = session.Name
		export.SessionCode = session.Code
	}

	for _, sub := range result.Submissions {
		export.Entries = append(export.Entries, formatter.Entry{
			Guest: sub.Guest,
			Votes: sub.Votes,
			Track: sub.Track,
		})
	}
	if result.Upstream != nil {
		for _, track := range result.Upstream.Queue {
			export.Entries = append(export.Entries, formatter.Entry{Track: track})
		}
	}

	path, err := formatter.WriteExport(export, format, output)
	if err != nil {
		return err
	}

	r.logger.Info("queue exported", "format", format, "path", path)
	return r.writePlain("✓ Exported queue to %s\n", path)
}

// QueueAdd searches for a track and submits the top match to the queue.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	resp, err := r.api.Get(ctx, "/api/search?q="+url.QueryEscape(query))
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	var result searchResult
	if err := resp.Decode(&result); err != nil {
		return err
	}
	if len(result.Tracks) == 0 {
		return fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}

	track := result.Tracks[0]
	body, err := json.Marshal(map[string]any{
		"guest": cmd.String("guest"),
		"track": track,
	})
	if err != nil {
		return err
	}

	resp, err = r.api.Post(ctx, "/api/queue", body)
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 201 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	r.logger.Info("track queued", "track", track.Title)
	return r.writePlain("✓ Queued: %s — %s\n", track.Title, track.Artist)
}
