package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaybackNow shows the current playback state.
func (r *Runner) PlaybackNow(ctx context.Context, cmd *cli.Command) error {
	resp, err := r.api.Get(ctx, "/api/playback")
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp.JSONData, true)
	}

	var state models.PlaybackState
	if err := resp.Decode(&state); err != nil {
		return err
	}

	if state.Track == nil {
		return r.writePlain("Nothing playing\n")
	}

	verb := "▶ Playing"
	if !state.Playing {
		verb = "⏸ Paused"
	}

	r.writePlain("%s: %s — %s\n", verb, state.Track.Title, state.Track.Artist)
	if state.Device != "" {
		r.writePlain("Device: %s\n", state.Device)
	}
	r.writePlain("Progress: %s / %s\n", shared.FormatDuration(state.ProgressMS), shared.FormatDuration(state.Track.DurationMS))

	return nil
}

// PlaybackNext skips to the next track.
func (r *Runner) PlaybackNext(ctx context.Context, cmd *cli.Command) error {
	return r.playbackControl(ctx, "/api/playback/next", "✓ Skipped to next track")
}

// PlaybackPause pauses playback.
func (r *Runner) PlaybackPause(ctx context.Context, cmd *cli.Command) error {
	return r.playbackControl(ctx, "/api/playback/pause", "✓ Paused")
}

// PlaybackPlay resumes playback.
func (r *Runner) PlaybackPlay(ctx context.Context, cmd *cli.Command) error {
	return r.playbackControl(ctx, "/api/playback/play", "✓ Playing")
}

func (r *Runner) playbackControl(ctx context.Context, path, message string) error {
	resp, err := r.api.Post(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("%w: is the server running? (%v)", shared.ErrServiceUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	return r.writePlain("%s\n", message)
}
