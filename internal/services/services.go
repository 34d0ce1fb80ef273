// package services defines the Spotify access layer for the party queue
package services

import (
	"context"

	"github.com/desertthunder/partyq/internal/models"
)

// Player defines the playback operations the route handlers and TUI consume.
// [SpotifyClient] is the production implementation; tests substitute doubles.
type Player interface {
	// Search finds tracks matching the query, capped at limit results.
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)

	// QueueTrack appends the track with the given URI to the host's playback queue.
	QueueTrack(ctx context.Context, uri string) error

	// CurrentPlayback returns the host device's playback state.
	CurrentPlayback(ctx context.Context) (*models.PlaybackState, error)

	// CurrentQueue returns the upstream playback queue.
	CurrentQueue(ctx context.Context) (*models.QueueSnapshot, error)

	// Next skips to the next track on the host device.
	Next(ctx context.Context) error

	// Pause pauses playback on the host device.
	Pause(ctx context.Context) error

	// Resume resumes playback on the host device.
	Resume(ctx context.Context) error

	// Name returns the name of the upstream provider (e.g., "Spotify")
	Name() string
}

var _ Player = (*SpotifyClient)(nil)
