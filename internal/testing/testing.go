// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/partyq/internal/models"
)

// MockPlayer is a test double for [services.Player].
//
// Each method delegates to the matching func field when set and otherwise
// returns a zero value, so tests only stub what they exercise.
type MockPlayer struct {
	SearchFunc          func(ctx context.Context, query string, limit int) ([]models.Track, error)
	QueueTrackFunc      func(ctx context.Context, uri string) error
	CurrentPlaybackFunc func(ctx context.Context) (*models.PlaybackState, error)
	CurrentQueueFunc    func(ctx context.Context) (*models.QueueSnapshot, error)
	NextFunc            func(ctx context.Context) error
	PauseFunc           func(ctx context.Context) error
	ResumeFunc          func(ctx context.Context) error
}

func (m *MockPlayer) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []models.Track{}, nil
}

func (m *MockPlayer) QueueTrack(ctx context.Context, uri string) error {
	if m.QueueTrackFunc != nil {
		return m.QueueTrackFunc(ctx, uri)
	}
	return nil
}

func (m *MockPlayer) CurrentPlayback(ctx context.Context) (*models.PlaybackState, error) {
	if m.CurrentPlaybackFunc != nil {
		return m.CurrentPlaybackFunc(ctx)
	}
	return &models.PlaybackState{}, nil
}

func (m *MockPlayer) CurrentQueue(ctx context.Context) (*models.QueueSnapshot, error) {
	if m.CurrentQueueFunc != nil {
		return m.CurrentQueueFunc(ctx)
	}
	return &models.QueueSnapshot{Queue: []models.Track{}}, nil
}

func (m *MockPlayer) Next(ctx context.Context) error {
	if m.NextFunc != nil {
		return m.NextFunc(ctx)
	}
	return nil
}

func (m *MockPlayer) Pause(ctx context.Context) error {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx)
	}
	return nil
}

func (m *MockPlayer) Resume(ctx context.Context) error {
	if m.ResumeFunc != nil {
		return m.ResumeFunc(ctx)
	}
	return nil
}

func (m *MockPlayer) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// RoundTripFunc adapts a function to [http.RoundTripper], letting tests
// script upstream responses per request.
type RoundTripFunc func(*http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// MockRoundTripper returns a fixed HTTP response (or error) for every request.
type MockRoundTripper struct {
	Response *http.Response
	Err      error
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.Response, m.Err
}
