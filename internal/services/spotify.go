// Spotify API implementation of [Player]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// AuthURL returns the Spotify authorization endpoint.
func AuthURL() string { return spotifyAuthURL }

// TokenURL returns the Spotify token endpoint.
func TokenURL() string { return spotifyTokenURL }

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyPlayback struct {
	IsPlaying  bool          `json:"is_playing"`
	ProgressMS int           `json:"progress_ms"`
	Item       *spotifyTrack `json:"item"`
	Device     struct {
		Name string `json:"name"`
	} `json:"device"`
}

type spotifyQueue struct {
	CurrentlyPlaying *spotifyTrack  `json:"currently_playing"`
	Queue            []spotifyTrack `json:"queue"`
}

// APIResponse is a fully drained upstream HTTP response.
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// APIError is a non-retryable upstream failure carrying the parsed error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

// SpotifyClient is the single entry point for all calls to the Spotify Web
// API. It owns the retry/backoff/timeout policy and error normalization; the
// bearer token is read from the [TokenStore] at call time, never cached.
type SpotifyClient struct {
	baseURL    string
	tokens     *TokenStore
	httpClient *http.Client
	logger     *log.Logger
	timeout    time.Duration

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(context.Context, time.Duration) error

	playbackCache *ReadThrough[*models.PlaybackState]
	queueCache    *ReadThrough[*models.QueueSnapshot]
}

// NewSpotifyClient creates a Spotify client backed by the given token store.
func NewSpotifyClient(tokens *TokenStore, client *http.Client, logger *log.Logger) *SpotifyClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		baseURL:       spotifyBaseURL,
		tokens:        tokens,
		httpClient:    client,
		logger:        logger,
		timeout:       attemptTimeout,
		sleep:         sleepContext,
		playbackCache: NewReadThrough[*models.PlaybackState](DefaultCacheTTL),
		queueCache:    NewReadThrough[*models.QueueSnapshot](DefaultCacheTTL),
	}
}

func (s *SpotifyClient) Name() string { return "Spotify" }

// Tokens returns the token store backing this client.
func (s *SpotifyClient) Tokens() *TokenStore { return s.tokens }

// SetCacheTTL rebuilds the playback and queue caches with the given TTL.
// Call before serving requests; entries in the old caches are discarded.
func (s *SpotifyClient) SetCacheTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s.playbackCache = NewReadThrough[*models.PlaybackState](ttl)
	s.queueCache = NewReadThrough[*models.QueueSnapshot](ttl)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call makes one logical request to the Spotify API with bounded retries.
//
// Relative endpoints are resolved against the API base URL. Each attempt
// carries its own timeout; cancelling one attempt does not cancel the logical
// call, which proceeds to the next attempt. The first response that is either
// terminal or final is returned as-is, success or failure: interpreting status
// codes semantically is the caller's job. Only when every attempt failed at
// the transport level does Call return an error instead of a response.
func (s *SpotifyClient) Call(ctx context.Context, method, endpoint string, body []byte, header http.Header) (*APIResponse, error) {
	endpointURL := endpoint
	if strings.HasPrefix(endpoint, "/") {
		endpointURL = s.baseURL + endpoint
	}

	for attempt := 0; ; attempt++ {
		resp, err := s.attempt(ctx, method, endpointURL, body, header, attempt)
		if err != nil {
			delay, retry := retryAfter(attempt, 0, err)
			if !retry {
				return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrUpstreamUnavailable, method, endpoint, err)
			}
			s.logger.Warn("spotify request failed, retrying", "method", method, "endpoint", endpoint, "attempt", attempt, "error", err)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		delay, retry := retryAfter(attempt, resp.StatusCode, nil)
		if !retry {
			return resp, nil
		}

		s.logger.Warn("spotify returned retryable status", "method", method, "endpoint", endpoint, "attempt", attempt, "status", resp.StatusCode)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs a single HTTP exchange with its own timeout and a freshly
// injected bearer token.
func (s *SpotifyClient) attempt(ctx context.Context, method, endpointURL string, body []byte, header http.Header, attempt int) (*APIResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, endpointURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.tokens.AccessToken())
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	s.logger.Debug("spotify request", "method", method, "url", endpointURL, "attempt", attempt)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// parseErrorBody extracts a human-readable message from an upstream error
// payload. Spotify is not guaranteed to answer JSON on every error path
// (gateway errors come back as plain text or HTML), so the parse falls back
// to the raw trimmed body, then to the supplied default.
func parseErrorBody(body []byte, fallback string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}

	return trimmed
}

// do runs the token guard, makes the call, and decodes a 2xx JSON body into out.
func (s *SpotifyClient) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	if err := s.tokens.Ensure(ctx); err != nil {
		return err
	}

	resp, err := s.Call(ctx, method, endpoint, body, nil)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && resp.StatusCode != http.StatusNoContent && len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, parseErrorBody(resp.Body, "token rejected"))
	}

	return &APIError{
		Status:  resp.StatusCode,
		Message: parseErrorBody(resp.Body, fmt.Sprintf("status %d", resp.StatusCode)),
	}
}

// doPlayer is do for playback-mutating endpoints, where Spotify answers 404
// when the host has no active device. That is a domain condition, not a
// transport failure.
func (s *SpotifyClient) doPlayer(ctx context.Context, method, endpoint string) error {
	err := s.do(ctx, method, endpoint, nil, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return shared.ErrNoActiveDevice
	}

	return err
}

// Search finds tracks matching the query.
func (s *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?type=track&q=%s&limit=%d", url.QueryEscape(query), limit)

	var response spotifySearchResponse
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toTrack(item))
	}

	return tracks, nil
}

// QueueTrack appends the track with the given URI to the host's playback queue.
func (s *SpotifyClient) QueueTrack(ctx context.Context, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: empty track URI", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("/me/player/queue?uri=%s", url.QueryEscape(uri))
	return s.doPlayer(ctx, http.MethodPost, endpoint)
}

// CurrentPlayback returns the host device's playback state, served from a
// 15 second read-through cache to absorb guest polling.
func (s *SpotifyClient) CurrentPlayback(ctx context.Context) (*models.PlaybackState, error) {
	return s.playbackCache.GetOrFetch(ctx, s.fetchPlayback)
}

// CurrentQueue returns the upstream playback queue, cached like CurrentPlayback.
func (s *SpotifyClient) CurrentQueue(ctx context.Context) (*models.QueueSnapshot, error) {
	return s.queueCache.GetOrFetch(ctx, s.fetchQueue)
}

// fetchPlayback reads /me/player directly. Spotify answers 204 with an empty
// body when nothing is playing.
func (s *SpotifyClient) fetchPlayback(ctx context.Context) (*models.PlaybackState, error) {
	var payload spotifyPlayback
	if err := s.do(ctx, http.MethodGet, "/me/player", nil, &payload); err != nil {
		return nil, err
	}

	state := &models.PlaybackState{
		Playing:    payload.IsPlaying,
		ProgressMS: payload.ProgressMS,
		Device:     payload.Device.Name,
	}
	if payload.Item != nil {
		track := toTrack(*payload.Item)
		state.Track = &track
	}

	return state, nil
}

func (s *SpotifyClient) fetchQueue(ctx context.Context) (*models.QueueSnapshot, error) {
	var payload spotifyQueue
	if err := s.do(ctx, http.MethodGet, "/me/player/queue", nil, &payload); err != nil {
		return nil, err
	}

	snapshot := &models.QueueSnapshot{Queue: make([]models.Track, 0, len(payload.Queue))}
	if payload.CurrentlyPlaying != nil {
		track := toTrack(*payload.CurrentlyPlaying)
		snapshot.Current = &track
	}
	for _, item := range payload.Queue {
		snapshot.Queue = append(snapshot.Queue, toTrack(item))
	}

	return snapshot, nil
}

// Next skips to the next track on the host device.
func (s *SpotifyClient) Next(ctx context.Context) error {
	return s.doPlayer(ctx, http.MethodPost, "/me/player/next")
}

// Pause pauses playback on the host device.
func (s *SpotifyClient) Pause(ctx context.Context) error {
	return s.doPlayer(ctx, http.MethodPut, "/me/player/pause")
}

// Resume resumes playback on the host device.
func (s *SpotifyClient) Resume(ctx context.Context) error {
	return s.doPlayer(ctx, http.MethodPut, "/me/player/play")
}

// toTrack maps a Spotify track payload to the neutral model.
func toTrack(st spotifyTrack) models.Track {
	track := models.Track{
		ID:         st.ID,
		Title:      st.Name,
		Album:      st.Album.Name,
		DurationMS: st.DurationMS,
		Explicit:   st.Explicit,
		URI:        st.URI,
	}

	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	if len(st.Album.Images) > 0 {
		track.ArtworkURL = st.Album.Images[0].URL
	}

	return track
}
