package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	tu "github.com/desertthunder/partyq/internal/testing"
)

// memSubmissions is an in-memory SubmissionStore.
type memSubmissions struct {
	subs    []*models.Submission
	failErr error
}

func (m *memSubmissions) Create(sub *models.Submission) error {
	if m.failErr != nil {
		return m.failErr
	}
	for _, existing := range m.subs {
		if existing.SessionID() == sub.SessionID() && existing.Track().ID == sub.Track().ID {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateSubmission, sub.Track().ID)
		}
	}
	sub.SetID(shared.GenerateID())
	m.subs = append(m.subs, sub)
	return nil
}

func (m *memSubmissions) Delete(id string) error {
	for i, sub := range m.subs {
		if sub.ID() == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: submission %s", shared.ErrTrackNotFound, id)
}

func (m *memSubmissions) ListBySession(sessionID string) ([]*models.Submission, error) {
	out := []*models.Submission{}
	for _, sub := range m.subs {
		if sub.SessionID() == sessionID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// memVotes is an in-memory VoteStore.
type memVotes struct {
	votes map[string]map[string]bool
}

func newMemVotes() *memVotes {
	return &memVotes{votes: map[string]map[string]bool{}}
}

func (m *memVotes) Create(vote *models.Vote) error {
	guests, ok := m.votes[vote.SubmissionID()]
	if !ok {
		guests = map[string]bool{}
		m.votes[vote.SubmissionID()] = guests
	}
	if guests[vote.Guest()] {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateVote, vote.Guest())
	}
	guests[vote.Guest()] = true
	return nil
}

func (m *memVotes) CountBySubmission(submissionID string) (int, error) {
	return len(m.votes[submissionID]), nil
}

type apiFixture struct {
	api         *API
	router      *BasicRouter
	player      *tu.MockPlayer
	tokens      *services.TokenStore
	session     *models.Session
	submissions *memSubmissions
	votes       *memVotes
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	session := models.NewSession(1, "ABC123", "Test Party")
	session.SetID(shared.GenerateID())

	f := &apiFixture{
		player:      &tu.MockPlayer{},
		tokens:      services.NewTokenStore("client_id", "client_secret", "", nil),
		session:     session,
		submissions: &memSubmissions{},
		votes:       newMemVotes(),
	}

	f.api = NewAPI(APIOpts{
		Player:      f.player,
		Tokens:      f.tokens,
		Session:     f.session,
		Submissions: f.submissions,
		Votes:       f.votes,
		SearchLimit: 10,
	})
	f.router = NewBasicRouter()
	f.api.Register(f.router)

	return f
}

func (f *apiFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.RemoteAddr = "192.168.1.42:51234"

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAPI(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		t.Run("returns matching tracks", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.SearchFunc = func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				if query != "daft punk" {
					t.Errorf("expected query to be forwarded, got %q", query)
				}
				if limit != 10 {
					t.Errorf("expected configured limit, got %d", limit)
				}
				return []models.Track{{ID: "t1", Title: "One More Time", URI: "spotify:track:t1"}}, nil
			}

			rec := f.do(http.MethodGet, "/api/search?q=daft+punk", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
			}

			var payload struct {
				Tracks []models.Track `json:"tracks"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if len(payload.Tracks) != 1 || payload.Tracks[0].Title != "One More Time" {
				t.Errorf("unexpected payload: %+v", payload)
			}
		})

		t.Run("maps an unauthenticated host to 401", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.SearchFunc = func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return nil, shared.ErrNotAuthenticated
			}

			rec := f.do(http.MethodGet, "/api/search?q=anything", "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})

		t.Run("maps upstream unavailability to 502", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.SearchFunc = func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return nil, shared.ErrUpstreamUnavailable
			}

			rec := f.do(http.MethodGet, "/api/search?q=anything", "")
			if rec.Code != http.StatusBadGateway {
				t.Errorf("expected 502, got %d", rec.Code)
			}
		})
	})

	t.Run("queue submit", func(t *testing.T) {
		t.Run("stores the submission and queues upstream", func(t *testing.T) {
			f := newAPIFixture(t)
			var queuedURI string
			f.player.QueueTrackFunc = func(ctx context.Context, uri string) error {
				queuedURI = uri
				return nil
			}

			rec := f.do(http.MethodPost, "/api/queue",
				`{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
			}

			if queuedURI != "spotify:track:t1" {
				t.Errorf("expected upstream queue call, got %q", queuedURI)
			}
			if len(f.submissions.subs) != 1 {
				t.Fatalf("expected one stored submission, got %d", len(f.submissions.subs))
			}
			if f.submissions.subs[0].Guest() != "sam" {
				t.Errorf("expected guest attribution, got %q", f.submissions.subs[0].Guest())
			}
		})

		t.Run("rejects a track without id and uri", func(t *testing.T) {
			f := newAPIFixture(t)

			rec := f.do(http.MethodPost, "/api/queue", `{"guest":"sam","track":{"title":"Song"}}`)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})

		t.Run("rejects malformed JSON", func(t *testing.T) {
			f := newAPIFixture(t)

			rec := f.do(http.MethodPost, "/api/queue", `{not json`)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})

		t.Run("maps a duplicate submission to 409", func(t *testing.T) {
			f := newAPIFixture(t)

			body := `{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`
			if rec := f.do(http.MethodPost, "/api/queue", body); rec.Code != http.StatusCreated {
				t.Fatalf("first submit: expected 201, got %d", rec.Code)
			}

			rec := f.do(http.MethodPost, "/api/queue", body)
			if rec.Code != http.StatusConflict {
				t.Errorf("expected 409 on duplicate, got %d", rec.Code)
			}
		})

		t.Run("maps no active device to 409", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.QueueTrackFunc = func(ctx context.Context, uri string) error {
				return shared.ErrNoActiveDevice
			}

			rec := f.do(http.MethodPost, "/api/queue",
				`{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`)
			if rec.Code != http.StatusConflict {
				t.Errorf("expected 409, got %d", rec.Code)
			}
		})

		t.Run("a failed upstream call does not block the retry", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.QueueTrackFunc = func(ctx context.Context, uri string) error {
				return shared.ErrNoActiveDevice
			}

			body := `{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`
			if rec := f.do(http.MethodPost, "/api/queue", body); rec.Code != http.StatusConflict {
				t.Fatalf("first submit: expected 409, got %d", rec.Code)
			}
			if len(f.submissions.subs) != 0 {
				t.Fatalf("expected the failed submission to be discarded, found %d", len(f.submissions.subs))
			}

			f.player.QueueTrackFunc = func(ctx context.Context, uri string) error { return nil }

			rec := f.do(http.MethodPost, "/api/queue", body)
			if rec.Code != http.StatusCreated {
				t.Fatalf("retry after starting a device: expected 201, got %d: %s", rec.Code, rec.Body)
			}
			if len(f.submissions.subs) != 1 {
				t.Errorf("expected the retried submission to be stored, found %d", len(f.submissions.subs))
			}
		})

		t.Run("falls back to the client IP for anonymous guests", func(t *testing.T) {
			f := newAPIFixture(t)

			rec := f.do(http.MethodPost, "/api/queue",
				`{"track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", rec.Code)
			}
			if f.submissions.subs[0].Guest() != "192.168.1.42" {
				t.Errorf("expected client IP as guest, got %q", f.submissions.subs[0].Guest())
			}
		})
	})

	t.Run("queue list", func(t *testing.T) {
		f := newAPIFixture(t)
		f.player.CurrentQueueFunc = func(ctx context.Context) (*models.QueueSnapshot, error) {
			return &models.QueueSnapshot{Queue: []models.Track{{ID: "up1", Title: "Upstream Song"}}}, nil
		}

		if rec := f.do(http.MethodPost, "/api/queue",
			`{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`); rec.Code != http.StatusCreated {
			t.Fatalf("submit: expected 201, got %d", rec.Code)
		}

		subID := f.submissions.subs[0].ID()
		if rec := f.do(http.MethodPost, "/api/queue/"+subID+"/vote", `{"guest":"alex"}`); rec.Code != http.StatusCreated {
			t.Fatalf("vote: expected 201, got %d", rec.Code)
		}

		rec := f.do(http.MethodGet, "/api/queue", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var payload struct {
			Upstream    *models.QueueSnapshot `json:"upstream"`
			Submissions []struct {
				ID    string       `json:"id"`
				Guest string       `json:"guest"`
				Track models.Track `json:"track"`
				Votes int          `json:"votes"`
			} `json:"submissions"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		if payload.Upstream == nil || len(payload.Upstream.Queue) != 1 {
			t.Error("expected the upstream queue in the response")
		}
		if len(payload.Submissions) != 1 {
			t.Fatalf("expected one submission, got %d", len(payload.Submissions))
		}
		if payload.Submissions[0].Votes != 1 {
			t.Errorf("expected one vote, got %d", payload.Submissions[0].Votes)
		}
	})

	t.Run("vote", func(t *testing.T) {
		t.Run("counts one vote per guest", func(t *testing.T) {
			f := newAPIFixture(t)
			if rec := f.do(http.MethodPost, "/api/queue",
				`{"guest":"sam","track":{"id":"t1","title":"Song","uri":"spotify:track:t1"}}`); rec.Code != http.StatusCreated {
				t.Fatalf("submit: expected 201, got %d", rec.Code)
			}
			subID := f.submissions.subs[0].ID()

			rec := f.do(http.MethodPost, "/api/queue/"+subID+"/vote", `{"guest":"alex"}`)
			if rec.Code != http.StatusCreated {
				t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
			}

			var payload struct {
				Votes int `json:"votes"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if payload.Votes != 1 {
				t.Errorf("expected one vote, got %d", payload.Votes)
			}

			rec = f.do(http.MethodPost, "/api/queue/"+subID+"/vote", `{"guest":"alex"}`)
			if rec.Code != http.StatusConflict {
				t.Errorf("expected 409 on duplicate vote, got %d", rec.Code)
			}
		})
	})

	t.Run("playback", func(t *testing.T) {
		t.Run("returns the playback state", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.CurrentPlaybackFunc = func(ctx context.Context) (*models.PlaybackState, error) {
				return &models.PlaybackState{Playing: true, Track: &models.Track{Title: "Song"}}, nil
			}

			rec := f.do(http.MethodGet, "/api/playback", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var state models.PlaybackState
			if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if !state.Playing || state.Track == nil {
				t.Errorf("unexpected state: %+v", state)
			}
		})

		t.Run("controls answer 204", func(t *testing.T) {
			f := newAPIFixture(t)

			for _, path := range []string{"/api/playback/next", "/api/playback/pause", "/api/playback/play"} {
				rec := f.do(http.MethodPost, path, "")
				if rec.Code != http.StatusNoContent {
					t.Errorf("%s: expected 204, got %d", path, rec.Code)
				}
			}
		})

		t.Run("skip without a device answers 409", func(t *testing.T) {
			f := newAPIFixture(t)
			f.player.NextFunc = func(ctx context.Context) error {
				return shared.ErrNoActiveDevice
			}

			rec := f.do(http.MethodPost, "/api/playback/next", "")
			if rec.Code != http.StatusConflict {
				t.Errorf("expected 409, got %d", rec.Code)
			}
		})
	})

	t.Run("session", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(http.MethodGet, "/api/session", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var payload struct {
			Name          string `json:"name"`
			Code          string `json:"code"`
			Authenticated bool   `json:"authenticated"`
			AuthPhase     string `json:"auth_phase"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}

		if payload.Name != "Test Party" || payload.Code != "ABC123" {
			t.Errorf("unexpected session payload: %+v", payload)
		}
		if payload.Authenticated {
			t.Error("expected unauthenticated host")
		}
		if payload.AuthPhase != "idle" {
			t.Errorf("expected idle phase, got %q", payload.AuthPhase)
		}
	})

	t.Run("auth", func(t *testing.T) {
		t.Run("login returns the authorization URL", func(t *testing.T) {
			f := newAPIFixture(t)
			flow := NewFlow("client_id", "client_secret", "http://192.168.1.10:8888/callback", f.tokens, nil, nil)
			f.api.flow = flow

			rec := f.do(http.MethodPost, "/api/auth/login", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
			}

			var payload struct {
				AuthURL string `json:"auth_url"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if !strings.Contains(payload.AuthURL, "accounts.spotify.com") {
				t.Errorf("expected a Spotify authorize URL, got %q", payload.AuthURL)
			}
		})

		t.Run("logout clears tokens and answers 204", func(t *testing.T) {
			f := newAPIFixture(t)

			rec := f.do(http.MethodPost, "/api/auth/logout", "")
			if rec.Code != http.StatusNoContent {
				t.Errorf("expected 204, got %d", rec.Code)
			}
			if f.tokens.IsUsable() {
				t.Error("expected tokens to be cleared")
			}
		})
	})
}
