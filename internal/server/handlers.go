package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
)

// SubmissionStore is the slice of the persistence layer the guest API needs
// for track submissions.
type SubmissionStore interface {
	Create(sub *models.Submission) error
	ListBySession(sessionID string) ([]*models.Submission, error)
	Delete(id string) error
}

// VoteStore records guest votes on submissions.
type VoteStore interface {
	Create(vote *models.Vote) error
	CountBySubmission(submissionID string) (int, error)
}

// API serves the guest-facing JSON endpoints.
//
// Guests search tracks and submit them to the shared queue; the host account
// does the actual playback. All upstream access goes through the [services.Player],
// which owns the token guard, retries, and caches.
type API struct {
	player      services.Player
	tokens      *services.TokenStore
	flow        *Flow
	session     *models.Session
	submissions SubmissionStore
	votes       VoteStore
	searchLimit int
	logger      *log.Logger
}

// APIOpts contains the dependencies for constructing an [API].
type APIOpts struct {
	Player      services.Player
	Tokens      *services.TokenStore
	Flow        *Flow
	Session     *models.Session
	Submissions SubmissionStore
	Votes       VoteStore
	SearchLimit int
	Logger      *log.Logger
}

// NewAPI creates the guest API handler group.
func NewAPI(opts APIOpts) *API {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}

	return &API{
		player:      opts.Player,
		tokens:      opts.Tokens,
		flow:        opts.Flow,
		session:     opts.Session,
		submissions: opts.Submissions,
		votes:       opts.Votes,
		searchLimit: opts.SearchLimit,
		logger:      opts.Logger,
	}
}

// Register attaches all guest API routes to the router.
func (a *API) Register(r *BasicRouter) {
	r.HandleFunc("GET /api/search", a.handleSearch)
	r.HandleFunc("GET /api/queue", a.handleQueueList)
	r.HandleFunc("POST /api/queue", a.handleQueueSubmit)
	r.HandleFunc("POST /api/queue/{id}/vote", a.handleVote)
	r.HandleFunc("GET /api/playback", a.handlePlayback)
	r.HandleFunc("POST /api/playback/next", a.handleNext)
	r.HandleFunc("POST /api/playback/pause", a.handlePause)
	r.HandleFunc("POST /api/playback/play", a.handleResume)
	r.HandleFunc("GET /api/session", a.handleSession)
	r.HandleFunc("POST /api/auth/login", a.handleLogin)
	r.HandleFunc("POST /api/auth/logout", a.handleLogout)
}

// submissionView is a Submission flattened for JSON output with its vote count.
type submissionView struct {
	ID    string       `json:"id"`
	Guest string       `json:"guest"`
	Track models.Track `json:"track"`
	Votes int          `json:"votes"`
}

type queueSubmitRequest struct {
	Guest string       `json:"guest"`
	Track models.Track `json:"track"`
}

type voteRequest struct {
	Guest string `json:"guest"`
}

func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	tracks, err := a.player.Search(r.Context(), query, a.searchLimit)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

func (a *API) handleQueueSubmit(w http.ResponseWriter, r *http.Request) {
	var req queueSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	if req.Track.URI == "" || req.Track.ID == "" {
		a.writeError(w, fmt.Errorf("%w: track id and uri are required", shared.ErrInvalidInput))
		return
	}

	guest := a.guestID(r, req.Guest)
	sub := models.NewSubmission(0, a.session.ID(), guest, req.Track)

	if err := a.submissions.Create(sub); err != nil {
		a.writeError(w, err)
		return
	}

	if err := a.player.QueueTrack(r.Context(), req.Track.URI); err != nil {
		// The row must not outlive the failed upstream call: a surviving
		// submission would answer every retry with a duplicate conflict.
		if derr := a.submissions.Delete(sub.ID()); derr != nil {
			a.logger.Error("failed to discard submission after queue failure", "id", sub.ID(), "error", derr)
		}
		a.writeError(w, err)
		return
	}

	a.logger.Info("track queued", "guest", guest, "track", req.Track.Title)
	a.writeJSON(w, http.StatusCreated, submissionView{
		ID:    sub.ID(),
		Guest: guest,
		Track: req.Track,
	})
}

func (a *API) handleQueueList(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.player.CurrentQueue(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}

	subs, err := a.submissions.ListBySession(a.session.ID())
	if err != nil {
		a.writeError(w, err)
		return
	}

	views := make([]submissionView, 0, len(subs))
	for _, sub := range subs {
		count, err := a.votes.CountBySubmission(sub.ID())
		if err != nil {
			a.writeError(w, err)
			return
		}
		views = append(views, submissionView{
			ID:    sub.ID(),
			Guest: sub.Guest(),
			Track: sub.Track(),
			Votes: count,
		})
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"upstream":    snapshot,
		"submissions": views,
	})
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	submissionID := r.PathValue("id")
	if submissionID == "" {
		a.writeError(w, fmt.Errorf("%w: submission id", shared.ErrMissingArgument))
		return
	}

	var req voteRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	vote := models.NewVote(submissionID, a.guestID(r, req.Guest))
	if err := a.votes.Create(vote); err != nil {
		a.writeError(w, err)
		return
	}

	count, err := a.votes.CountBySubmission(submissionID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, map[string]any{"votes": count})
}

func (a *API) handlePlayback(w http.ResponseWriter, r *http.Request) {
	state, err := a.player.CurrentPlayback(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, state)
}

func (a *API) handleNext(w http.ResponseWriter, r *http.Request) {
	a.playerAction(w, r.Context(), a.player.Next)
}

func (a *API) handlePause(w http.ResponseWriter, r *http.Request) {
	a.playerAction(w, r.Context(), a.player.Pause)
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request) {
	a.playerAction(w, r.Context(), a.player.Resume)
}

func (a *API) handleSession(w http.ResponseWriter, r *http.Request) {
	phase := PhaseIdle
	if a.flow != nil {
		phase = a.flow.Phase()
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"name":          a.session.Name(),
		"code":          a.session.Code(),
		"authenticated": a.tokens.IsUsable(),
		"auth_phase":    phase.String(),
	})
}

// handleLogin begins an authorization attempt and hands the URL back to the
// caller (the CLI, or a host-facing page) to open in a browser.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if a.flow == nil {
		a.writeError(w, fmt.Errorf("%w: authorization flow not configured", shared.ErrInvalidConfig))
		return
	}

	authURL, err := a.flow.Begin()
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"auth_url": authURL})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.tokens.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) playerAction(w http.ResponseWriter, ctx context.Context, action func(context.Context) error) {
	if err := action(ctx); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// guestID resolves the guest identity: an explicit value wins, otherwise the
// client IP stands in.
func (a *API) guestID(r *http.Request, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if header := strings.TrimSpace(r.Header.Get("X-Guest")); header != "" {
		return header
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (a *API) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses for guests.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var apiErr *services.APIError

	switch {
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrTokenExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrNoActiveDevice),
		errors.Is(err, shared.ErrDuplicateSubmission),
		errors.Is(err, shared.ErrDuplicateVote):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrSessionNotFound),
		errors.Is(err, shared.ErrTrackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrUpstreamUnavailable),
		errors.Is(err, shared.ErrCallbackBind):
		status = http.StatusBadGateway
	case errors.As(err, &apiErr):
		status = apiErr.Status
		if status >= 500 {
			status = http.StatusBadGateway
		}
	}

	if status >= 500 {
		a.logger.Error("request failed", "error", err)
	}

	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}
