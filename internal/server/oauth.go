package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"golang.org/x/oauth2"
)

// FlowPhase is the state of the current authorization attempt.
type FlowPhase int

const (
	PhaseIdle FlowPhase = iota
	PhaseAwaitingCallback
	PhaseCompleted
	PhaseFailed
)

func (p FlowPhase) String() string {
	switch p {
	case PhaseAwaitingCallback:
		return "awaiting_callback"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// spotifyScopes is everything the party queue needs: read playback, mutate
// playback, and read the currently playing track.
var spotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// Flow drives one Spotify authorization attempt at a time.
//
// Exactly one attempt is trusted at a time: beginning a new attempt replaces
// the state value and invalidates any callback from a previous one. A failed
// attempt is terminal; the caller restarts with Begin.
//
// Two redirect strategies exist, chosen once at startup. With a fixed
// redirect URI configured the callback arrives on the main listener (static
// mode). Otherwise a [CallbackServer] is started lazily on the loopback
// address and the redirect URI is built from its OS-assigned port.
type Flow struct {
	mu             sync.Mutex
	oauthCfg       *oauth2.Config
	callback       *CallbackServer
	staticRedirect string
	logger         *log.Logger

	// exchange defaults to TokenStore.ExchangeCode; tests substitute a spy.
	exchange func(ctx context.Context, code, redirectURI string) error

	phase       FlowPhase
	state       string
	redirectURI string
	result      chan error
}

// NewFlow creates a Flow in static mode when staticRedirect is non-empty,
// otherwise in dynamic loopback mode backed by callback.
func NewFlow(clientID, clientSecret, staticRedirect string, tokens *services.TokenStore, callback *CallbackServer, logger *log.Logger) *Flow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Flow{
		oauthCfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  services.AuthURL(),
				TokenURL: services.TokenURL(),
			},
		},
		callback:       callback,
		staticRedirect: staticRedirect,
		logger:         logger,
		exchange:       tokens.ExchangeCode,
		phase:          PhaseIdle,
	}
}

// Begin starts a new authorization attempt and returns the URL the host
// must visit. In dynamic mode the loopback listener is guaranteed to be
// running before the URL referencing its port is issued.
func (f *Flow) Begin() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	redirectURI := f.staticRedirect
	if redirectURI == "" {
		if f.callback == nil {
			return "", fmt.Errorf("%w: no redirect URI configured and no callback server available", shared.ErrInvalidConfig)
		}
		if err := f.callback.Start(f); err != nil {
			return "", err
		}
		redirectURI = f.callback.RedirectURI()
	}

	f.state = shared.GenerateID()
	f.redirectURI = redirectURI
	f.phase = PhaseAwaitingCallback
	f.result = make(chan error, 1)

	cfg := *f.oauthCfg
	cfg.RedirectURL = redirectURI
	authURL := cfg.AuthCodeURL(f.state)

	f.logger.Info("authorization attempt started", "redirect_uri", redirectURI)

	return authURL, nil
}

// Phase returns the state of the current attempt.
func (f *Flow) Phase() FlowPhase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Done returns the channel carrying the current attempt's outcome.
// It receives exactly one value per attempt: nil on success, the terminal
// error otherwise. Returns nil if no attempt was begun.
func (f *Flow) Done() <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// HandleCallback runs the AwaitingCallback transition for the given query
// parameters.
//
// The state parameter is compared before anything else: on mismatch the
// attempt fails without the exchange ever being called (CSRF protection).
// Then an upstream error parameter, then a missing code, each fail with
// their own reason. Only a matching state with a code reaches the token
// exchange, using the same redirect URI the authorization URL was built with.
func (f *Flow) HandleCallback(ctx context.Context, query url.Values) error {
	f.mu.Lock()
	if f.phase != PhaseAwaitingCallback {
		f.mu.Unlock()
		return fmt.Errorf("%w: no authorization attempt in progress", shared.ErrInvalidInput)
	}
	state := f.state
	redirectURI := f.redirectURI
	f.mu.Unlock()

	if query.Get("state") != state {
		return f.fail(shared.ErrStateMismatch)
	}

	if errParam := query.Get("error"); errParam != "" {
		return f.fail(fmt.Errorf("%w: %s", shared.ErrAuthDenied, errParam))
	}

	code := query.Get("code")
	if code == "" {
		return f.fail(shared.ErrNoAuthCode)
	}

	if err := f.exchange(ctx, code, redirectURI); err != nil {
		return f.fail(err)
	}

	result, ok := f.settle(PhaseCompleted)
	if !ok {
		return fmt.Errorf("%w: authorization attempt already settled", shared.ErrInvalidInput)
	}

	result <- nil
	f.logger.Info("authorization completed")

	return nil
}

// fail marks the attempt terminal and delivers err to the waiter.
func (f *Flow) fail(err error) error {
	result, ok := f.settle(PhaseFailed)
	if !ok {
		return err
	}

	result <- err
	f.logger.Warn("authorization failed", "error", err)

	return err
}

// settle transitions the attempt to the given terminal phase. Exactly one
// caller wins per attempt: a concurrent duplicate callback finds the phase
// already terminal and must not touch the result channel, whose single
// buffered slot belongs to the winner.
func (f *Flow) settle(phase FlowPhase) (chan error, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseAwaitingCallback {
		return nil, false
	}
	f.phase = phase
	return f.result, true
}

// Routes implements [Handler] for static mode registration on the main router.
func (f *Flow) Routes() []string {
	return []string{"GET /callback"}
}

// ServeHTTP handles the OAuth redirect request and renders a small page
// telling the host whether to return to the party.
func (f *Flow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f.HandleCallback(r.Context(), r.URL.Query())

	w.Header().Set("Content-Type", "text/html")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, callbackPage, "✗ Authorization Failed", "Restart the login from partyq and try again.")
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, callbackPage, "✓ Authorization Successful", "You can close this window. The party queue is live.")
}

const callbackPage = `
<!DOCTYPE html>
<html>
<head>
    <title>partyq</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`
