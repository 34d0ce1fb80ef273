package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/partyq/internal/shared"
)

// RefreshBuffer is how long before expiry a token is refreshed.
//
// The buffer exists so a request is never let through on a token that might
// expire mid-flight.
const RefreshBuffer = 5 * time.Minute

// TokenStore is the single source of truth for whether the host session can
// call the Spotify API right now.
//
// It holds exactly one access/refresh token pair for the process lifetime.
// Tokens are never persisted: a restart forces the host to reconnect.
type TokenStore struct {
	mu           sync.Mutex
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	accessToken  string
	refreshToken string
	expiresAt    time.Time

	now func() time.Time
}

// tokenResponse is the Spotify token endpoint payload for both the
// authorization-code and refresh-token grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// NewTokenStore creates a TokenStore authenticating against the given token endpoint.
func NewTokenStore(clientID, clientSecret, tokenURL string, client *http.Client) *TokenStore {
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &TokenStore{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   client,
		now:          time.Now,
	}
}

// IsUsable reports whether an access token is present and strictly unexpired. No side effects.
func (t *TokenStore) IsUsable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken != "" && t.now().Before(t.expiresAt)
}

// NeedsRefresh reports whether the token is expiring within buffer.
func (t *TokenStore) NeedsRefresh(buffer time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken != "" && !t.now().Before(t.expiresAt.Add(-buffer))
}

// AccessToken returns the current bearer token, or empty if none is held.
func (t *TokenStore) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken
}

// Clear drops the access token, refresh token, and expiry together.
//
// Partial clearing is never allowed: a stale access token must not survive
// without a way to refresh it.
func (t *TokenStore) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = ""
	t.refreshToken = ""
	t.expiresAt = time.Time{}
}

// ExchangeCode performs the authorization-code grant and populates the store on success.
//
// redirectURI must be byte-identical to the one used to build the authorization
// URL; Spotify validates an exact match.
func (t *TokenStore) ExchangeCode(ctx context.Context, code, redirectURI string) error {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	resp, err := t.postToken(ctx, form)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = resp.AccessToken
	t.refreshToken = resp.RefreshToken
	t.expiresAt = t.now().Add(time.Duration(resp.ExpiresIn) * time.Second)

	return nil
}

// Refresh performs the refresh-token grant.
//
// Fails immediately without contacting Spotify when no refresh token is held.
// On success the access token and expiry are replaced atomically; the refresh
// token is replaced only when the response supplies a new one (Spotify may
// omit it, meaning "keep using the old one"). On failure the store is left
// untouched; the caller decides whether to Clear it.
func (t *TokenStore) Refresh(ctx context.Context) error {
	t.mu.Lock()
	refreshToken := t.refreshToken
	t.mu.Unlock()

	if refreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	resp, err := t.postToken(ctx, form)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = resp.AccessToken
	t.expiresAt = t.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	if resp.RefreshToken != "" {
		t.refreshToken = resp.RefreshToken
	}

	return nil
}

// Ensure implements the guard sequence every upstream call goes through:
// reject when no usable token is held, refresh when the token is expiring
// soon, and clear the store when that refresh fails so a dead refresh token
// can't be retried forever.
func (t *TokenStore) Ensure(ctx context.Context) error {
	if !t.IsUsable() {
		return shared.ErrNotAuthenticated
	}

	if t.NeedsRefresh(RefreshBuffer) {
		if err := t.Refresh(ctx); err != nil {
			t.Clear()
			return fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
		}
	}

	return nil
}

// postToken sends a form-encoded grant request to the token endpoint with
// HTTP Basic client credentials, as the Spotify token contract requires.
func (t *TokenStore) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, parseErrorBody(body, "no error detail"))
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &payload, nil
}
