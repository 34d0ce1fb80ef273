package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Host session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionExpired   = fmt.Errorf("session expired")
	ErrTokenExpired     = fmt.Errorf("access token rejected upstream")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Authorization flow errors, one per terminal outcome of an attempt
	ErrStateMismatch  = fmt.Errorf("state parameter mismatch")
	ErrAuthDenied     = fmt.Errorf("authorization denied")
	ErrNoAuthCode     = fmt.Errorf("no authorization code in callback")
	ErrExchangeFailed = fmt.Errorf("authorization code exchange failed")
	ErrCallbackBind   = fmt.Errorf("failed to bind callback listener")

	// Upstream API errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrUpstreamUnavailable = fmt.Errorf("upstream unavailable")
	ErrNoActiveDevice      = fmt.Errorf("no active playback device")
	ErrTrackNotFound       = fmt.Errorf("track not found")
	ErrSessionNotFound     = fmt.Errorf("session not found")
	ErrDuplicateSubmission = fmt.Errorf("track already submitted")
	ErrDuplicateVote       = fmt.Errorf("guest already voted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
