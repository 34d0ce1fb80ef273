// Package services implements the Spotify access layer: token lifecycle,
// the resilient upstream client, and the read-through caches in front of the
// two polled endpoints.
//
// # Token Lifecycle
//
// [TokenStore] holds the single host token pair for the process lifetime.
// Route handlers never talk to the token endpoint directly: every upstream
// call goes through the guard sequence in [TokenStore.Ensure], which rejects
// unauthenticated callers, refreshes tokens expiring within [RefreshBuffer],
// and clears the store when a refresh fails so a dead refresh token is not
// retried forever.
//
// Tokens are process memory only. Restarting partyq forces the host to
// reconnect, which is acceptable for a single-host party app.
//
// # Upstream Client
//
// [SpotifyClient] makes one logical call with up to four attempts. Retries
// apply to 429, 408, 5xx, and transport failures; other 4xx statuses are
// terminal. The schedule is a fixed 1s/2s/4s exponential backoff, deliberately
// not adaptive to Retry-After hints. The policy itself lives in retryAfter so
// it can be unit-tested without a network.
//
// Two domain conditions are normalized rather than surfaced as transport
// errors: 401 maps to [shared.ErrTokenExpired] and 404 on playback-mutating
// calls maps to [shared.ErrNoActiveDevice] ("start playback on a device
// first").
//
// # Read-Through Caches
//
// Guests poll playback state and the upstream queue aggressively. Both reads
// sit behind a [ReadThrough] cache (jellydator/ttlcache) with a 15 second TTL
// so a roomful of phones produces at most one upstream fetch per window.
//
// # Local API Client
//
// [APIService] is the CLI/TUI-side client for a running partyq server. Host
// state lives in the server process, so sibling processes reach it over the
// guest API instead of sharing memory.
package services
