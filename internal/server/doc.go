// Package server provides HTTP routing, middleware, the guest JSON API, and
// the host OAuth flow for the party queue service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # OAuth Flow
//
// [Flow] drives one authorization attempt at a time through
// Idle → AwaitingCallback → Completed|Failed. The callback transition
// validates the state parameter before anything else (CSRF protection),
// carries upstream denial codes through, and only then exchanges the
// authorization code for tokens.
//
// Two redirect strategies are selected once at startup:
//
//   - Static mode: a pre-registered redirect URI is configured and the
//     callback arrives on the main listener.
//   - Dynamic loopback mode: a [CallbackServer] binds 127.0.0.1:0 and the
//     redirect URI is built from the OS-assigned port. The loopback IP
//     literal is required by the authorization server's redirect policy
//     (RFC 8252); "localhost" and wildcard addresses are not accepted.
//
// # Guest API
//
// [API] serves the guest-facing JSON endpoints: track search, queue
// submission, votes, playback state, and host playback controls. Guests are
// unauthenticated; the one host account authorizes through [Flow] and all
// playback happens on its device.
package server
