package services

import "time"

const (
	// maxRetries bounds retries per logical call (4 attempts total).
	maxRetries = 3

	// attemptTimeout aborts any single attempt that hasn't answered.
	attemptTimeout = 10 * time.Second
)

// retryAfter decides whether the attempt with the given zero-based index
// should be retried, and after what delay.
//
// An attempt is retried when the transport failed outright (err != nil:
// timeout, connection reset, and the like) or when the status is 429, 408,
// or any 5xx. Every other 4xx is terminal: retrying a client error cannot
// help. The backoff schedule is exponential with no jitter: 1s, 2s, 4s.
func retryAfter(attempt, status int, err error) (time.Duration, bool) {
	if attempt >= maxRetries {
		return 0, false
	}

	retryable := err != nil ||
		status == 429 ||
		status == 408 ||
		status >= 500

	if !retryable {
		return 0, false
	}

	return time.Duration(1<<attempt) * time.Second, true
}
