// Package repositories implements SQLite-backed persistence for party
// sessions, guest submissions, and votes.
//
// Uniqueness constraints carry domain meaning here: a track can only be
// submitted once per session and a guest can only vote once per submission.
// Violations surface as [shared.ErrDuplicateSubmission] and
// [shared.ErrDuplicateVote] so the HTTP layer can answer 409 instead of 500.
//
// Host OAuth tokens are never stored. Only queue/session/vote records
// survive a restart; the host re-authenticates every time the process comes
// up.
package repositories
