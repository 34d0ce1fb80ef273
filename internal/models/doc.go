// Package models defines domain entities and persistence interfaces for the partyq service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing upstream Spotify data
//   - [Track] : Song metadata returned by search and queue reads
//   - [PlaybackState] : The host device's current playback snapshot
//   - [QueueSnapshot] : The upstream playback queue as Spotify reports it
//
// 2. Persistent Entities: Database-backed records with full lifecycle management
//   - [Session] : A party session guests join via a short code
//   - [Submission] : A track a guest pushed to the shared queue
//   - [Vote] : A guest's vote on a submission
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps,
// validation, and soft delete support. The [Repository] interface defines standard CRUD
// operations for database access.
//
// Host OAuth tokens are deliberately NOT modeled here: they live in process memory only
// and are lost on restart, forcing re-authentication.
package models
