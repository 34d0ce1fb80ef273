// package models defines the data model for the partyq service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the party queue service.
// Implementations include Session, Submission, and Vote.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Track represents a Spotify track as exposed to guests.
type Track struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	DurationMS int    `json:"duration_ms"`
	Explicit   bool   `json:"explicit"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artwork_url,omitempty"`
}

// PlaybackState represents the host device's current playback snapshot.
//
// Track is nil when nothing is playing (Spotify answers 204 in that case).
type PlaybackState struct {
	Playing    bool   `json:"playing"`
	ProgressMS int    `json:"progress_ms"`
	Track      *Track `json:"track,omitempty"`
	Device     string `json:"device,omitempty"`
}

// QueueSnapshot represents the upstream playback queue as Spotify reports it.
type QueueSnapshot struct {
	Current *Track  `json:"current,omitempty"`
	Queue   []Track `json:"queue"`
}

// base carries the shared persistence fields of every entity.
type base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func newBase(sequence int) base {
	now := time.Now()
	return base{sequence: sequence, createdAt: now, updatedAt: now}
}

func (b *base) ID() string                { return b.id }
func (b *base) Sequence() int             { return b.sequence }
func (b *base) CreatedAt() time.Time      { return b.createdAt }
func (b *base) UpdatedAt() time.Time      { return b.updatedAt }
func (b *base) DeletedAt() *time.Time     { return b.deletedAt }
func (b *base) SetID(id string)           { b.id = id }
func (b *base) SetCreatedAt(t time.Time)  { b.createdAt = t }
func (b *base) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *base) SetDeletedAt(t *time.Time) { b.deletedAt = t }
func (b *base) Touch()                    { b.updatedAt = time.Now() }

// Session is a party session guests join via a short code.
type Session struct {
	base
	code string
	name string
}

// NewSession creates a Session with the given sequence, join code, and display name.
func NewSession(sequence int, code, name string) *Session {
	return &Session{base: newBase(sequence), code: code, name: name}
}

func (s *Session) Code() string { return s.code }
func (s *Session) Name() string { return s.name }

func (s *Session) Validate() error {
	if s.code == "" {
		return fmt.Errorf("session code is required")
	}
	if s.name == "" {
		return fmt.Errorf("session name is required")
	}
	return nil
}

// Submission is a track a guest pushed to the shared queue.
type Submission struct {
	base
	sessionID string
	guest     string
	track     Track
}

// NewSubmission creates a Submission for the given session, guest identifier, and track.
func NewSubmission(sequence int, sessionID, guest string, track Track) *Submission {
	return &Submission{base: newBase(sequence), sessionID: sessionID, guest: guest, track: track}
}

func (s *Submission) SessionID() string { return s.sessionID }
func (s *Submission) Guest() string     { return s.guest }
func (s *Submission) Track() Track      { return s.track }

func (s *Submission) Validate() error {
	if s.sessionID == "" {
		return fmt.Errorf("submission session ID is required")
	}
	if s.track.ID == "" || s.track.URI == "" {
		return fmt.Errorf("submission track ID and URI are required")
	}
	return nil
}

// Vote is a guest's vote on a submission.
type Vote struct {
	base
	submissionID string
	guest        string
}

// NewVote creates a Vote from the given guest on the given submission.
func NewVote(submissionID, guest string) *Vote {
	return &Vote{base: newBase(0), submissionID: submissionID, guest: guest}
}

func (v *Vote) SubmissionID() string { return v.submissionID }
func (v *Vote) Guest() string        { return v.guest }

func (v *Vote) Validate() error {
	if v.submissionID == "" {
		return fmt.Errorf("vote submission ID is required")
	}
	if v.guest == "" {
		return fmt.Errorf("vote guest is required")
	}
	return nil
}
