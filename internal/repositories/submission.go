package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// SubmissionRepository persists guest track submissions.
//
// A (session, track) pair is unique: the same track can only be pushed to a
// session's queue once, no matter how many guests try.
type SubmissionRepository struct {
	db *sql.DB
}

// NewSubmissionRepository creates a new [SubmissionRepository] with the given database connection
func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission with a generated ID and sequence.
// Returns [shared.ErrDuplicateSubmission] when the track is already queued
// for the session.
func (r *SubmissionRepository) Create(sub *models.Submission) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "submissions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	sub.SetID(shared.GenerateID())
	track := sub.Track()

	query := `
		INSERT INTO submissions (id, sequence, session_id, guest, track_id, track_uri, title, artist, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, sub.ID(), sequence, sub.SessionID(), sub.Guest(),
		track.ID, track.URI, track.Title, track.Artist, sub.CreatedAt(), sub.UpdatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateSubmission, track.Title)
	}
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}

// Get retrieves a submission by ID, excluding soft-deleted rows.
func (r *SubmissionRepository) Get(id string) (*models.Submission, error) {
	rows, err := r.query("id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: submission %s", shared.ErrTrackNotFound, id)
	}
	return rows[0], nil
}

// ListBySession retrieves all live submissions for a session in arrival order.
func (r *SubmissionRepository) ListBySession(sessionID string) ([]*models.Submission, error) {
	return r.query("session_id = ? ORDER BY sequence ASC", sessionID)
}

// CountBySession returns the number of live submissions for a session.
func (r *SubmissionRepository) CountBySession(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM submissions WHERE deleted_at IS NULL AND session_id = ?", sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// Delete soft-deletes a submission.
func (r *SubmissionRepository) Delete(id string) error {
	now := time.Now()
	result, err := r.db.Exec("UPDATE submissions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: submission %s", shared.ErrTrackNotFound, id)
	}

	return nil
}

func (r *SubmissionRepository) query(clause string, args ...any) ([]*models.Submission, error) {
	query := fmt.Sprintf(`
		SELECT id, sequence, session_id, guest, track_id, track_uri, title, artist, created_at, updated_at
		FROM submissions
		WHERE deleted_at IS NULL AND %s
	`, clause)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		var (
			id        string
			sequence  int
			sessionID string
			guest     string
			track     models.Track
			createdAt time.Time
			updatedAt time.Time
		)

		if err := rows.Scan(&id, &sequence, &sessionID, &guest, &track.ID, &track.URI, &track.Title, &track.Artist, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		sub := models.NewSubmission(sequence, sessionID, guest, track)
		sub.SetID(id)
		sub.SetCreatedAt(createdAt)
		sub.SetUpdatedAt(updatedAt)
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return subs, nil
}
