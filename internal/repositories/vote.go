package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// VoteRepository persists guest votes on submissions.
//
// A (submission, guest) pair is unique: one vote per guest per track.
type VoteRepository struct {
	db *sql.DB
}

// NewVoteRepository creates a new [VoteRepository] with the given database connection
func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Create inserts a vote with a generated ID.
// Returns [shared.ErrDuplicateVote] when the guest already voted on the submission.
func (r *VoteRepository) Create(vote *models.Vote) error {
	if err := vote.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	vote.SetID(shared.GenerateID())

	query := `
		INSERT INTO votes (id, submission_id, guest, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, vote.ID(), vote.SubmissionID(), vote.Guest(), vote.CreatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: submission %s", shared.ErrDuplicateVote, vote.SubmissionID())
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	return nil
}

// CountBySubmission returns the number of votes on a submission.
func (r *VoteRepository) CountBySubmission(submissionID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM votes WHERE submission_id = ?", submissionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// CountsBySession returns vote counts keyed by submission ID for a whole session.
func (r *VoteRepository) CountsBySession(sessionID string) (map[string]int, error) {
	query := `
		SELECT v.submission_id, COUNT(*)
		FROM votes v
		JOIN submissions s ON s.id = v.submission_id
		WHERE s.session_id = ? AND s.deleted_at IS NULL
		GROUP BY v.submission_id
	`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var submissionID string
		var count int
		if err := rows.Scan(&submissionID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[submissionID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vote counts: %w", err)
	}

	return counts, nil
}
