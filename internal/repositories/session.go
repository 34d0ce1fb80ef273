package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// SessionRepository persists party sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session with a generated ID and sequence.
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	session.SetID(shared.GenerateID())

	query := `
		INSERT INTO sessions (id, sequence, code, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, session.ID(), sequence, session.Code(), session.Name(), session.CreatedAt(), session.UpdatedAt())
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: code %s already in use", shared.ErrInvalidInput, session.Code())
	}
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	return r.getWhere("id = ?", id)
}

// GetByCode retrieves a session by its join code.
func (r *SessionRepository) GetByCode(code string) (*models.Session, error) {
	return r.getWhere("code = ?", strings.ToUpper(strings.TrimSpace(code)))
}

// Latest retrieves the most recently created live session, if any.
func (r *SessionRepository) Latest() (*models.Session, error) {
	return r.getWhere("1 = 1 ORDER BY created_at DESC LIMIT 1")
}

// End soft-deletes a session.
func (r *SessionRepository) End(id string) error {
	now := time.Now()
	result, err := r.db.Exec("UPDATE sessions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", now, now, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

func (r *SessionRepository) getWhere(clause string, args ...any) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, sequence, code, name, created_at, updated_at
		FROM sessions
		WHERE deleted_at IS NULL AND %s
	`, clause)

	var (
		id        string
		sequence  int
		code      string
		name      string
		createdAt time.Time
		updatedAt time.Time
	)

	err := r.db.QueryRow(query, args...).Scan(&id, &sequence, &code, &name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session := models.NewSession(sequence, code, name)
	session.SetID(id)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)

	return session, nil
}
