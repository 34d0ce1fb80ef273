package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// in-memory databases exist per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func createTestSession(t *testing.T, db *sql.DB, code string) *models.Session {
	t.Helper()

	repo := NewSessionRepository(db)
	session := models.NewSession(0, code, "Test Party")
	if err := repo.Create(session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func createTestSubmission(t *testing.T, db *sql.DB, sessionID, guest, trackID string) *models.Submission {
	t.Helper()

	repo := NewSubmissionRepository(db)
	sub := models.NewSubmission(0, sessionID, guest, models.Track{
		ID:     trackID,
		Title:  "Track " + trackID,
		Artist: "Artist",
		URI:    "spotify:track:" + trackID,
	})
	if err := repo.Create(sub); err != nil {
		t.Fatalf("failed to create submission: %v", err)
	}
	return sub
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "sessions")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	second, err := NextSequence(db, "sessions")
	if err != nil {
		t.Fatalf("failed to get sequence: %v", err)
	}

	if second != first+1 {
		t.Errorf("expected monotonically increasing sequence, got %d then %d", first, second)
	}
}

func TestSessionRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("assigns an ID", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			if session.ID() == "" {
				t.Error("session ID should be set after creation")
			}
		})

		t.Run("rejects a duplicate join code", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			createTestSession(t, db, "ABC123")

			repo := NewSessionRepository(db)
			dup := models.NewSession(0, "ABC123", "Another Party")
			err := repo.Create(dup)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput for duplicate code, got %v", err)
			}
		})

		t.Run("rejects an invalid session", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db)
			err := repo.Create(models.NewSession(0, "", ""))
			if err == nil {
				t.Error("expected validation error for empty session")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		created := createTestSession(t, db, "ABC123")

		repo := NewSessionRepository(db)
		got, err := repo.Get(created.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}

		if got.ID() != created.ID() || got.Code() != "ABC123" || got.Name() != "Test Party" {
			t.Errorf("unexpected session: id=%s code=%s name=%s", got.ID(), got.Code(), got.Name())
		}
	})

	t.Run("GetByCode normalizes the code", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		created := createTestSession(t, db, "ABC123")

		repo := NewSessionRepository(db)
		got, err := repo.GetByCode("  abc123 ")
		if err != nil {
			t.Fatalf("failed to get session by code: %v", err)
		}
		if got.ID() != created.ID() {
			t.Errorf("expected session %s, got %s", created.ID(), got.ID())
		}
	})

	t.Run("Latest", func(t *testing.T) {
		t.Run("returns not found when empty", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			repo := NewSessionRepository(db)
			if _, err := repo.Latest(); !errors.Is(err, shared.ErrSessionNotFound) {
				t.Errorf("expected ErrSessionNotFound, got %v", err)
			}
		})
	})

	t.Run("End", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		session := createTestSession(t, db, "ABC123")

		repo := NewSessionRepository(db)
		if err := repo.End(session.ID()); err != nil {
			t.Fatalf("failed to end session: %v", err)
		}

		if _, err := repo.Get(session.ID()); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ended session to be hidden, got %v", err)
		}

		if err := repo.End(session.ID()); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ending twice to fail, got %v", err)
		}
	})
}

func TestSubmissionRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("assigns an ID", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			sub := createTestSubmission(t, db, session.ID(), "sam", "t1")

			if sub.ID() == "" {
				t.Error("submission ID should be set after creation")
			}
		})

		t.Run("rejects the same track twice per session", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			createTestSubmission(t, db, session.ID(), "sam", "t1")

			repo := NewSubmissionRepository(db)
			dup := models.NewSubmission(0, session.ID(), "alex", models.Track{
				ID: "t1", Title: "Track t1", URI: "spotify:track:t1",
			})
			err := repo.Create(dup)
			if !errors.Is(err, shared.ErrDuplicateSubmission) {
				t.Errorf("expected ErrDuplicateSubmission, got %v", err)
			}
		})

		t.Run("allows the same track in different sessions", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			first := createTestSession(t, db, "ABC123")
			second := createTestSession(t, db, "XYZ789")

			createTestSubmission(t, db, first.ID(), "sam", "t1")
			createTestSubmission(t, db, second.ID(), "sam", "t1")
		})

		t.Run("allows resubmitting a deleted track", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			sub := createTestSubmission(t, db, session.ID(), "sam", "t1")

			repo := NewSubmissionRepository(db)
			if err := repo.Delete(sub.ID()); err != nil {
				t.Fatalf("failed to delete submission: %v", err)
			}

			createTestSubmission(t, db, session.ID(), "sam", "t1")

			count, err := repo.CountBySession(session.ID())
			if err != nil {
				t.Fatalf("failed to count submissions: %v", err)
			}
			if count != 1 {
				t.Errorf("expected only the live submission, got count %d", count)
			}
		})
	})

	t.Run("ListBySession returns arrival order", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		session := createTestSession(t, db, "ABC123")
		createTestSubmission(t, db, session.ID(), "sam", "t1")
		createTestSubmission(t, db, session.ID(), "alex", "t2")
		createTestSubmission(t, db, session.ID(), "kim", "t3")

		repo := NewSubmissionRepository(db)
		subs, err := repo.ListBySession(session.ID())
		if err != nil {
			t.Fatalf("failed to list submissions: %v", err)
		}

		if len(subs) != 3 {
			t.Fatalf("expected 3 submissions, got %d", len(subs))
		}
		for i, want := range []string{"t1", "t2", "t3"} {
			if subs[i].Track().ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, subs[i].Track().ID)
			}
		}
	})

	t.Run("Get returns not found for a missing submission", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSubmissionRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("Delete hides the submission from listings", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		session := createTestSession(t, db, "ABC123")
		sub := createTestSubmission(t, db, session.ID(), "sam", "t1")

		repo := NewSubmissionRepository(db)
		if err := repo.Delete(sub.ID()); err != nil {
			t.Fatalf("failed to delete submission: %v", err)
		}

		count, err := repo.CountBySession(session.ID())
		if err != nil {
			t.Fatalf("failed to count submissions: %v", err)
		}
		if count != 0 {
			t.Errorf("expected deleted submission to be excluded, got count %d", count)
		}
	})
}

func TestVoteRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("counts one vote per guest per submission", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			sub := createTestSubmission(t, db, session.ID(), "sam", "t1")

			repo := NewVoteRepository(db)
			if err := repo.Create(models.NewVote(sub.ID(), "alex")); err != nil {
				t.Fatalf("failed to create vote: %v", err)
			}

			err := repo.Create(models.NewVote(sub.ID(), "alex"))
			if !errors.Is(err, shared.ErrDuplicateVote) {
				t.Errorf("expected ErrDuplicateVote, got %v", err)
			}

			count, err := repo.CountBySubmission(sub.ID())
			if err != nil {
				t.Fatalf("failed to count votes: %v", err)
			}
			if count != 1 {
				t.Errorf("expected 1 vote, got %d", count)
			}
		})

		t.Run("allows the same guest to vote on different submissions", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			session := createTestSession(t, db, "ABC123")
			first := createTestSubmission(t, db, session.ID(), "sam", "t1")
			second := createTestSubmission(t, db, session.ID(), "sam", "t2")

			repo := NewVoteRepository(db)
			if err := repo.Create(models.NewVote(first.ID(), "alex")); err != nil {
				t.Fatalf("first vote: %v", err)
			}
			if err := repo.Create(models.NewVote(second.ID(), "alex")); err != nil {
				t.Fatalf("second vote: %v", err)
			}
		})
	})

	t.Run("CountsBySession groups by submission", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		session := createTestSession(t, db, "ABC123")
		first := createTestSubmission(t, db, session.ID(), "sam", "t1")
		second := createTestSubmission(t, db, session.ID(), "sam", "t2")

		repo := NewVoteRepository(db)
		for _, guest := range []string{"alex", "kim"} {
			if err := repo.Create(models.NewVote(first.ID(), guest)); err != nil {
				t.Fatalf("vote on first: %v", err)
			}
		}
		if err := repo.Create(models.NewVote(second.ID(), "alex")); err != nil {
			t.Fatalf("vote on second: %v", err)
		}

		counts, err := repo.CountsBySession(session.ID())
		if err != nil {
			t.Fatalf("failed to count by session: %v", err)
		}

		if counts[first.ID()] != 2 {
			t.Errorf("expected 2 votes on first, got %d", counts[first.ID()])
		}
		if counts[second.ID()] != 1 {
			t.Errorf("expected 1 vote on second, got %d", counts[second.ID()])
		}
	})
}
