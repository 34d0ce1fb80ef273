package shared

import (
	"database/sql"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", name, err)
	}
	return count > 0
}

func TestMigrations(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i, migration := range migrations {
			if migration.Up == "" {
				t.Errorf("migration %d has no up script", migration.Version)
			}
			if migration.Down == "" {
				t.Errorf("migration %d has no down script", migration.Version)
			}
			if i > 0 && migration.Version <= migrations[i-1].Version {
				t.Error("expected migrations sorted by version")
			}
		}
	})

	t.Run("RunMigrations", func(t *testing.T) {
		t.Run("creates the schema", func(t *testing.T) {
			db := newTestDB(t)

			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}

			for _, table := range []string{"schema_migrations", "sessions", "submissions", "votes"} {
				if !tableExists(t, db, table) {
					t.Errorf("expected table %s to exist", table)
				}
			}
		})

		t.Run("is idempotent", func(t *testing.T) {
			db := newTestDB(t)

			if err := RunMigrations(db); err != nil {
				t.Fatalf("first run: %v", err)
			}
			if err := RunMigrations(db); err != nil {
				t.Fatalf("second run: %v", err)
			}

			var count int
			if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
				t.Fatalf("failed to count migrations: %v", err)
			}

			migrations, err := loadMigrations()
			if err != nil {
				t.Fatalf("failed to load migrations: %v", err)
			}
			if count != len(migrations) {
				t.Errorf("expected %d applied migrations, got %d", len(migrations), count)
			}
		})
	})

	t.Run("RollbackMigration", func(t *testing.T) {
		t.Run("drops the most recent migration", func(t *testing.T) {
			db := newTestDB(t)

			if err := RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}

			if err := RollbackMigration(db); err != nil {
				t.Fatalf("failed to rollback: %v", err)
			}

			if tableExists(t, db, "sessions") {
				t.Error("expected sessions table to be dropped")
			}
		})

		t.Run("fails with nothing applied", func(t *testing.T) {
			db := newTestDB(t)

			if err := createMigrationsTable(db); err != nil {
				t.Fatalf("failed to create migrations table: %v", err)
			}

			if err := RollbackMigration(db); err == nil {
				t.Error("expected error with no migrations to rollback")
			}
		})
	})

	t.Run("removeComments", func(t *testing.T) {
		input := "CREATE TABLE t ( -- trailing comment\n-- full line comment\nid TEXT\n)"
		got := removeComments(input)

		want := "CREATE TABLE t (\nid TEXT\n)"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}
