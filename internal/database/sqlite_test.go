package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "nested", "drk.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTemp(t)

	for _, table := range []string{"session", "track_point", "daily_stat", "player_state", "title_def"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Errorf("foreign_keys = %d, %v; want 1", fk, err)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTemp(t)

	if err := NewMigrationManager(db, Migrations).RunMigrations(); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("recorded migrations = %d, want 2", count)
	}
}

func TestLoadMigrations_SortsAndSkipsInvalidNames(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/010_later.sql": {Data: []byte("SELECT 1;")},
		"migrations/002_first.sql": {Data: []byte("SELECT 1;")},
		"migrations/README.md":     {Data: []byte("notes")},
		"migrations/bad.sql":       {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewMigrationManager(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 2 || migrations[1].Version != 10 {
		t.Errorf("versions = %d, %d; want 2, 10", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "002_first" {
		t.Errorf("name = %q", migrations[0].Name)
	}
}

func TestPlayerStateIsSingleton(t *testing.T) {
	db := openTemp(t)

	if _, err := db.Exec(`INSERT INTO player_state (id) VALUES (1)`); err == nil {
		t.Error("insert with id 1 should violate the check constraint")
	}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := Transaction(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO session (start_at_ms) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("sessions after rollback = %d, want 0", count)
	}

	err = Transaction(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO session (start_at_ms) VALUES (1)`)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error = %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM session`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("sessions after commit = %d, want 1", count)
	}
}

func TestTrackPointRequiresSession(t *testing.T) {
	db := openTemp(t)

	if _, err := db.Exec(`INSERT INTO track_point (session_id, t_ms, lat, lon, cum_distance_m) VALUES (99, 1, 0, 0, 0)`); err == nil {
		t.Error("point for unknown session should violate the foreign key")
	}
}
