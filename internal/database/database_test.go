package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"artgram/internal/config"
	"artgram/internal/database"
)

func TestMigrate_SQLite(t *testing.T) {
	db, err := database.ConnectSQLite(database.SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("ConnectSQLite: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := database.Migrate(ctx, db); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	var fk int
	if err := db.Get(&fk, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	// A like for a post that does not exist must be rejected.
	_, err = db.Exec(`INSERT INTO post_likes (post_id, user_id, created_at) VALUES (1, 1, CURRENT_TIMESTAMP)`)
	if err == nil {
		t.Fatal("orphan like inserted, want foreign key error")
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := database.Connect(&config.Config{DBDriver: "mysql"})
	if err == nil {
		t.Fatal("Connect with unknown driver succeeded")
	}
}
