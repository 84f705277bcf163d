package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/onnwee/linkline/db"
)

// SetupTestDB opens the database named by TEST_PG_DSN and brings its schema
// current the same way the service does: versioned migrations first, embedded
// SQL as fallback. Tests are skipped when TEST_PG_DSN is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.RunMigrations(database); err != nil {
		if err := db.Migrate(context.Background(), database); err != nil {
			database.Close()
			t.Fatalf("failed to run migrations: %v", err)
		}
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}
