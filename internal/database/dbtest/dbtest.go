// Package dbtest connects Postgres integration tests to the database named
// by TEST_DATABASE_URL and skips them when it is unset.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/KirkDiggler/mentorlink/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnvURL names the variable holding the integration database URL
const EnvURL = "TEST_DATABASE_URL"

// Open returns a migrated pool with empty tables, or skips the test
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skipf("%s not set, skipping Postgres integration test", EnvURL)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, &database.Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	_, err = pool.Exec(ctx, `TRUNCATE ledger_entries, mentorship_sessions, users`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}

	return pool
}

// InsertUser adds a bare user row with the given balance
func InsertUser(t *testing.T, pool *pgxpool.Pool, id string, credits int64) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email, credits) VALUES ($1, $1, $1 || '@example.com', $2)`, id, credits)
	if err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
}
