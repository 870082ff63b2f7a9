package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one forward schema change
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

const createUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    bio TEXT NOT NULL DEFAULT '',
    credits BIGINT NOT NULL DEFAULT 0,
    mentorship_availability BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT non_negative_credits CHECK (credits >= 0)
);

CREATE INDEX IF NOT EXISTS idx_users_available ON users(mentorship_availability) WHERE mentorship_availability;
`

const createMentorshipSessions = `
CREATE TABLE IF NOT EXISTS mentorship_sessions (
    id TEXT PRIMARY KEY,
    mentor_id TEXT NOT NULL REFERENCES users(id),
    mentee_id TEXT NOT NULL REFERENCES users(id),
    scheduled_time TIMESTAMP WITH TIME ZONE NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    feedback TEXT NOT NULL DEFAULT '',
    event_id TEXT NOT NULL DEFAULT '',
    idempotency_key TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT distinct_participants CHECK (mentor_id <> mentee_id),
    CONSTRAINT valid_status CHECK (status IN ('pending', 'scheduled', 'canceled', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_mentor ON mentorship_sessions(mentor_id, scheduled_time);
CREATE INDEX IF NOT EXISTS idx_sessions_mentee ON mentorship_sessions(mentee_id, scheduled_time);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_idempotency
    ON mentorship_sessions(mentee_id, idempotency_key) WHERE idempotency_key <> '';
`

const createLedgerEntries = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL,
    reason TEXT NOT NULL,
    session_id TEXT,
    balance_after BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at DESC);
`

const uniqueLedgerEntryPerSession = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_session_reason
    ON ledger_entries(session_id, reason) WHERE session_id IS NOT NULL;
`

// Migrations returns the schema in application order
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_users", UpSQL: createUsers},
		{Version: 2, Name: "create_mentorship_sessions", UpSQL: createMentorshipSessions},
		{Version: 3, Name: "create_ledger_entries", UpSQL: createLedgerEntries},
		{Version: 4, Name: "unique_ledger_entry_per_session", UpSQL: uniqueLedgerEntryPerSession},
	}
}

// Migrate applies every migration not yet recorded in schema_migrations
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return ErrNilPool
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[int]struct{})
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, mig := range Migrations() {
		if _, ok := applied[mig.Version]; ok {
			continue
		}

		err := WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d (%s): %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
	}

	return nil
}
