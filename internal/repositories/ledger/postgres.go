package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/database"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// idempotencyIndex is the unique index allowing one entry per session and reason
const idempotencyIndex = "idx_ledger_entries_session_reason"

// errAlreadyApplied aborts a transaction that lost the race to write an entry
var errAlreadyApplied = errors.New("ledger entry already applied")

// PostgresConfig holds configuration for the Postgres ledger repository
type PostgresConfig struct {
	Pool *pgxpool.Pool

	// Clock stamps new entries
	Clock clock.Clock

	// UUIDGenerator issues entry IDs
	UUIDGenerator uuid.Generator
}

// postgresRepository keeps balances in users.credits and entries in ledger_entries
type postgresRepository struct {
	pool          *pgxpool.Pool
	clock         clock.Clock
	uuidGenerator uuid.Generator
}

// NewPostgres creates a new Postgres-backed ledger repository
func NewPostgres(cfg *PostgresConfig) (*postgresRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Pool == nil {
		return nil, database.ErrNilPool
	}

	if cfg.Clock == nil {
		return nil, errors.New("clock cannot be nil")
	}

	if cfg.UUIDGenerator == nil {
		return nil, errors.New("UUID generator cannot be nil")
	}

	return &postgresRepository{
		pool:          cfg.Pool,
		clock:         cfg.Clock,
		uuidGenerator: cfg.UUIDGenerator,
	}, nil
}

// OpenAccount checks that the user row exists; the balance column defaults to zero
func (r *postgresRepository) OpenAccount(ctx context.Context, input *OpenAccountInput) error {
	if input == nil || input.UserID == "" {
		return errors.New("input and user ID cannot be empty")
	}

	exists, err := userExists(ctx, r.pool, input.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}

	return nil
}

// Debit subtracts credits with a guarded single-statement update
func (r *postgresRepository) Debit(ctx context.Context, input *DebitInput) (*DebitOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateChange(input.UserID, input.Amount); err != nil {
		return nil, err
	}

	entry := newEntry(r.clock, r.uuidGenerator, input.UserID, -input.Amount, input.Reason, input.SessionID)
	var replay *appliedEntry
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		replay, err = findApplied(ctx, tx, entry)
		if err != nil || replay != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE users SET credits = credits - $2
			WHERE id = $1 AND credits >= $2
			RETURNING credits`, input.UserID, input.Amount).Scan(&entry.BalanceAfter)
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := userExists(ctx, tx, input.UserID)
			if existsErr != nil {
				return existsErr
			}
			if !exists {
				return ErrAccountNotFound
			}
			return ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		return insertEntry(ctx, tx, entry)
	})
	if errors.Is(err, errAlreadyApplied) {
		replay, err = findApplied(ctx, r.pool, entry)
		if err == nil && replay == nil {
			err = errors.New("ledger entry vanished after a duplicate write")
		}
	}
	if err != nil {
		return nil, err
	}

	if replay != nil {
		return &DebitOutput{Balance: replay.balance, Entry: replay.entry, Replayed: true}, nil
	}

	return &DebitOutput{
		Balance: entry.BalanceAfter,
		Entry:   entry,
	}, nil
}

// Credit adds credits and records the entry in the same transaction
func (r *postgresRepository) Credit(ctx context.Context, input *CreditInput) (*CreditOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateCredit(input); err != nil {
		return nil, err
	}

	entry := newEntry(r.clock, r.uuidGenerator, input.UserID, input.Amount, input.Reason, input.SessionID)
	var replay *appliedEntry
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		replay, err = findApplied(ctx, tx, entry)
		if err != nil || replay != nil {
			return err
		}

		if input.Reverses != "" {
			var found bool
			err := tx.QueryRow(ctx, `
				SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE session_id = $1 AND reason = $2)`,
				input.SessionID, string(input.Reverses)).Scan(&found)
			if err != nil {
				return fmt.Errorf("failed to look up reversed entry: %w", err)
			}
			if !found {
				return ErrNothingToReverse
			}
		}

		err = tx.QueryRow(ctx, `
			UPDATE users SET credits = credits + $2
			WHERE id = $1
			RETURNING credits`, input.UserID, input.Amount).Scan(&entry.BalanceAfter)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to credit balance: %w", err)
		}

		return insertEntry(ctx, tx, entry)
	})
	if errors.Is(err, errAlreadyApplied) {
		replay, err = findApplied(ctx, r.pool, entry)
		if err == nil && replay == nil {
			err = errors.New("ledger entry vanished after a duplicate write")
		}
	}
	if err != nil {
		return nil, err
	}

	if replay != nil {
		return &CreditOutput{Balance: replay.balance, Entry: replay.entry, Replayed: true}, nil
	}

	return &CreditOutput{
		Balance: entry.BalanceAfter,
		Entry:   entry,
	}, nil
}

// GetBalance returns a user's current balance
func (r *postgresRepository) GetBalance(ctx context.Context, input *GetBalanceInput) (*GetBalanceOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, input.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &GetBalanceOutput{
		Balance: balance,
	}, nil
}

// ListEntries returns a user's entries, newest first
func (r *postgresRepository) ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	query := `
		SELECT id, user_id, amount, reason, COALESCE(session_id, ''), balance_after, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{input.UserID}
	if input.Limit > 0 {
		query += ` LIMIT $2`
		args = append(args, input.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LedgerEntry, 0)
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(&entry.ID, &entry.UserID, &entry.Amount, &entry.Reason,
			&entry.SessionID, &entry.BalanceAfter, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger entries: %w", err)
	}

	return &ListEntriesOutput{
		Entries: entries,
	}, nil
}

func userExists(ctx context.Context, q database.Querier, userID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check ledger account: %w", err)
	}
	return exists, nil
}

// appliedEntry is an entry found for a session and reason, with the current balance
type appliedEntry struct {
	entry   *models.LedgerEntry
	balance int64
}

// findApplied returns the entry already written for the session and reason, or nil
func findApplied(ctx context.Context, q database.Querier, entry *models.LedgerEntry) (*appliedEntry, error) {
	if entry.SessionID == "" {
		return nil, nil
	}

	var found models.LedgerEntry
	var balance int64
	err := q.QueryRow(ctx, `
		SELECT e.id, e.user_id, e.amount, e.reason, e.session_id, e.balance_after, e.created_at, u.credits
		FROM ledger_entries e
		JOIN users u ON u.id = e.user_id
		WHERE e.session_id = $1 AND e.reason = $2`, entry.SessionID, string(entry.Reason)).
		Scan(&found.ID, &found.UserID, &found.Amount, &found.Reason,
			&found.SessionID, &found.BalanceAfter, &found.CreatedAt, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up applied entry: %w", err)
	}

	return &appliedEntry{entry: &found, balance: balance}, nil
}

func insertEntry(ctx context.Context, q database.Querier, entry *models.LedgerEntry) error {
	var sessionID *string
	if entry.SessionID != "" {
		sessionID = &entry.SessionID
	}

	_, err := q.Exec(ctx, `
		INSERT INTO ledger_entries (id, user_id, amount, reason, session_id, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Amount, string(entry.Reason), sessionID, entry.BalanceAfter, entry.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) && database.ConstraintName(err) == idempotencyIndex {
			return errAlreadyApplied
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}
