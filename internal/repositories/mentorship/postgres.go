package mentorship

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/mentorlink/internal/database"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const idempotencyIndex = "idx_sessions_idempotency"

const sessionColumns = `id, mentor_id, mentee_id, scheduled_time, status, feedback, event_id, idempotency_key, created_at, updated_at`

// PostgresConfig holds configuration for the Postgres mentorship repository
type PostgresConfig struct {
	Pool *pgxpool.Pool
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres-backed mentorship repository
func NewPostgres(cfg *PostgresConfig) (*postgresRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Pool == nil {
		return nil, database.ErrNilPool
	}

	return &postgresRepository{
		pool: cfg.Pool,
	}, nil
}

// CreateSession inserts a new session row
func (r *postgresRepository) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateSession(input.Session); err != nil {
		return nil, err
	}

	s := input.Session
	_, err := r.pool.Exec(ctx, `
		INSERT INTO mentorship_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.MentorID, s.MenteeID, s.ScheduledTime, string(s.Status),
		s.Feedback, s.EventID, s.IdempotencyKey, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if database.ConstraintName(err) == idempotencyIndex {
				return nil, ErrDuplicateIdempotencyKey
			}
			return nil, ErrSessionExists
		}
		return nil, fmt.Errorf("failed to create mentorship session: %w", err)
	}

	return &CreateSessionOutput{Session: s}, nil
}

// GetSession retrieves a session by ID
func (r *postgresRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.MentorshipSession, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM mentorship_sessions WHERE id = $1`, input.SessionID)
	return scanSession(row)
}

// UpdateStatus only touches the row while it is still in the expected status
func (r *postgresRepository) UpdateStatus(ctx context.Context, input *UpdateStatusInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}
	if !input.From.IsValid() || !input.To.IsValid() {
		return errors.New("invalid session status")
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE mentorship_sessions SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`,
		input.SessionID, string(input.From), string(input.To), input.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update mentorship session status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.GetSession(ctx, &GetSessionInput{SessionID: input.SessionID}); err != nil {
		return err
	}
	return ErrStatusConflict
}

// SetFeedback stores feedback once on a completed session
func (r *postgresRepository) SetFeedback(ctx context.Context, input *SetFeedbackInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}
	if input.Feedback == "" {
		return errors.New("feedback cannot be empty")
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE mentorship_sessions SET feedback = $2, updated_at = $3
		WHERE id = $1 AND status = 'completed' AND feedback = ''`,
		input.SessionID, input.Feedback, input.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set mentorship session feedback: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	session, err := r.GetSession(ctx, &GetSessionInput{SessionID: input.SessionID})
	if err != nil {
		return err
	}
	if session.Status != models.SessionStatusCompleted {
		return ErrStatusConflict
	}
	return ErrFeedbackExists
}

// ListSessionsForUser retrieves a user's sessions ordered by scheduled time
func (r *postgresRepository) ListSessionsForUser(ctx context.Context, input *ListSessionsForUserInput) (*ListSessionsForUserOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	var where string
	switch input.Role {
	case models.SessionRoleMentor:
		where = `mentor_id = $1`
	case models.SessionRoleMentee:
		where = `mentee_id = $1`
	case "":
		where = `(mentor_id = $1 OR mentee_id = $1)`
	default:
		return nil, fmt.Errorf("invalid session role: %s", input.Role)
	}

	args := []any{input.UserID}
	if len(input.Statuses) > 0 {
		statuses := make([]string, len(input.Statuses))
		for i, status := range input.Statuses {
			statuses[i] = string(status)
		}
		where += ` AND status = ANY($2)`
		args = append(args, statuses)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM mentorship_sessions
		WHERE `+where+`
		ORDER BY scheduled_time ASC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentorship sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.MentorshipSession, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mentorship sessions: %w", err)
	}

	return &ListSessionsForUserOutput{
		Sessions: sessions,
	}, nil
}

// FindByIdempotencyKey retrieves the session a mentee booked with the given key
func (r *postgresRepository) FindByIdempotencyKey(ctx context.Context, input *FindByIdempotencyKeyInput) (*models.MentorshipSession, error) {
	if input == nil || input.MenteeID == "" || input.Key == "" {
		return nil, errors.New("input, mentee ID and key cannot be empty")
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM mentorship_sessions
		WHERE mentee_id = $1 AND idempotency_key = $2`, input.MenteeID, input.Key)
	return scanSession(row)
}

func scanSession(row pgx.Row) (*models.MentorshipSession, error) {
	var s models.MentorshipSession
	var status string
	err := row.Scan(&s.ID, &s.MentorID, &s.MenteeID, &s.ScheduledTime, &status,
		&s.Feedback, &s.EventID, &s.IdempotencyKey, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan mentorship session: %w", err)
	}

	s.Status = models.SessionStatus(status)
	s.ScheduledTime = s.ScheduledTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
