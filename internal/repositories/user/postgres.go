package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/mentorlink/internal/database"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, bio, credits, mentorship_availability, created_at`

// PostgresConfig holds configuration for the Postgres user repository
type PostgresConfig struct {
	Pool *pgxpool.Pool
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres-backed user repository
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

// CreateUser inserts the user row with a zero balance
func (r *postgresRepository) CreateUser(ctx context.Context, input *CreateUserInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}
	if err := validateUser(input.User); err != nil {
		return err
	}

	u := input.User
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, bio, credits, mentorship_availability, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)`,
		u.ID, u.Name, normalizeEmail(u.Email), u.Bio, u.Available, u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if database.ConstraintName(err) == "users_pkey" {
				return ErrUserExists
			}
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *postgresRepository) GetUser(ctx context.Context, input *GetUserInput) (*models.User, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, input.UserID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// SetAvailability updates the availability flag
func (r *postgresRepository) SetAvailability(ctx context.Context, input *SetAvailabilityInput) error {
	if input == nil || input.UserID == "" {
		return errors.New("input and user ID cannot be empty")
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET mentorship_availability = $2 WHERE id = $1`,
		input.UserID, input.Available)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListAvailableMentors retrieves users accepting bookings ordered by name
func (r *postgresRepository) ListAvailableMentors(ctx context.Context, input *ListAvailableMentorsInput) (*ListAvailableMentorsOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE mentorship_availability AND id <> $1
		ORDER BY name, id`, input.ExcludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list available mentors: %w", err)
	}
	defer rows.Close()

	mentors := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		mentors = append(mentors, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read available mentors: %w", err)
	}

	return &ListAvailableMentorsOutput{
		Mentors: mentors,
	}, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.Credits, &u.Available, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
