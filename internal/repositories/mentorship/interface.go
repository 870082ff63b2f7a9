package mentorship

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/mentorlink/internal/repositories/mentorship Repository

import (
	"context"

	"github.com/KirkDiggler/mentorlink/internal/models"
)

// Repository persists mentorship sessions. Sessions are never deleted.
type Repository interface {
	// CreateSession stores a new session
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, input *GetSessionInput) (*models.MentorshipSession, error)

	// UpdateStatus moves a session to a new status only if it is still in the expected one
	UpdateStatus(ctx context.Context, input *UpdateStatusInput) error

	// SetFeedback stores feedback on a completed session that has none yet
	SetFeedback(ctx context.Context, input *SetFeedbackInput) error

	// ListSessionsForUser retrieves a user's sessions ordered by scheduled time
	ListSessionsForUser(ctx context.Context, input *ListSessionsForUserInput) (*ListSessionsForUserOutput, error)

	// FindByIdempotencyKey retrieves the session a mentee booked with the given key
	FindByIdempotencyKey(ctx context.Context, input *FindByIdempotencyKeyInput) (*models.MentorshipSession, error)
}
