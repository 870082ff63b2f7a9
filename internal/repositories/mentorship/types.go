package mentorship

import (
	"errors"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("mentorship session not found")

	// ErrSessionExists is returned when a session ID is already taken
	ErrSessionExists = errors.New("mentorship session already exists")

	// ErrStatusConflict is returned when the stored status does not match the precondition
	ErrStatusConflict = errors.New("mentorship session status conflict")

	// ErrFeedbackExists is returned when feedback was already submitted
	ErrFeedbackExists = errors.New("mentorship session already has feedback")

	// ErrDuplicateIdempotencyKey is returned when the mentee already booked with the key
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

// CreateSessionInput contains parameters for storing a new session
type CreateSessionInput struct {
	Session *models.MentorshipSession
}

// CreateSessionOutput contains the stored session
type CreateSessionOutput struct {
	Session *models.MentorshipSession
}

// GetSessionInput contains parameters for retrieving a session
type GetSessionInput struct {
	SessionID string
}

// UpdateStatusInput contains parameters for a compare-and-swap status change
type UpdateStatusInput struct {
	SessionID string

	// From is the status the session must currently be in
	From models.SessionStatus

	// To is the status to move to
	To models.SessionStatus

	UpdatedAt time.Time
}

// SetFeedbackInput contains parameters for attaching feedback
type SetFeedbackInput struct {
	SessionID string
	Feedback  string
	UpdatedAt time.Time
}

// ListSessionsForUserInput contains parameters for listing a user's sessions
type ListSessionsForUserInput struct {
	UserID string

	// Role restricts the listing to one side, empty means both
	Role models.SessionRole

	// Statuses restricts the listing to the given statuses, empty means all
	Statuses []models.SessionStatus
}

// ListSessionsForUserOutput contains a user's sessions
type ListSessionsForUserOutput struct {
	Sessions []*models.MentorshipSession
}

// FindByIdempotencyKeyInput contains parameters for an idempotent booking lookup
type FindByIdempotencyKeyInput struct {
	MenteeID string
	Key      string
}

func validateSession(session *models.MentorshipSession) error {
	switch {
	case session == nil:
		return errors.New("session cannot be nil")
	case session.ID == "":
		return errors.New("session ID cannot be empty")
	case session.MentorID == "" || session.MenteeID == "":
		return errors.New("mentor and mentee IDs cannot be empty")
	case session.MentorID == session.MenteeID:
		return errors.New("mentor and mentee must be different users")
	case !session.Status.IsValid():
		return errors.New("invalid session status")
	}
	return nil
}

func statusFilter(statuses []models.SessionStatus) func(models.SessionStatus) bool {
	if len(statuses) == 0 {
		return func(models.SessionStatus) bool { return true }
	}
	allowed := make(map[models.SessionStatus]struct{}, len(statuses))
	for _, status := range statuses {
		allowed[status] = struct{}{}
	}
	return func(status models.SessionStatus) bool {
		_, ok := allowed[status]
		return ok
	}
}
