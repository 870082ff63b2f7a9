package mentorship

import (
	"log/slog"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/notifications"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
)

const (
	// DefaultBookingCost is charged to the mentee per booking
	DefaultBookingCost int64 = 10

	// DefaultMentorPayout is credited to the mentor per completed session
	DefaultMentorPayout int64 = 10

	// MaxFeedbackLength bounds the feedback text in bytes
	MaxFeedbackLength = 4000

	// MaxIdempotencyKeyLength bounds client supplied idempotency keys
	MaxIdempotencyKeyLength = 128
)

// Config holds configuration for the mentorship service
type Config struct {
	// BookingCost is debited from the mentee on booking
	BookingCost int64

	// MentorPayout is credited to the mentor on completion
	MentorPayout int64

	// AutoAccept creates sessions as scheduled instead of pending
	AutoAccept bool

	// RefundOnCancel returns the booking cost to the mentee on cancel or reject
	RefundOnCancel bool

	// Repository dependencies
	LedgerRepo  ledgerRepo.Repository
	SessionRepo sessionRepo.Repository
	UserRepo    userRepo.Repository

	// Service dependencies
	Clock         clock.Clock
	UUIDGenerator uuid.Generator
	Notifier      notifications.Notifier
	Logger        *slog.Logger
}

// BookInput contains parameters for booking a session
type BookInput struct {
	MenteeID      string
	MentorID      string
	ScheduledTime time.Time

	// IdempotencyKey makes retries of the same booking return the first result
	IdempotencyKey string
}

// BookOutput contains the booked session and the mentee's balance
type BookOutput struct {
	Session *models.MentorshipSession
	Credits int64

	// Replayed is true when the idempotency key matched an earlier booking
	Replayed bool
}

// TransitionInput contains parameters for a lifecycle transition
type TransitionInput struct {
	SessionID string
	ActorID   string
}

// TransitionOutput contains the session after a transition
type TransitionOutput struct {
	Session *models.MentorshipSession

	// LedgerEntry is the payout or refund written by the transition, if any
	LedgerEntry *models.LedgerEntry
}

// UpdateInput contains parameters for the status-driven update
type UpdateInput struct {
	SessionID string
	ActorID   string

	// Type is either scheduled (accept) or canceled (reject)
	Type models.SessionStatus
}

// SubmitFeedbackInput contains parameters for attaching feedback
type SubmitFeedbackInput struct {
	SessionID string
	ActorID   string
	Feedback  string
}

// SubmitFeedbackOutput contains the session with feedback attached
type SubmitFeedbackOutput struct {
	Session *models.MentorshipSession
}

// HistoryInput contains parameters for listing finished sessions
type HistoryInput struct {
	UserID string
}

// HistoryOutput contains canceled and completed sessions
type HistoryOutput struct {
	Sessions []*models.MentorshipSession
}

// UpcomingInput contains parameters for listing open sessions
type UpcomingInput struct {
	UserID string
	Role   models.SessionRole
}

// UpcomingOutput contains pending and scheduled sessions
type UpcomingOutput struct {
	Sessions []*models.MentorshipSession
}
