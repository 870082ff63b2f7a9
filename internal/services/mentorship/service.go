package mentorship

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/notifications"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
)

// service implements the Service interface
type service struct {
	bookingCost    int64
	mentorPayout   int64
	autoAccept     bool
	refundOnCancel bool

	ledgerRepo  ledgerRepo.Repository
	sessionRepo sessionRepo.Repository
	userRepo    userRepo.Repository

	clock         clock.Clock
	uuidGenerator uuid.Generator
	notifier      notifications.Notifier
	logger        *slog.Logger
}

// New creates a new mentorship service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.LedgerRepo == nil {
		return nil, ErrNilLedgerRepo
	}

	if cfg.SessionRepo == nil {
		return nil, ErrNilSessionRepo
	}

	if cfg.UserRepo == nil {
		return nil, ErrNilUserRepo
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	if cfg.BookingCost < 0 || cfg.MentorPayout < 0 {
		return nil, validationError("booking cost and mentor payout cannot be negative")
	}

	bookingCost := cfg.BookingCost
	if bookingCost == 0 {
		bookingCost = DefaultBookingCost
	}

	mentorPayout := cfg.MentorPayout
	if mentorPayout == 0 {
		mentorPayout = DefaultMentorPayout
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		bookingCost:    bookingCost,
		mentorPayout:   mentorPayout,
		autoAccept:     cfg.AutoAccept,
		refundOnCancel: cfg.RefundOnCancel,
		ledgerRepo:     cfg.LedgerRepo,
		sessionRepo:    cfg.SessionRepo,
		userRepo:       cfg.UserRepo,
		clock:          cfg.Clock,
		uuidGenerator:  cfg.UUIDGenerator,
		notifier:       notifier,
		logger:         logger.With("service", "mentorship"),
	}, nil
}

// notify sends the event without letting delivery problems reach the caller
func (s *service) notify(ctx context.Context, event messaging.EventKind, session *models.MentorshipSession) {
	snapshot := *session
	err := s.notifier.Notify(context.WithoutCancel(ctx), &notifications.NotifyInput{
		Event:   event,
		Session: &snapshot,
	})
	if err != nil {
		s.logger.Warn("failed to deliver session notification",
			"event", event,
			"session_id", session.ID,
			"error", err)
	}
}
