package account

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
)

const (
	maxNameLength = 100
	maxBioLength  = 2000
)

type service struct {
	initialCredits int64
	ledgerRepo     ledgerRepo.Repository
	userRepo       userRepo.Repository
	clock          clock.Clock
	uuidGenerator  uuid.Generator
	logger         *slog.Logger
}

// New creates a new account service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.LedgerRepo == nil {
		return nil, ErrNilLedgerRepo
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

	if cfg.InitialCredits < 0 {
		return nil, validationError("initial credits cannot be negative")
	}

	initialCredits := cfg.InitialCredits
	if initialCredits == 0 {
		initialCredits = DefaultInitialCredits
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		initialCredits: initialCredits,
		ledgerRepo:     cfg.LedgerRepo,
		userRepo:       cfg.UserRepo,
		clock:          cfg.Clock,
		uuidGenerator:  cfg.UUIDGenerator,
		logger:         logger.With("service", "account"),
	}, nil
}

// Register creates a user and grants the starting credits
func (s *service) Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	if input == nil {
		return nil, validationError("input cannot be nil")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, validationError("name must be between 1 and %d characters", maxNameLength)
	}

	address, err := mail.ParseAddress(strings.TrimSpace(input.Email))
	if err != nil {
		return nil, validationError("invalid email address")
	}

	bio := strings.TrimSpace(input.Bio)
	if len(bio) > maxBioLength {
		return nil, validationError("bio is longer than %d characters", maxBioLength)
	}

	user := &models.User{
		ID:        s.uuidGenerator.NewID(),
		Name:      name,
		Email:     strings.ToLower(address.Address),
		Bio:       bio,
		Available: input.Available,
		CreatedAt: s.clock.Now(),
	}

	if err := s.userRepo.CreateUser(ctx, &userRepo.CreateUserInput{User: user}); err != nil {
		return nil, mapRepoError("create user", err)
	}

	if err := s.ledgerRepo.OpenAccount(ctx, &ledgerRepo.OpenAccountInput{UserID: user.ID}); err != nil {
		s.logger.Error("failed to open ledger account", "user_id", user.ID, "error", err)
		return nil, mapRepoError("open account", err)
	}

	grant, err := s.ledgerRepo.Credit(ctx, &ledgerRepo.CreditInput{
		UserID: user.ID,
		Amount: s.initialCredits,
		Reason: models.LedgerReasonInitialGrant,
	})
	if err != nil {
		s.logger.Error("failed to grant initial credits",
			"reconciliation_required", true,
			"user_id", user.ID,
			"amount", s.initialCredits,
			"error", err)
		return nil, mapRepoError("grant initial credits", err)
	}
	user.Credits = grant.Balance

	s.logger.Info("user registered", "user_id", user.ID, "credits", user.Credits)

	return &RegisterOutput{
		User: user,
	}, nil
}

// GetUser returns a user's profile with the current balance
func (s *service) GetUser(ctx context.Context, input *GetUserInput) (*GetUserOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}

	user, err := s.userRepo.GetUser(ctx, &userRepo.GetUserInput{UserID: input.UserID})
	if err != nil {
		return nil, mapRepoError("get user", err)
	}

	balance, err := s.ledgerRepo.GetBalance(ctx, &ledgerRepo.GetBalanceInput{UserID: input.UserID})
	if err != nil {
		return nil, mapRepoError("get balance", err)
	}
	user.Credits = balance.Balance

	return &GetUserOutput{
		User: user,
	}, nil
}

// GetCredits returns a user's balance
func (s *service) GetCredits(ctx context.Context, input *GetCreditsInput) (*GetCreditsOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}

	balance, err := s.ledgerRepo.GetBalance(ctx, &ledgerRepo.GetBalanceInput{UserID: input.UserID})
	if err != nil {
		return nil, mapRepoError("get balance", err)
	}

	return &GetCreditsOutput{
		Credits: balance.Balance,
	}, nil
}

// ListEntries returns a user's ledger entries, newest first
func (s *service) ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}
	if input.Limit < 0 {
		return nil, validationError("limit cannot be negative")
	}

	output, err := s.ledgerRepo.ListEntries(ctx, &ledgerRepo.ListEntriesInput{
		UserID: input.UserID,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, mapRepoError("list entries", err)
	}

	return &ListEntriesOutput{
		Entries: output.Entries,
	}, nil
}

// SetAvailability toggles whether the user accepts bookings
func (s *service) SetAvailability(ctx context.Context, input *SetAvailabilityInput) (*SetAvailabilityOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}

	err := s.userRepo.SetAvailability(ctx, &userRepo.SetAvailabilityInput{
		UserID:    input.UserID,
		Available: input.Available,
	})
	if err != nil {
		return nil, mapRepoError("set availability", err)
	}

	s.logger.Info("mentorship availability updated", "user_id", input.UserID, "available", input.Available)

	return &SetAvailabilityOutput{
		Available: input.Available,
	}, nil
}

// ListAvailableMentors returns mentors accepting bookings, except the caller
func (s *service) ListAvailableMentors(ctx context.Context, input *ListAvailableMentorsInput) (*ListAvailableMentorsOutput, error) {
	if input == nil {
		return nil, validationError("input cannot be nil")
	}

	output, err := s.userRepo.ListAvailableMentors(ctx, &userRepo.ListAvailableMentorsInput{
		ExcludeUserID: input.CallerID,
	})
	if err != nil {
		return nil, mapRepoError("list available mentors", err)
	}

	return &ListAvailableMentorsOutput{
		Mentors: output.Mentors,
	}, nil
}
