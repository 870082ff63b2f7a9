package account

import (
	"log/slog"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
)

// DefaultInitialCredits is granted to every new user
const DefaultInitialCredits int64 = 10

// Config holds configuration for the account service
type Config struct {
	// InitialCredits is granted on registration, zero uses the default
	InitialCredits int64

	// Repository dependencies
	LedgerRepo ledgerRepo.Repository
	UserRepo   userRepo.Repository

	// Service dependencies
	Clock         clock.Clock
	UUIDGenerator uuid.Generator
	Logger        *slog.Logger
}

// RegisterInput contains parameters for registering a user
type RegisterInput struct {
	Name      string
	Email     string
	Bio       string
	Available bool
}

// RegisterOutput contains the registered user
type RegisterOutput struct {
	User *models.User
}

// GetUserInput contains parameters for reading a profile
type GetUserInput struct {
	UserID string
}

// GetUserOutput contains a user's profile
type GetUserOutput struct {
	User *models.User
}

// GetCreditsInput contains parameters for reading a balance
type GetCreditsInput struct {
	UserID string
}

// GetCreditsOutput contains a user's balance
type GetCreditsOutput struct {
	Credits int64
}

// ListEntriesInput contains parameters for listing ledger entries
type ListEntriesInput struct {
	UserID string
	Limit  int
}

// ListEntriesOutput contains ledger entries, newest first
type ListEntriesOutput struct {
	Entries []*models.LedgerEntry
}

// SetAvailabilityInput contains parameters for toggling availability
type SetAvailabilityInput struct {
	UserID    string
	Available bool
}

// SetAvailabilityOutput contains the stored availability
type SetAvailabilityOutput struct {
	Available bool
}

// ListAvailableMentorsInput contains parameters for listing mentors
type ListAvailableMentorsInput struct {
	// CallerID is left out of the result
	CallerID string
}

// ListAvailableMentorsOutput contains the available mentors
type ListAvailableMentorsOutput struct {
	Mentors []*models.User
}
