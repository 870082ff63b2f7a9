package user

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/mentorlink/internal/repositories/user Repository

import (
	"context"

	"github.com/KirkDiggler/mentorlink/internal/models"
)

// Repository defines the interface for user profile persistence.
// Balances are not stored here; the ledger owns them.
type Repository interface {
	// CreateUser persists a new user with a unique email
	CreateUser(ctx context.Context, input *CreateUserInput) error

	// GetUser retrieves a user by ID
	GetUser(ctx context.Context, input *GetUserInput) (*models.User, error)

	// SetAvailability updates whether the user accepts bookings
	SetAvailability(ctx context.Context, input *SetAvailabilityInput) error

	// ListAvailableMentors retrieves users accepting bookings
	ListAvailableMentors(ctx context.Context, input *ListAvailableMentorsInput) (*ListAvailableMentorsOutput, error)
}
