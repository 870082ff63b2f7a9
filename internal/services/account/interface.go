package account

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/mentorlink/internal/services/account Service

import "context"

// Service defines the interface for user account operations
type Service interface {
	// Register creates a user and grants the starting credits
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)

	// GetUser returns a user's profile with the current balance
	GetUser(ctx context.Context, input *GetUserInput) (*GetUserOutput, error)

	// GetCredits returns a user's balance
	GetCredits(ctx context.Context, input *GetCreditsInput) (*GetCreditsOutput, error)

	// ListEntries returns a user's ledger entries, newest first
	ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error)

	// SetAvailability toggles whether the user accepts bookings
	SetAvailability(ctx context.Context, input *SetAvailabilityInput) (*SetAvailabilityOutput, error)

	// ListAvailableMentors returns mentors accepting bookings, except the caller
	ListAvailableMentors(ctx context.Context, input *ListAvailableMentorsInput) (*ListAvailableMentorsOutput, error)
}
