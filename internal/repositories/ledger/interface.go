package ledger

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/mentorlink/internal/repositories/ledger Repository

import (
	"context"
)

// Repository holds credit balances and the entries that produced them.
// Every balance change is applied atomically per user together with its entry.
type Repository interface {
	// OpenAccount creates a zero balance for a user
	OpenAccount(ctx context.Context, input *OpenAccountInput) error

	// Debit subtracts credits, failing with ErrInsufficientFunds rather than going negative
	Debit(ctx context.Context, input *DebitInput) (*DebitOutput, error)

	// Credit adds credits
	Credit(ctx context.Context, input *CreditInput) (*CreditOutput, error)

	// GetBalance returns the current balance
	GetBalance(ctx context.Context, input *GetBalanceInput) (*GetBalanceOutput, error)

	// ListEntries returns a user's entries, newest first
	ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error)
}
