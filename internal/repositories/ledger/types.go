package ledger

import (
	"errors"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
)

var (
	// ErrAccountNotFound is returned when the user has no ledger account
	ErrAccountNotFound = errors.New("ledger account not found")

	// ErrInsufficientFunds is returned when a debit would make the balance negative
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNothingToReverse is returned when a reversing credit finds no entry to undo
	ErrNothingToReverse = errors.New("no ledger entry to reverse")
)

// OpenAccountInput contains parameters for opening an account
type OpenAccountInput struct {
	UserID string
}

// DebitInput contains parameters for a debit.
// A debit with a SessionID is applied at most once per session and reason.
type DebitInput struct {
	UserID    string
	Amount    int64
	Reason    models.LedgerReason
	SessionID string
}

// DebitOutput contains the result of a debit
type DebitOutput struct {
	Balance int64
	Entry   *models.LedgerEntry

	// Replayed is set when the entry already existed and nothing changed
	Replayed bool
}

// CreditInput contains parameters for a credit.
// A credit with a SessionID is applied at most once per session and reason.
type CreditInput struct {
	UserID    string
	Amount    int64
	Reason    models.LedgerReason
	SessionID string

	// Reverses makes the credit conditional on the session already having
	// an entry with this reason, failing with ErrNothingToReverse otherwise
	Reverses models.LedgerReason
}

// CreditOutput contains the result of a credit
type CreditOutput struct {
	Balance int64
	Entry   *models.LedgerEntry

	// Replayed is set when the entry already existed and nothing changed
	Replayed bool
}

// GetBalanceInput contains parameters for reading a balance
type GetBalanceInput struct {
	UserID string
}

// GetBalanceOutput contains a user's balance
type GetBalanceOutput struct {
	Balance int64
}

// ListEntriesInput contains parameters for listing entries
type ListEntriesInput struct {
	UserID string

	// Limit caps the number of entries returned, 0 means all
	Limit int
}

// ListEntriesOutput contains a user's entries
type ListEntriesOutput struct {
	Entries []*models.LedgerEntry
}

func validateChange(userID string, amount int64) error {
	if userID == "" {
		return errors.New("user ID cannot be empty")
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateCredit(input *CreditInput) error {
	if err := validateChange(input.UserID, input.Amount); err != nil {
		return err
	}
	if input.Reverses != "" && input.SessionID == "" {
		return errors.New("a reversing credit needs a session ID")
	}
	return nil
}

func newEntry(clk clock.Clock, ids uuid.Generator, userID string, amount int64, reason models.LedgerReason, sessionID string) *models.LedgerEntry {
	return &models.LedgerEntry{
		ID:        ids.NewID(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		SessionID: sessionID,
		CreatedAt: clk.Now(),
	}
}
