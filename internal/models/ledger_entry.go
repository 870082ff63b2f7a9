package models

import (
	"time"
)

// LedgerReason records why a balance changed
type LedgerReason string

const (
	// LedgerReasonInitialGrant is the starting balance of a new account
	LedgerReasonInitialGrant LedgerReason = "initial_grant"

	// LedgerReasonBooking is the mentee paying for a booking
	LedgerReasonBooking LedgerReason = "mentorship_booking"

	// LedgerReasonBookingReversal undoes a booking debit whose session was never stored
	LedgerReasonBookingReversal LedgerReason = "mentorship_booking_reversal"

	// LedgerReasonRefund returns the booking cost after a cancellation
	LedgerReasonRefund LedgerReason = "mentorship_refund"

	// LedgerReasonCompleted is the mentor's payout for a completed session
	LedgerReasonCompleted LedgerReason = "mentorship_completed"
)

// LedgerEntry records a single balance delta for a user
type LedgerEntry struct {
	// ID is the unique identifier for the entry
	ID string `json:"id"`

	// UserID is the account whose balance changed
	UserID string `json:"user_id"`

	// Amount is the signed delta, negative for debits
	Amount int64 `json:"amount"`

	// Reason is why the balance changed
	Reason LedgerReason `json:"reason"`

	// SessionID is the mentorship session the entry belongs to, if any
	SessionID string `json:"session_id,omitempty"`

	// BalanceAfter is the balance once the entry was applied
	BalanceAfter int64 `json:"balance_after"`

	// CreatedAt is when the entry was written
	CreatedAt time.Time `json:"created_at"`
}
