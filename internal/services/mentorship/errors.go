package mentorship

import (
	"errors"
	"fmt"

	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
)

// MentorshipError is a custom error type for mentorship errors
type MentorshipError string

// Error implements the error interface
func (e MentorshipError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrValidation          MentorshipError = "invalid request"
	ErrInvalidMentor       MentorshipError = "invalid mentor"
	ErrInvalidTime         MentorshipError = "scheduled time is in the past"
	ErrInsufficientCredits MentorshipError = "insufficient credits"
	ErrForbidden           MentorshipError = "action not allowed for this user"
	ErrSessionNotFound     MentorshipError = "mentorship session not found"
	ErrUserNotFound        MentorshipError = "user not found"
	ErrConflict            MentorshipError = "mentorship session is not in a valid state for this action"
	ErrStorageFailure      MentorshipError = "storage failure"
	ErrNilConfig           MentorshipError = "config cannot be nil"
	ErrNilLedgerRepo       MentorshipError = "ledger repository cannot be nil"
	ErrNilSessionRepo      MentorshipError = "session repository cannot be nil"
	ErrNilUserRepo         MentorshipError = "user repository cannot be nil"
	ErrNilClock            MentorshipError = "clock cannot be nil"
	ErrNilUUIDGenerator    MentorshipError = "UUID generator cannot be nil"
)

// validationError keeps ErrValidation matchable while saying what was wrong
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storageError wraps an unexpected repository failure
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageFailure, op, err)
}

// mapRepoError translates repository sentinels into service errors
func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sessionRepo.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, sessionRepo.ErrStatusConflict), errors.Is(err, sessionRepo.ErrFeedbackExists):
		return ErrConflict
	case errors.Is(err, ledgerRepo.ErrInsufficientFunds):
		return ErrInsufficientCredits
	case errors.Is(err, ledgerRepo.ErrAccountNotFound), errors.Is(err, userRepo.ErrUserNotFound):
		return ErrUserNotFound
	default:
		return storageError(op, err)
	}
}

// IsClientError reports whether err is caused by the request rather than the system
func IsClientError(err error) bool {
	var mentorshipErr MentorshipError
	return errors.As(err, &mentorshipErr) && mentorshipErr != ErrStorageFailure
}
