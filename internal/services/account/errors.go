package account

import (
	"errors"
	"fmt"

	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
)

// AccountError is a custom error type for account errors
type AccountError string

// Error implements the error interface
func (e AccountError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrValidation       AccountError = "invalid request"
	ErrEmailTaken       AccountError = "email already registered"
	ErrUserNotFound     AccountError = "user not found"
	ErrStorageFailure   AccountError = "storage failure"
	ErrNilConfig        AccountError = "config cannot be nil"
	ErrNilLedgerRepo    AccountError = "ledger repository cannot be nil"
	ErrNilUserRepo      AccountError = "user repository cannot be nil"
	ErrNilClock         AccountError = "clock cannot be nil"
	ErrNilUUIDGenerator AccountError = "UUID generator cannot be nil"
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func mapRepoError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userRepo.ErrUserNotFound), errors.Is(err, ledgerRepo.ErrAccountNotFound):
		return ErrUserNotFound
	case errors.Is(err, userRepo.ErrEmailTaken):
		return ErrEmailTaken
	default:
		return fmt.Errorf("%w: %s: %v", ErrStorageFailure, op, err)
	}
}
