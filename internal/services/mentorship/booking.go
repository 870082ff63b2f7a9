package mentorship

import (
	"context"
	"errors"
	"strings"

	"github.com/KirkDiggler/mentorlink/internal/models"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
)

// Book charges the mentee and creates a session with the mentor
func (s *service) Book(ctx context.Context, input *BookInput) (*BookOutput, error) {
	if input == nil {
		return nil, validationError("input cannot be nil")
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	switch {
	case input.MenteeID == "":
		return nil, validationError("mentee ID is required")
	case input.MentorID == "":
		return nil, validationError("mentor ID is required")
	case input.ScheduledTime.IsZero():
		return nil, validationError("scheduled time is required")
	case len(key) > MaxIdempotencyKeyLength:
		return nil, validationError("idempotency key is too long")
	}

	if key != "" {
		output, err := s.replay(ctx, input, key)
		if err != nil || output != nil {
			return output, err
		}
	}

	if input.MenteeID == input.MentorID {
		return nil, ErrInvalidMentor
	}

	now := s.clock.Now()
	if input.ScheduledTime.Before(now) {
		return nil, ErrInvalidTime
	}

	if _, err := s.userRepo.GetUser(ctx, &userRepo.GetUserInput{UserID: input.MenteeID}); err != nil {
		return nil, mapRepoError("get mentee", err)
	}

	mentor, err := s.userRepo.GetUser(ctx, &userRepo.GetUserInput{UserID: input.MentorID})
	if err != nil {
		return nil, mapRepoError("get mentor", err)
	}
	if !mentor.Available {
		return nil, ErrInvalidMentor
	}

	sessionID := s.uuidGenerator.NewID()

	debit, err := s.ledgerRepo.Debit(ctx, &ledgerRepo.DebitInput{
		UserID:    input.MenteeID,
		Amount:    s.bookingCost,
		Reason:    models.LedgerReasonBooking,
		SessionID: sessionID,
	})
	if err != nil {
		// A retry may find the balance already spent by its own first attempt
		if key != "" && errors.Is(err, ledgerRepo.ErrInsufficientFunds) {
			output, replayErr := s.replay(ctx, input, key)
			if replayErr != nil || output != nil {
				return output, replayErr
			}
		}
		if !isLedgerRejection(err) {
			// The debit may have been applied before the error; undo it if so
			s.reverseBooking(ctx, input.MenteeID, sessionID)
		}
		return nil, mapRepoError("debit booking cost", err)
	}

	status := models.SessionStatusPending
	if s.autoAccept {
		status = models.SessionStatusScheduled
	}

	session := &models.MentorshipSession{
		ID:             sessionID,
		MentorID:       input.MentorID,
		MenteeID:       input.MenteeID,
		ScheduledTime:  input.ScheduledTime.UTC(),
		Status:         status,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = s.sessionRepo.CreateSession(ctx, &sessionRepo.CreateSessionInput{
		Session: session,
	})
	if err != nil && !errors.Is(err, sessionRepo.ErrDuplicateIdempotencyKey) && !errors.Is(err, sessionRepo.ErrSessionExists) {
		stored, lookupErr := s.sessionStored(ctx, session)
		switch {
		case lookupErr != nil:
			s.logger.Error("booking debited but session state is unknown",
				"reconciliation_required", true,
				"session_id", session.ID,
				"mentee_id", session.MenteeID,
				"create_error", err,
				"error", lookupErr)
			return nil, storageError("create session", err)
		case stored:
			// The write landed even though the call failed
			err = nil
		}
	}
	if err != nil {
		reversal, reverseErr := s.reverseBooking(ctx, session.MenteeID, session.ID)
		if reverseErr != nil {
			return nil, storageError("reverse booking debit", reverseErr)
		}

		// A concurrent request with the same key got there first
		if key != "" && errors.Is(err, sessionRepo.ErrDuplicateIdempotencyKey) {
			existing, findErr := s.sessionRepo.FindByIdempotencyKey(ctx, &sessionRepo.FindByIdempotencyKeyInput{
				MenteeID: input.MenteeID,
				Key:      key,
			})
			if findErr != nil {
				return nil, mapRepoError("find idempotent booking", findErr)
			}
			if !samePayload(existing, input) {
				return nil, ErrConflict
			}
			return &BookOutput{
				Session:  existing,
				Credits:  reversal.Balance,
				Replayed: true,
			}, nil
		}

		return nil, storageError("create session", err)
	}

	s.logger.Info("mentorship session booked",
		"session_id", session.ID,
		"mentor_id", session.MentorID,
		"mentee_id", session.MenteeID,
		"status", session.Status,
		"balance", debit.Balance)

	event := messaging.EventRequested
	if status == models.SessionStatusScheduled {
		event = messaging.EventApproved
	}
	s.notify(ctx, event, session)

	return &BookOutput{
		Session: session,
		Credits: debit.Balance,
	}, nil
}

// replay returns the earlier booking for the key, or nil when there is none.
// A key reused for a different booking is a conflict.
func (s *service) replay(ctx context.Context, input *BookInput, key string) (*BookOutput, error) {
	existing, err := s.sessionRepo.FindByIdempotencyKey(ctx, &sessionRepo.FindByIdempotencyKeyInput{
		MenteeID: input.MenteeID,
		Key:      key,
	})
	if errors.Is(err, sessionRepo.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find idempotent booking", err)
	}

	if !samePayload(existing, input) {
		return nil, ErrConflict
	}

	balance, err := s.ledgerRepo.GetBalance(ctx, &ledgerRepo.GetBalanceInput{UserID: input.MenteeID})
	if err != nil {
		return nil, mapRepoError("get balance", err)
	}

	return &BookOutput{
		Session:  existing,
		Credits:  balance.Balance,
		Replayed: true,
	}, nil
}

func samePayload(existing *models.MentorshipSession, input *BookInput) bool {
	return existing.MentorID == input.MentorID && existing.ScheduledTime.Equal(input.ScheduledTime)
}

// isLedgerRejection reports a debit the ledger refused without changing anything
func isLedgerRejection(err error) bool {
	return errors.Is(err, ledgerRepo.ErrInsufficientFunds) ||
		errors.Is(err, ledgerRepo.ErrAccountNotFound) ||
		errors.Is(err, ledgerRepo.ErrInvalidAmount)
}

// sessionStored checks whether a session write that reported an error was kept
func (s *service) sessionStored(ctx context.Context, session *models.MentorshipSession) (bool, error) {
	stored, err := s.sessionRepo.GetSession(context.WithoutCancel(ctx), &sessionRepo.GetSessionInput{
		SessionID: session.ID,
	})
	if errors.Is(err, sessionRepo.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored.MenteeID == session.MenteeID && stored.MentorID == session.MentorID, nil
}

// reverseBooking credits back the booking debit of a session that was never
// stored. The credit only applies if the debit did, and at most once.
// It runs detached from the caller's cancellation.
func (s *service) reverseBooking(ctx context.Context, menteeID, sessionID string) (*ledgerRepo.CreditOutput, error) {
	reversal, err := s.ledgerRepo.Credit(context.WithoutCancel(ctx), &ledgerRepo.CreditInput{
		UserID:    menteeID,
		Amount:    s.bookingCost,
		Reason:    models.LedgerReasonBookingReversal,
		SessionID: sessionID,
		Reverses:  models.LedgerReasonBooking,
	})
	if errors.Is(err, ledgerRepo.ErrNothingToReverse) {
		s.logger.Info("booking debit was never applied",
			"session_id", sessionID,
			"mentee_id", menteeID)
		return nil, err
	}
	if err != nil {
		s.logger.Error("failed to reverse booking debit",
			"reconciliation_required", true,
			"session_id", sessionID,
			"mentee_id", menteeID,
			"amount", s.bookingCost,
			"error", err)
		return nil, err
	}

	s.logger.Warn("reversed booking debit",
		"session_id", sessionID,
		"mentee_id", menteeID,
		"balance", reversal.Balance)

	return reversal, nil
}
