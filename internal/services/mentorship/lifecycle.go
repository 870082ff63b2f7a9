package mentorship

import (
	"context"
	"errors"

	"github.com/KirkDiggler/mentorlink/internal/models"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
)

// settlementAttempts bounds the ledger writes tried for one settlement
const settlementAttempts = 3

// transition describes one edge of the session state machine
type transition struct {
	name       string
	mentorOnly bool
	from       []models.SessionStatus
	to         models.SessionStatus
	event      messaging.EventKind
}

var (
	acceptTransition = transition{
		name:       "accept",
		mentorOnly: true,
		from:       []models.SessionStatus{models.SessionStatusPending},
		to:         models.SessionStatusScheduled,
		event:      messaging.EventApproved,
	}
	rejectTransition = transition{
		name:       "reject",
		mentorOnly: true,
		from:       []models.SessionStatus{models.SessionStatusPending},
		to:         models.SessionStatusCanceled,
		event:      messaging.EventCanceled,
	}
	cancelTransition = transition{
		name:  "cancel",
		from:  []models.SessionStatus{models.SessionStatusPending, models.SessionStatusScheduled},
		to:    models.SessionStatusCanceled,
		event: messaging.EventCanceled,
	}
	completeTransition = transition{
		name:       "complete",
		mentorOnly: true,
		from:       []models.SessionStatus{models.SessionStatusScheduled},
		to:         models.SessionStatusCompleted,
		event:      messaging.EventCompleted,
	}
)

// Accept lets the mentor confirm a pending session
func (s *service) Accept(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
	return s.apply(ctx, input, acceptTransition)
}

// Reject lets the mentor decline a pending session
func (s *service) Reject(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
	return s.apply(ctx, input, rejectTransition)
}

// Cancel lets either participant call off a session that has not happened
func (s *service) Cancel(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
	return s.apply(ctx, input, cancelTransition)
}

// Complete lets the mentor mark a scheduled session as done and get paid
func (s *service) Complete(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
	return s.apply(ctx, input, completeTransition)
}

// Update accepts or rejects a pending session by target status
func (s *service) Update(ctx context.Context, input *UpdateInput) (*TransitionOutput, error) {
	if input == nil {
		return nil, validationError("input cannot be nil")
	}

	transitionInput := &TransitionInput{
		SessionID: input.SessionID,
		ActorID:   input.ActorID,
	}

	switch input.Type {
	case models.SessionStatusScheduled:
		return s.Accept(ctx, transitionInput)
	case models.SessionStatusCanceled:
		return s.Reject(ctx, transitionInput)
	default:
		return nil, validationError("update type must be %q or %q, got %q",
			models.SessionStatusScheduled, models.SessionStatusCanceled, input.Type)
	}
}

// apply authorizes the actor, swaps the status and runs the winner's side effects
func (s *service) apply(ctx context.Context, input *TransitionInput, t transition) (*TransitionOutput, error) {
	if input == nil || input.SessionID == "" || input.ActorID == "" {
		return nil, validationError("session ID and actor ID are required")
	}

	session, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, mapRepoError("get session", err)
	}

	role := session.RoleOf(input.ActorID)
	if role == "" || (t.mentorOnly && role != models.SessionRoleMentor) {
		return nil, ErrForbidden
	}

	from := session.Status
	if !allowedFrom(t, from) {
		return nil, ErrConflict
	}

	now := s.clock.Now()
	err = s.sessionRepo.UpdateStatus(ctx, &sessionRepo.UpdateStatusInput{
		SessionID: session.ID,
		From:      from,
		To:        t.to,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, mapRepoError(t.name+" session", err)
	}

	// Only the caller whose swap succeeded gets here. The new status stands
	// whatever happens to the settlement.
	entry, err := s.settle(ctx, session, t)
	if err != nil {
		s.logger.Error("session settlement failed after status change",
			"reconciliation_required", true,
			"session_id", session.ID,
			"action", t.name,
			"status", t.to,
			"error", err)
		return nil, storageError(t.name+" settlement", err)
	}

	session.Status = t.to
	session.UpdatedAt = now

	s.logger.Info("mentorship session transitioned",
		"session_id", session.ID,
		"action", t.name,
		"actor_id", input.ActorID,
		"from", from,
		"to", t.to)

	s.notify(ctx, t.event, session)

	return &TransitionOutput{
		Session:     session,
		LedgerEntry: entry,
	}, nil
}

func allowedFrom(t transition, status models.SessionStatus) bool {
	if !status.CanTransitionTo(t.to) {
		return false
	}
	for _, from := range t.from {
		if from == status {
			return true
		}
	}
	return false
}

// settle pays the mentor on completion and refunds the mentee on cancellation.
// The ledger applies each session's payout or refund at most once, so a write
// that failed ambiguously is retried as is.
func (s *service) settle(ctx context.Context, session *models.MentorshipSession, t transition) (*models.LedgerEntry, error) {
	var input *ledgerRepo.CreditInput
	switch {
	case t.to == models.SessionStatusCompleted:
		input = &ledgerRepo.CreditInput{
			UserID:    session.MentorID,
			Amount:    s.mentorPayout,
			Reason:    models.LedgerReasonCompleted,
			SessionID: session.ID,
		}
	case t.to == models.SessionStatusCanceled && s.refundOnCancel:
		input = &ledgerRepo.CreditInput{
			UserID:    session.MenteeID,
			Amount:    s.bookingCost,
			Reason:    models.LedgerReasonRefund,
			SessionID: session.ID,
		}
	default:
		return nil, nil
	}

	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= settlementAttempts; attempt++ {
		var output *ledgerRepo.CreditOutput
		output, err = s.ledgerRepo.Credit(ctx, input)
		if err == nil {
			return output.Entry, nil
		}
		if errors.Is(err, ledgerRepo.ErrAccountNotFound) || errors.Is(err, ledgerRepo.ErrInvalidAmount) {
			return nil, err
		}

		s.logger.Warn("settlement attempt failed",
			"session_id", session.ID,
			"reason", input.Reason,
			"attempt", attempt,
			"error", err)
	}

	return nil, err
}
