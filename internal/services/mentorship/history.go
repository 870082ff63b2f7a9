package mentorship

import (
	"context"
	"sort"
	"strings"

	"github.com/KirkDiggler/mentorlink/internal/models"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
)

// SubmitFeedback attaches the mentee's feedback to a completed session
func (s *service) SubmitFeedback(ctx context.Context, input *SubmitFeedbackInput) (*SubmitFeedbackOutput, error) {
	if input == nil || input.SessionID == "" || input.ActorID == "" {
		return nil, validationError("session ID and actor ID are required")
	}

	feedback := strings.TrimSpace(input.Feedback)
	if feedback == "" {
		return nil, validationError("feedback cannot be empty")
	}
	if len(feedback) > MaxFeedbackLength {
		return nil, validationError("feedback is longer than %d bytes", MaxFeedbackLength)
	}

	session, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, mapRepoError("get session", err)
	}

	if session.MenteeID != input.ActorID || session.Status != models.SessionStatusCompleted {
		return nil, ErrForbidden
	}

	now := s.clock.Now()
	err = s.sessionRepo.SetFeedback(ctx, &sessionRepo.SetFeedbackInput{
		SessionID: session.ID,
		Feedback:  feedback,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, mapRepoError("set feedback", err)
	}

	session.Feedback = feedback
	session.UpdatedAt = now

	return &SubmitFeedbackOutput{
		Session: session,
	}, nil
}

// History returns a user's canceled and completed sessions, newest first
func (s *service) History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}

	output, err := s.sessionRepo.ListSessionsForUser(ctx, &sessionRepo.ListSessionsForUserInput{
		UserID:   input.UserID,
		Statuses: []models.SessionStatus{models.SessionStatusCanceled, models.SessionStatusCompleted},
	})
	if err != nil {
		return nil, mapRepoError("list history", err)
	}

	sessions := output.Sessions
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].ScheduledTime.Equal(sessions[j].ScheduledTime) {
			return sessions[i].ScheduledTime.After(sessions[j].ScheduledTime)
		}
		return sessions[i].ID > sessions[j].ID
	})

	return &HistoryOutput{
		Sessions: sessions,
	}, nil
}

// Upcoming returns a user's pending and scheduled sessions in one role, soonest first
func (s *service) Upcoming(ctx context.Context, input *UpcomingInput) (*UpcomingOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, validationError("user ID is required")
	}
	if input.Role != models.SessionRoleMentor && input.Role != models.SessionRoleMentee {
		return nil, validationError("role must be %q or %q", models.SessionRoleMentor, models.SessionRoleMentee)
	}

	output, err := s.sessionRepo.ListSessionsForUser(ctx, &sessionRepo.ListSessionsForUserInput{
		UserID:   input.UserID,
		Role:     input.Role,
		Statuses: []models.SessionStatus{models.SessionStatusPending, models.SessionStatusScheduled},
	})
	if err != nil {
		return nil, mapRepoError("list upcoming", err)
	}

	sessions := output.Sessions
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].ScheduledTime.Equal(sessions[j].ScheduledTime) {
			return sessions[i].ScheduledTime.Before(sessions[j].ScheduledTime)
		}
		return sessions[i].ID < sessions[j].ID
	})

	return &UpcomingOutput{
		Sessions: sessions,
	}, nil
}
