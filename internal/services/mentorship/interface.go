package mentorship

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/mentorlink/internal/services/mentorship Service

import "context"

// Service defines the interface for mentorship operations
type Service interface {
	// Book charges the mentee and creates a session with the mentor
	Book(ctx context.Context, input *BookInput) (*BookOutput, error)

	// Accept lets the mentor confirm a pending session
	Accept(ctx context.Context, input *TransitionInput) (*TransitionOutput, error)

	// Reject lets the mentor decline a pending session
	Reject(ctx context.Context, input *TransitionInput) (*TransitionOutput, error)

	// Cancel lets either participant call off a session that has not happened
	Cancel(ctx context.Context, input *TransitionInput) (*TransitionOutput, error)

	// Complete lets the mentor mark a scheduled session as done and get paid
	Complete(ctx context.Context, input *TransitionInput) (*TransitionOutput, error)

	// Update accepts or rejects a pending session by target status
	Update(ctx context.Context, input *UpdateInput) (*TransitionOutput, error)

	// SubmitFeedback attaches the mentee's feedback to a completed session
	SubmitFeedback(ctx context.Context, input *SubmitFeedbackInput) (*SubmitFeedbackOutput, error)

	// History returns a user's finished sessions, newest first
	History(ctx context.Context, input *HistoryInput) (*HistoryOutput, error)

	// Upcoming returns a user's open sessions in one role, soonest first
	Upcoming(ctx context.Context, input *UpcomingInput) (*UpcomingOutput, error)
}
