package messaging

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/mentorlink/internal/services/messaging Service

import "context"

// Service is the interface for the messaging service
type Service interface {
	// GetSessionEventMessage returns the announcement for a mentorship session event
	GetSessionEventMessage(ctx context.Context, input *GetSessionEventMessageInput) (*GetSessionEventMessageOutput, error)
}
