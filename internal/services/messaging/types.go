package messaging

import (
	"math/rand"
	"time"
)

// EventKind represents what happened to a mentorship session
type EventKind string

const (
	// EventRequested is sent when a mentee books a session
	EventRequested EventKind = "requested"

	// EventApproved is sent when the mentor accepts a booking
	EventApproved EventKind = "approved"

	// EventCanceled is sent when either side cancels or the mentor rejects
	EventCanceled EventKind = "canceled"

	// EventCompleted is sent when the mentor marks the session as done
	EventCompleted EventKind = "completed"
)

// IsValid returns true if the event kind is known
func (k EventKind) IsValid() bool {
	switch k {
	case EventRequested, EventApproved, EventCanceled, EventCompleted:
		return true
	}
	return false
}

// MessageTone represents the tone of a message
type MessageTone string

const (
	// ToneNeutral is a neutral tone
	ToneNeutral MessageTone = "neutral"

	// ToneEncouraging is an encouraging tone
	ToneEncouraging MessageTone = "encouraging"

	// ToneCelebration is a celebratory tone
	ToneCelebration MessageTone = "celebration"
)

// ServiceConfig holds configuration for the messaging service
type ServiceConfig struct {
	// Rand picks between message variants, seeded from the clock when nil
	Rand *rand.Rand
}

// GetSessionEventMessageInput contains parameters for rendering an event
type GetSessionEventMessageInput struct {
	Event EventKind

	MentorName string
	MenteeName string

	// ScheduledTime is when the session takes place
	ScheduledTime time.Time

	// Tone is the preferred tone (optional)
	Tone MessageTone
}

// GetSessionEventMessageOutput contains the rendered event
type GetSessionEventMessageOutput struct {
	Title   string
	Message string
	Tone    MessageTone
}
