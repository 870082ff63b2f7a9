package messaging

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// scheduleLayout is how session times appear in messages
const scheduleLayout = "Mon Jan 2 2006, 15:04 MST"

// service implements the Service interface
type service struct {
	// Random number generator for selecting random messages
	mu   sync.Mutex
	rand *rand.Rand
}

// NewService creates a new messaging service
func NewService(config *ServiceConfig) (Service, error) {
	var r *rand.Rand
	if config != nil {
		r = config.Rand
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &service{
		rand: r,
	}, nil
}

// GetSessionEventMessage returns the announcement for a mentorship session event
func (s *service) GetSessionEventMessage(ctx context.Context, input *GetSessionEventMessageInput) (*GetSessionEventMessageOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if !input.Event.IsValid() {
		return nil, fmt.Errorf("unknown session event: %s", input.Event)
	}

	mentor := displayName(input.MentorName, "your mentor")
	mentee := displayName(input.MenteeName, "a mentee")
	when := input.ScheduledTime.UTC().Format(scheduleLayout)

	var title string
	var messages []string
	tone := input.Tone

	switch input.Event {
	case EventRequested:
		title = "New mentorship request"
		messages = []string{
			fmt.Sprintf("%s would like a session with %s on %s.", mentee, mentor, when),
			fmt.Sprintf("%s asked %s for a session on %s. Accept or reject it from your requests.", mentee, mentor, when),
			fmt.Sprintf("Heads up %s: %s booked a slot on %s.", mentor, mentee, when),
		}
		if tone == "" {
			tone = ToneNeutral
		}
	case EventApproved:
		title = "Mentorship session confirmed"
		messages = []string{
			fmt.Sprintf("%s accepted the session with %s on %s.", mentor, mentee, when),
			fmt.Sprintf("It's on! %s and %s meet on %s.", mentor, mentee, when),
			fmt.Sprintf("Good news %s, %s confirmed your session on %s.", mentee, mentor, when),
		}
		if tone == "" {
			tone = ToneEncouraging
		}
	case EventCanceled:
		title = "Mentorship session canceled"
		messages = []string{
			fmt.Sprintf("The session between %s and %s on %s was canceled.", mentor, mentee, when),
			fmt.Sprintf("%s and %s won't be meeting on %s after all.", mentor, mentee, when),
		}
		if tone == "" {
			tone = ToneNeutral
		}
	case EventCompleted:
		title = "Mentorship session completed"
		messages = []string{
			fmt.Sprintf("%s wrapped up a session with %s. Credits are on their way to %s.", mentor, mentee, mentor),
			fmt.Sprintf("Another one done! %s finished mentoring %s.", mentor, mentee),
			fmt.Sprintf("Session complete. %s, don't forget to leave feedback for %s.", mentee, mentor),
		}
		if tone == "" {
			tone = ToneCelebration
		}
	}

	return &GetSessionEventMessageOutput{
		Title:   title,
		Message: s.pick(messages),
		Tone:    tone,
	}, nil
}

func (s *service) pick(messages []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return messages[s.rand.Intn(len(messages))]
}

func displayName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
