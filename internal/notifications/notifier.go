// Package notifications announces mentorship session events to the
// participants. Delivery is best effort.
package notifications

//go:generate mockgen -package=mocks -destination=mocks/mock_notifier.go github.com/KirkDiggler/mentorlink/internal/notifications Notifier

import (
	"context"
	"errors"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
)

// Notifier delivers session events
type Notifier interface {
	// Notify announces that something happened to a session
	Notify(ctx context.Context, input *NotifyInput) error
}

// NotifyInput contains the event to announce
type NotifyInput struct {
	Event   messaging.EventKind
	Session *models.MentorshipSession
}

// Noop drops every event. Used when no delivery channel is configured.
type Noop struct{}

// NewNoop creates a notifier that does nothing
func NewNoop() *Noop {
	return &Noop{}
}

// Notify implements Notifier
func (n *Noop) Notify(ctx context.Context, input *NotifyInput) error {
	return nil
}

// Multi fans an event out to several notifiers
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a notifier that delivers to every non-nil notifier given
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Notify delivers to all notifiers and joins their errors
func (m *Multi) Notify(ctx context.Context, input *NotifyInput) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, input); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports how many notifiers receive events
func (m *Multi) Len() int {
	return len(m.notifiers)
}
