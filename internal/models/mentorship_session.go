package models

import (
	"time"
)

// SessionStatus represents the lifecycle state of a mentorship session
type SessionStatus string

const (
	// SessionStatusPending indicates a booking waiting for the mentor's answer
	SessionStatusPending SessionStatus = "pending"

	// SessionStatusScheduled indicates the mentor accepted the booking
	SessionStatusScheduled SessionStatus = "scheduled"

	// SessionStatusCanceled indicates the session was rejected or canceled
	SessionStatusCanceled SessionStatus = "canceled"

	// SessionStatusCompleted indicates the session took place and was paid out
	SessionStatusCompleted SessionStatus = "completed"
)

// IsTerminal reports whether no further transitions are possible
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCanceled || s == SessionStatusCompleted
}

// IsUpcoming reports whether the session still lies ahead
func (s SessionStatus) IsUpcoming() bool {
	return s == SessionStatusPending || s == SessionStatusScheduled
}

// IsValid reports whether s is a known status
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusScheduled, SessionStatusCanceled, SessionStatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine has an edge from s to next
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusPending:
		return next == SessionStatusScheduled || next == SessionStatusCanceled
	case SessionStatusScheduled:
		return next == SessionStatusCanceled || next == SessionStatusCompleted
	}
	return false
}

// SessionRole selects which side of a session a user is on
type SessionRole string

const (
	// SessionRoleMentor is the user giving the session
	SessionRoleMentor SessionRole = "mentor"

	// SessionRoleMentee is the user who booked the session
	SessionRoleMentee SessionRole = "mentee"
)

// MentorshipSession is one booking between a mentor and a mentee
type MentorshipSession struct {
	// ID is the unique identifier for the session
	ID string `json:"session_id"`

	// MentorID is the user giving the session
	MentorID string `json:"mentor_id"`

	// MenteeID is the user who booked and paid for the session
	MenteeID string `json:"mentee_id"`

	// ScheduledTime is when the session takes place
	ScheduledTime time.Time `json:"scheduled_time"`

	// Status is the current lifecycle state
	Status SessionStatus `json:"status"`

	// Feedback is the mentee's review, set once after completion
	Feedback string `json:"feedback,omitempty"`

	// EventID references the session in an external calendar
	EventID string `json:"event_id,omitempty"`

	// IdempotencyKey is the client-supplied key the booking was made with
	IdempotencyKey string `json:"-"`

	// CreatedAt is when the booking was made
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the session last changed
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleOf returns the role userID plays in the session, or "" if none
func (s *MentorshipSession) RoleOf(userID string) SessionRole {
	switch userID {
	case s.MentorID:
		return SessionRoleMentor
	case s.MenteeID:
		return SessionRoleMentee
	}
	return ""
}
