package models

import (
	"time"
)

// User represents a marketplace member who can book or offer mentorship
type User struct {
	// ID is the unique identifier for the user
	ID string `json:"id"`

	// Name is the display name of the user
	Name string `json:"name"`

	// Email is where booking notifications are addressed
	Email string `json:"email"`

	// Bio is the free-form profile text shown to mentees
	Bio string `json:"bio,omitempty"`

	// Credits is the user's current balance, only changed through the ledger
	Credits int64 `json:"credits"`

	// Available indicates the user accepts mentorship bookings
	Available bool `json:"available"`

	// CreatedAt is when the user was registered
	CreatedAt time.Time `json:"created_at"`
}
