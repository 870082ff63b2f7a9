package user

import (
	"errors"
	"sort"
	"strings"

	"github.com/KirkDiggler/mentorlink/internal/models"
)

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when a user ID is already taken
	ErrUserExists = errors.New("user already exists")

	// ErrEmailTaken is returned when another user registered the email
	ErrEmailTaken = errors.New("email already registered")
)

// CreateUserInput contains parameters for creating a user
type CreateUserInput struct {
	User *models.User
}

// GetUserInput contains parameters for retrieving a user
type GetUserInput struct {
	UserID string
}

// SetAvailabilityInput contains parameters for updating availability
type SetAvailabilityInput struct {
	UserID    string
	Available bool
}

// ListAvailableMentorsInput contains parameters for listing mentors
type ListAvailableMentorsInput struct {
	// ExcludeUserID is left out of the result, usually the caller
	ExcludeUserID string
}

// ListAvailableMentorsOutput contains the available mentors ordered by name
type ListAvailableMentorsOutput struct {
	Mentors []*models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUser(u *models.User) error {
	switch {
	case u == nil:
		return errors.New("user cannot be nil")
	case u.ID == "":
		return errors.New("user ID cannot be empty")
	case u.Name == "":
		return errors.New("user name cannot be empty")
	case normalizeEmail(u.Email) == "":
		return errors.New("user email cannot be empty")
	}
	return nil
}

func sortMentors(mentors []*models.User) {
	sort.Slice(mentors, func(i, j int) bool {
		if mentors[i].Name != mentors[j].Name {
			return mentors[i].Name < mentors[j].Name
		}
		return mentors[i].ID < mentors[j].ID
	})
}
