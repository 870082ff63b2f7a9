package rest

import (
	"context"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/services/account"
)

const unknownName = "Unknown"

type participantView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sessionView struct {
	SessionID     string               `json:"session_id"`
	Mentor        participantView      `json:"mentor"`
	Mentee        participantView      `json:"mentee"`
	ScheduledTime time.Time            `json:"scheduled_time"`
	Status        models.SessionStatus `json:"status"`
	Feedback      string               `json:"feedback,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type mentorView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bio  string `json:"bio"`
}

type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Bio       string    `json:"bio,omitempty"`
	Credits   int64     `json:"credits"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Bio:       u.Bio,
		Credits:   u.Credits,
		Available: u.Available,
		CreatedAt: u.CreatedAt,
	}
}

// sessionViews renders sessions with participant names, looking each user up once
func (h *Handler) sessionViews(ctx context.Context, sessions []*models.MentorshipSession) []sessionView {
	names := make(map[string]string)
	nameOf := func(userID string) string {
		if name, ok := names[userID]; ok {
			return name
		}
		name := unknownName
		out, err := h.account.GetUser(ctx, &account.GetUserInput{UserID: userID})
		if err == nil && out.User != nil {
			name = out.User.Name
		} else if err != nil {
			h.logger.Debug("participant lookup failed", "user_id", userID, "error", err)
		}
		names[userID] = name
		return name
	}

	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, sessionView{
			SessionID:     s.ID,
			Mentor:        participantView{ID: s.MentorID, Name: nameOf(s.MentorID)},
			Mentee:        participantView{ID: s.MenteeID, Name: nameOf(s.MenteeID)},
			ScheduledTime: s.ScheduledTime,
			Status:        s.Status,
			Feedback:      s.Feedback,
			CreatedAt:     s.CreatedAt,
		})
	}
	return views
}
