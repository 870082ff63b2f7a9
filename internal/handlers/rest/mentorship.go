package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/services/mentorship"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry a booking without paying twice
const IdempotencyKeyHeader = "Idempotency-Key"

// Layouts accepted for scheduled_time when no zone is given, read as UTC
var localTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseScheduledTime accepts RFC 3339 or a zone-less ISO timestamp
func parseScheduledTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), true
	}
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// queryInt reads an optional non-negative integer query parameter
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type bookReq struct {
	MentorID      string `json:"mentor_id" binding:"required"`
	ScheduledTime string `json:"scheduled_time" binding:"required"`
}

func (h *Handler) book(c *gin.Context) {
	var req bookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "mentor_id and scheduled_time are required")
		return
	}

	scheduled, ok := parseScheduledTime(req.ScheduledTime)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "invalid time format, use ISO 8601 (YYYY-MM-DDTHH:MM:SS)")
		return
	}

	out, err := h.mentorship.Book(c.Request.Context(), &mentorship.BookInput{
		MenteeID:       currentUserID(c),
		MentorID:       req.MentorID,
		ScheduledTime:  scheduled,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
		c.Header("Idempotent-Replayed", "true")
	}

	views := h.sessionViews(c.Request.Context(), []*models.MentorshipSession{out.Session})
	c.JSON(status, gin.H{
		"message": "Mentorship session booked successfully",
		"session": views[0],
		"credits": out.Credits,
	})
}

type transitionFunc func(ctx context.Context, input *mentorship.TransitionInput) (*mentorship.TransitionOutput, error)

// transition serves the accept, reject, cancel and complete routes
func (h *Handler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := currentUserID(c)
		out, err := fn(c.Request.Context(), &mentorship.TransitionInput{
			SessionID: c.Param("id"),
			ActorID:   actorID,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, transitionBody(actorID, out))
	}
}

type updateReq struct {
	Type string `json:"type"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Type) == "" {
		abortWithError(c, http.StatusBadRequest, "include the type of the update")
		return
	}

	target := models.SessionStatus(strings.ToLower(strings.TrimSpace(req.Type)))
	if target == "cancelled" {
		target = models.SessionStatusCanceled
	}

	actorID := currentUserID(c)
	out, err := h.mentorship.Update(c.Request.Context(), &mentorship.UpdateInput{
		SessionID: c.Param("id"),
		ActorID:   actorID,
		Type:      target,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, transitionBody(actorID, out))
}

// transitionBody reports the new status, and the caller's balance when the transition paid them
func transitionBody(actorID string, out *mentorship.TransitionOutput) gin.H {
	body := gin.H{
		"session_id": out.Session.ID,
		"status":     out.Session.Status,
	}
	if out.LedgerEntry != nil && out.LedgerEntry.UserID == actorID {
		body["credits"] = out.LedgerEntry.BalanceAfter
	}
	return body
}

type feedbackReq struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) submitFeedback(c *gin.Context) {
	var req feedbackReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "feedback is required")
		return
	}

	_, err := h.mentorship.SubmitFeedback(c.Request.Context(), &mentorship.SubmitFeedbackInput{
		SessionID: c.Param("id"),
		ActorID:   currentUserID(c),
		Feedback:  req.Feedback,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback submitted successfully"})
}

func (h *Handler) history(c *gin.Context) {
	out, err := h.mentorship.History(c.Request.Context(), &mentorship.HistoryInput{UserID: currentUserID(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentorship_history": h.sessionViews(c.Request.Context(), out.Sessions)})
}

func (h *Handler) upcoming(role models.SessionRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := h.mentorship.Upcoming(c.Request.Context(), &mentorship.UpcomingInput{
			UserID: currentUserID(c),
			Role:   role,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"upcoming_sessions": h.sessionViews(c.Request.Context(), out.Sessions)})
	}
}
