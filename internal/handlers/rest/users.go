package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/services/account"
	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Bio       string `json:"bio"`
	Available bool   `json:"available"`
}

// register creates an account and signs the caller in
func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "name and email are required")
		return
	}

	out, err := h.account.Register(c.Request.Context(), &account.RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Bio:       req.Bio,
		Available: req.Available,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.IssueToken(out.User.ID)
	if err != nil {
		writeError(c, fmt.Errorf("issue token: %w", err))
		return
	}
	h.setSessionCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{
		"user":  toUserView(out.User),
		"token": token,
	})
}

func (h *Handler) me(c *gin.Context) {
	out, err := h.account.GetUser(c.Request.Context(), &account.GetUserInput{UserID: currentUserID(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserView(out.User)})
}

func (h *Handler) availableMentors(c *gin.Context) {
	out, err := h.account.ListAvailableMentors(c.Request.Context(), &account.ListAvailableMentorsInput{
		CallerID: currentUserID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	mentors := make([]mentorView, 0, len(out.Mentors))
	for _, m := range out.Mentors {
		mentors = append(mentors, mentorView{ID: m.ID, Name: m.Name, Bio: m.Bio})
	}
	c.JSON(http.StatusOK, gin.H{"mentors": mentors})
}

type availabilityReq struct {
	Availability json.RawMessage `json:"availability"`
}

// parseAvailability accepts "yes"/"no" strings as well as JSON booleans
func parseAvailability(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return true, true
	case "no", "false":
		return false, true
	}
	return false, false
}

func (h *Handler) setAvailability(c *gin.Context) {
	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "availability status is required")
		return
	}

	available, ok := parseAvailability(req.Availability)
	if !ok {
		abortWithError(c, http.StatusBadRequest, `availability must be "yes" or "no"`)
		return
	}

	out, err := h.account.SetAvailability(c.Request.Context(), &account.SetAvailabilityInput{
		UserID:    currentUserID(c),
		Available: available,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"available": out.Available,
	})
}

func (h *Handler) credits(c *gin.Context) {
	out, err := h.account.GetCredits(c.Request.Context(), &account.GetCreditsInput{UserID: currentUserID(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": out.Credits})
}

func (h *Handler) entries(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		abortWithError(c, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	out, err := h.account.ListEntries(c.Request.Context(), &account.ListEntriesInput{
		UserID: currentUserID(c),
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	entries := out.Entries
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
