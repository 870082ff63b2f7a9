package rest

import (
	"errors"
	"net/http"

	"github.com/KirkDiggler/mentorlink/internal/services/account"
	"github.com/KirkDiggler/mentorlink/internal/services/mentorship"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, mentorship.ErrValidation),
		errors.Is(err, mentorship.ErrInvalidMentor),
		errors.Is(err, mentorship.ErrInvalidTime),
		errors.Is(err, account.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, mentorship.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, mentorship.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, mentorship.ErrSessionNotFound),
		errors.Is(err, mentorship.ErrUserNotFound),
		errors.Is(err, account.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, mentorship.ErrConflict),
		errors.Is(err, account.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": msg}, hiding details of server failures
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	abortWithError(c, status, msg)
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
