package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const currentUserKey = "currentUserID"

// Claims is the JWT payload of a session token
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for userID
func (h *Handler) IssueToken(userID string) (string, error) {
	now := h.clock.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// ParseToken verifies a session token and returns its claims
func (h *Handler) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.clock.Now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// authMiddleware resolves the caller from the session cookie or a bearer token
func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenStr string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenStr = strings.TrimSpace(parts[1])
			}
		}

		if tokenStr == "" {
			if cookie, err := c.Cookie(h.cookieName); err == nil {
				tokenStr = cookie
			}
		}

		if tokenStr == "" {
			abortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := h.ParseToken(tokenStr)
		if err != nil {
			msg := "invalid session"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "session expired, please sign in again"
			}
			abortWithError(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(currentUserKey, claims.UserID)
		c.Next()
	}
}

// currentUserID returns the caller set by authMiddleware
func currentUserID(c *gin.Context) string {
	return c.GetString(currentUserKey)
}

// setSessionCookie stores the token in an HTTP-only cookie
func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, token, int(h.tokenTTL.Seconds()), "/", "", h.cookieSecure, true)
}
