package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/KirkDiggler/mentorlink/internal/services/account"
	"github.com/KirkDiggler/mentorlink/internal/services/mentorship"
	"github.com/gin-gonic/gin"
)

const defaultCookieName = "session"

// Config holds the configuration for the REST API
type Config struct {
	// JWTSecret signs and verifies session tokens
	JWTSecret string

	// TokenTTL is how long an issued token stays valid
	TokenTTL time.Duration

	// CookieName is the cookie carrying the session token
	CookieName string

	// CookieSecure marks the session cookie HTTPS-only
	CookieSecure bool

	// Debug switches gin into debug mode
	Debug bool

	MentorshipService mentorship.Service
	AccountService    account.Service
	Clock             clock.Clock
	Logger            *slog.Logger
}

// Handler serves the mentorship API over HTTP
type Handler struct {
	secret       []byte
	tokenTTL     time.Duration
	cookieName   string
	cookieSecure bool
	debug        bool

	mentorship mentorship.Service
	account    account.Service
	clock      clock.Clock
	logger     *slog.Logger
}

// New creates a REST handler
func New(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}

	if cfg.MentorshipService == nil {
		return nil, errors.New("mentorship service cannot be nil")
	}

	if cfg.AccountService == nil {
		return nil, errors.New("account service cannot be nil")
	}

	if cfg.Clock == nil {
		return nil, errors.New("clock cannot be nil")
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = defaultCookieName
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		secret:       []byte(cfg.JWTSecret),
		tokenTTL:     ttl,
		cookieName:   cookieName,
		cookieSecure: cfg.CookieSecure,
		debug:        cfg.Debug,
		mentorship:   cfg.MentorshipService,
		account:      cfg.AccountService,
		clock:        cfg.Clock,
		logger:       logger.With("component", "rest"),
	}, nil
}

// Router builds the gin engine with every API route registered
func (h *Handler) Router() *gin.Engine {
	if h.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Registration issues the token, so it is the only unauthenticated write
	api.POST("/users", h.register)

	protected := api.Group("")
	protected.Use(h.authMiddleware())

	protected.GET("/me", h.me)

	protected.GET("/mentors/available", h.availableMentors)
	protected.POST("/mentors/availability", h.setAvailability)

	protected.POST("/mentorship/book", h.book)
	protected.POST("/mentorship/update/:id", h.update)
	protected.POST("/mentorship/accept/:id", h.transition(h.mentorship.Accept))
	protected.POST("/mentorship/reject/:id", h.transition(h.mentorship.Reject))
	protected.POST("/mentorship/cancel/:id", h.transition(h.mentorship.Cancel))
	protected.POST("/mentorship/complete/:id", h.transition(h.mentorship.Complete))
	protected.POST("/mentorship/feedback/:id", h.submitFeedback)
	protected.GET("/mentorship/history", h.history)
	protected.GET("/mentorship/mentor_requests", h.upcoming(models.SessionRoleMentor))
	protected.GET("/mentorship/mentee_requests", h.upcoming(models.SessionRoleMentee))
	protected.GET("/mentorship/get_credits", h.credits)

	protected.GET("/credits/entries", h.entries)

	return r
}
