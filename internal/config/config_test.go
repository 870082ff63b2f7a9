package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

var allKeys = []string{
	"APP_ENV", "APP_DEBUG", "SHUTDOWN_TIMEOUT",
	"HTTP_ADDR", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT",
	"JWT_SECRET", "JWT_TTL", "SESSION_COOKIE_NAME", "SESSION_COOKIE_SECURE",
	"STORE_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_AUTO_MIGRATE", "DB_CONN_LIFETIME", "DB_CONN_IDLE_TIME",
	"INITIAL_CREDITS", "BOOKING_COST", "MENTOR_PAYOUT", "AUTO_ACCEPT", "REFUND_ON_CANCEL",
	"DISCORD_WEBHOOK_URL", "DISCORD_USERNAME",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
}

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) SetupTest() {
	// Empty values fall back to defaults
	for _, key := range allKeys {
		s.T().Setenv(key, "")
	}
	s.T().Setenv("JWT_SECRET", "test-secret")
}

func (s *ConfigTestSuite) TestLoadDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(EnvDevelopment, cfg.App.Environment)
	s.True(cfg.IsDevelopment())
	s.False(cfg.IsProduction())
	s.Equal(":8080", cfg.HTTP.Addr)
	s.Equal("session", cfg.Auth.CookieName)
	s.Equal(7*24*time.Hour, cfg.Auth.TokenTTL)
	s.Equal(StoreRedis, cfg.Store.Backend)
	s.Equal("localhost:6379", cfg.Store.RedisAddr)
	s.Equal(int64(10), cfg.Credits.InitialCredits)
	s.Equal(int64(10), cfg.Credits.BookingCost)
	s.Equal(int64(10), cfg.Credits.MentorPayout)
	s.False(cfg.Credits.AutoAccept)
	s.True(cfg.Credits.RefundOnCancel)
	s.Empty(cfg.Discord.WebhookURL)
}

func (s *ConfigTestSuite) TestLoadOverrides() {
	s.T().Setenv("APP_ENV", "production")
	s.T().Setenv("APP_DEBUG", "yes")
	s.T().Setenv("STORE_BACKEND", "Postgres")
	s.T().Setenv("DATABASE_URL", "postgres://localhost/mentorlink")
	s.T().Setenv("BOOKING_COST", "25")
	s.T().Setenv("MENTOR_PAYOUT", "20")
	s.T().Setenv("AUTO_ACCEPT", "true")
	s.T().Setenv("REFUND_ON_CANCEL", "0")
	s.T().Setenv("SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	s.Require().NoError(err)

	s.True(cfg.IsProduction())
	s.True(cfg.App.Debug)
	s.Equal(StorePostgres, cfg.Store.Backend)
	s.Equal("postgres://localhost/mentorlink", cfg.Store.DatabaseURL)
	s.Equal(int64(25), cfg.Credits.BookingCost)
	s.Equal(int64(20), cfg.Credits.MentorPayout)
	s.True(cfg.Credits.AutoAccept)
	s.False(cfg.Credits.RefundOnCancel)
	s.Equal(3*time.Second, cfg.App.ShutdownTimeout)
}

func (s *ConfigTestSuite) TestMalformedNumbersFallBack() {
	s.T().Setenv("BOOKING_COST", "ten")
	s.T().Setenv("HTTP_READ_TIMEOUT", "soon")

	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(int64(10), cfg.Credits.BookingCost)
	s.Equal(10*time.Second, cfg.HTTP.ReadTimeout)
}

func (s *ConfigTestSuite) TestMissingSecret() {
	s.T().Setenv("JWT_SECRET", "")

	_, err := Load()
	s.Require().Error(err)
	s.Contains(err.Error(), "JWT_SECRET")
}

func (s *ConfigTestSuite) TestPostgresNeedsURL() {
	s.T().Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	s.Require().Error(err)
	s.Contains(err.Error(), "DATABASE_URL")
}

func (s *ConfigTestSuite) TestUnknownBackend() {
	s.T().Setenv("STORE_BACKEND", "sqlite")

	_, err := Load()
	s.Require().Error(err)
	s.Contains(err.Error(), "STORE_BACKEND")
}

func (s *ConfigTestSuite) TestTelegramNeedsChat() {
	s.T().Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	_, err := Load()
	s.Require().Error(err)
	s.Contains(err.Error(), "TELEGRAM_CHAT_ID")

	s.T().Setenv("TELEGRAM_CHAT_ID", "-100200300")
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(int64(-100200300), cfg.Telegram.ChatID)
}

func (s *ConfigTestSuite) TestValidateCollectsAllProblems() {
	cfg := &Config{
		App:     AppConfig{Environment: "staging"},
		Auth:    AuthConfig{TokenTTL: time.Hour},
		Store:   StoreConfig{Backend: StoreRedis, RedisAddr: "localhost:6379"},
		Credits: CreditsConfig{InitialCredits: -1, BookingCost: 0, MentorPayout: 5},
	}

	err := cfg.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), "APP_ENV")
	s.Contains(err.Error(), "JWT_SECRET")
	s.Contains(err.Error(), "INITIAL_CREDITS")
	s.Contains(err.Error(), "BOOKING_COST")
	s.NotContains(err.Error(), "MENTOR_PAYOUT")
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
