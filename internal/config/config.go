package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// StoreBackend selects where users, sessions and ledger entries live.
type StoreBackend string

const (
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// HTTP API
	HTTP HTTPConfig

	// Auth
	Auth AuthConfig

	// Storage
	Store StoreConfig

	// Credit rules
	Credits CreditsConfig

	// Discord webhook notifications
	Discord DiscordConfig

	// Telegram bot notifications
	Telegram TelegramConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Environment Environment
	Debug       bool

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration
}

// HTTPConfig holds settings for the REST server.
type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds settings for session tokens.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration

	// CookieName is the cookie carrying the session token
	CookieName   string
	CookieSecure bool
}

// StoreConfig holds backend connection settings.
type StoreConfig struct {
	Backend StoreBackend

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL    string
	DBMaxConns     int
	DBAutoMigrate  bool
	DBConnLifetime time.Duration
	DBConnIdleTime time.Duration
}

// CreditsConfig holds the credit rules applied to bookings.
type CreditsConfig struct {
	InitialCredits int64
	BookingCost    int64
	MentorPayout   int64
	AutoAccept     bool
	RefundOnCancel bool
}

// DiscordConfig holds webhook settings. An empty URL disables notifications.
type DiscordConfig struct {
	WebhookURL string
	Username   string
}

// TelegramConfig holds bot settings. An empty token disables notifications.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Environment:     Environment(getEnv("APP_ENV", string(EnvDevelopment))),
			Debug:           getEnvBool("APP_DEBUG", false),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		HTTP: HTTPConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvDuration("JWT_TTL", 7*24*time.Hour),
			CookieName:   getEnv("SESSION_COOKIE_NAME", "session"),
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Store: StoreConfig{
			Backend:        StoreBackend(strings.ToLower(getEnv("STORE_BACKEND", string(StoreRedis)))),
			RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:  getEnv("REDIS_PASSWORD", ""),
			RedisDB:        getEnvInt("REDIS_DB", 0),
			DatabaseURL:    getEnv("DATABASE_URL", ""),
			DBMaxConns:     getEnvInt("DB_MAX_CONNS", 10),
			DBAutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
			DBConnLifetime: getEnvDuration("DB_CONN_LIFETIME", time.Hour),
			DBConnIdleTime: getEnvDuration("DB_CONN_IDLE_TIME", 30*time.Minute),
		},
		Credits: CreditsConfig{
			InitialCredits: getEnvInt64("INITIAL_CREDITS", 10),
			BookingCost:    getEnvInt64("BOOKING_COST", 10),
			MentorPayout:   getEnvInt64("MENTOR_PAYOUT", 10),
			AutoAccept:     getEnvBool("AUTO_ACCEPT", false),
			RefundOnCancel: getEnvBool("REFUND_ON_CANCEL", true),
		},
		Discord: DiscordConfig{
			WebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
			Username:   getEnv("DISCORD_USERNAME", "MentorLink"),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for required and consistent values.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Environment {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.App.Environment))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	switch c.Store.Backend {
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis backend"))
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreRedis, StorePostgres, c.Store.Backend))
	}

	if c.Credits.InitialCredits <= 0 {
		errs = append(errs, errors.New("INITIAL_CREDITS must be positive"))
	}
	if c.Credits.BookingCost <= 0 {
		errs = append(errs, errors.New("BOOKING_COST must be positive"))
	}
	if c.Credits.MentorPayout <= 0 {
		errs = append(errs, errors.New("MENTOR_PAYOUT must be positive"))
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set"))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == EnvProduction
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return val == "yes"
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
