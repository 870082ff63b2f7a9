package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/config"
	"github.com/KirkDiggler/mentorlink/internal/database"
	"github.com/KirkDiggler/mentorlink/internal/handlers/rest"
	"github.com/KirkDiggler/mentorlink/internal/notifications"
	"github.com/KirkDiggler/mentorlink/internal/notifications/discord"
	"github.com/KirkDiggler/mentorlink/internal/notifications/telegram"
	ledgerRepo "github.com/KirkDiggler/mentorlink/internal/repositories/ledger"
	sessionRepo "github.com/KirkDiggler/mentorlink/internal/repositories/mentorship"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/KirkDiggler/mentorlink/internal/services/account"
	"github.com/KirkDiggler/mentorlink/internal/services/mentorship"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
	"github.com/redis/go-redis/v9"
)

// stores bundles the repositories of one backend
type stores struct {
	ledger  ledgerRepo.Repository
	session sessionRepo.Repository
	user    userRepo.Repository
	close   func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting MentorLink API",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"store", cfg.Store.Backend,
	)

	clk := clock.New()
	ids := uuid.New()

	st, err := openStores(ctx, cfg, clk, ids, log)
	if err != nil {
		return err
	}
	defer st.close()

	notifier, err := setupNotifier(cfg, st.user, log)
	if err != nil {
		return err
	}

	accountSvc, err := account.New(&account.Config{
		InitialCredits: cfg.Credits.InitialCredits,
		LedgerRepo:     st.ledger,
		UserRepo:       st.user,
		Clock:          clk,
		UUIDGenerator:  ids,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create account service: %w", err)
	}

	mentorshipSvc, err := mentorship.New(&mentorship.Config{
		BookingCost:    cfg.Credits.BookingCost,
		MentorPayout:   cfg.Credits.MentorPayout,
		AutoAccept:     cfg.Credits.AutoAccept,
		RefundOnCancel: cfg.Credits.RefundOnCancel,
		LedgerRepo:     st.ledger,
		SessionRepo:    st.session,
		UserRepo:       st.user,
		Clock:          clk,
		UUIDGenerator:  ids,
		Notifier:       notifier,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to create mentorship service: %w", err)
	}

	handler, err := rest.New(&rest.Config{
		JWTSecret:         cfg.Auth.JWTSecret,
		TokenTTL:          cfg.Auth.TokenTTL,
		CookieName:        cfg.Auth.CookieName,
		CookieSecure:      cfg.Auth.CookieSecure,
		Debug:             cfg.App.Debug,
		MentorshipService: mentorshipSvc,
		AccountService:    accountSvc,
		Clock:             clk,
		Logger:            log,
	})
	if err != nil {
		return fmt.Errorf("failed to create REST handler: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// openStores connects to the configured backend and builds its repositories
func openStores(ctx context.Context, cfg *config.Config, clk clock.Clock, ids uuid.Generator, log *slog.Logger) (*stores, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case config.StorePostgres:
		pool, err := database.Connect(connectCtx, &database.Config{
			URL:             cfg.Store.DatabaseURL,
			MaxConns:        int32(cfg.Store.DBMaxConns),
			MaxConnLifetime: cfg.Store.DBConnLifetime,
			MaxConnIdleTime: cfg.Store.DBConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("connected to PostgreSQL")

		if cfg.Store.DBAutoMigrate {
			if err := database.Migrate(connectCtx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info("database migrations applied")
		}

		ledger, err := ledgerRepo.NewPostgres(&ledgerRepo.PostgresConfig{
			Pool:          pool,
			Clock:         clk,
			UUIDGenerator: ids,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create ledger repository: %w", err)
		}
		sessions, err := sessionRepo.NewPostgres(&sessionRepo.PostgresConfig{Pool: pool})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create session repository: %w", err)
		}
		users, err := userRepo.NewPostgres(&userRepo.PostgresConfig{Pool: pool})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create user repository: %w", err)
		}

		return &stores{ledger: ledger, session: sessions, user: users, close: pool.Close}, nil

	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		closeClient := func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close Redis client", "error", err)
			}
		}

		if err := client.Ping(connectCtx).Err(); err != nil {
			closeClient()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("connected to Redis", "addr", cfg.Store.RedisAddr)

		ledger, err := ledgerRepo.NewRedis(&ledgerRepo.Config{
			RedisClient:   client,
			Clock:         clk,
			UUIDGenerator: ids,
		})
		if err != nil {
			closeClient()
			return nil, fmt.Errorf("failed to create ledger repository: %w", err)
		}
		sessions, err := sessionRepo.NewRedis(&sessionRepo.Config{RedisClient: client})
		if err != nil {
			closeClient()
			return nil, fmt.Errorf("failed to create session repository: %w", err)
		}
		users, err := userRepo.NewRedis(&userRepo.Config{RedisClient: client})
		if err != nil {
			closeClient()
			return nil, fmt.Errorf("failed to create user repository: %w", err)
		}

		return &stores{ledger: ledger, session: sessions, user: users, close: closeClient}, nil
	}
}

// setupNotifier posts to Discord and Telegram when they are configured
func setupNotifier(cfg *config.Config, users userRepo.Repository, log *slog.Logger) (notifications.Notifier, error) {
	if cfg.Discord.WebhookURL == "" && cfg.Telegram.BotToken == "" {
		log.Info("no notification channel configured, notifications disabled")
		return notifications.NewNoop(), nil
	}

	messages, err := messaging.NewService(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging service: %w", err)
	}

	var channels []notifications.Notifier

	if cfg.Discord.WebhookURL != "" {
		notifier, err := discord.New(&discord.Config{
			WebhookURL: cfg.Discord.WebhookURL,
			Username:   cfg.Discord.Username,
			Messaging:  messages,
			UserRepo:   users,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord notifier: %w", err)
		}
		channels = append(channels, notifier)
		log.Info("Discord notifications enabled")
	}

	if cfg.Telegram.BotToken != "" {
		notifier, err := telegram.New(&telegram.Config{
			BotToken:  cfg.Telegram.BotToken,
			ChatID:    cfg.Telegram.ChatID,
			Messaging: messages,
			UserRepo:  users,
			Logger:    log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Telegram notifier: %w", err)
		}
		channels = append(channels, notifier)
		log.Info("Telegram notifications enabled", "chat_id", cfg.Telegram.ChatID)
	}

	return notifications.NewMulti(channels...), nil
}

// setupLogger configures structured logging, JSON in production and text otherwise
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
