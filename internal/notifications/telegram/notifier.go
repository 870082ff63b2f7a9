package telegram

//go:generate mockgen -package=mocks -destination=mocks/mock_sender.go github.com/KirkDiggler/mentorlink/internal/notifications/telegram Sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/notifications"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config holds configuration for the Telegram notifier
type Config struct {
	// BotToken authenticates the bot, unused when Client is set
	BotToken string

	// ChatID is the chat or channel events are posted to
	ChatID int64

	// Client defaults to a BotAPI built from BotToken
	Client Sender

	Messaging messaging.Service
	UserRepo  userRepo.Repository
	Logger    *slog.Logger
}

// Notifier posts session events to a Telegram chat
type Notifier struct {
	chatID    int64
	client    Sender
	messaging messaging.Service
	userRepo  userRepo.Repository
	logger    *slog.Logger
}

var _ notifications.Notifier = (*Notifier)(nil)

// New creates a Telegram notifier
func New(cfg *Config) (*Notifier, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("chat ID cannot be zero")
	}
	if cfg.Messaging == nil {
		return nil, errors.New("messaging service cannot be nil")
	}
	if cfg.UserRepo == nil {
		return nil, errors.New("user repository cannot be nil")
	}

	client := cfg.Client
	if client == nil {
		if cfg.BotToken == "" {
			return nil, errors.New("bot token cannot be empty")
		}
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("bot init: %w", err)
		}
		client = api
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		chatID:    cfg.ChatID,
		client:    client,
		messaging: cfg.Messaging,
		userRepo:  cfg.UserRepo,
		logger:    logger.With("component", "telegram_notifier"),
	}, nil
}

// Notify renders the event and sends it as a plain text message
func (n *Notifier) Notify(ctx context.Context, input *notifications.NotifyInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	session := input.Session
	rendered, err := n.messaging.GetSessionEventMessage(ctx, &messaging.GetSessionEventMessageInput{
		Event:         input.Event,
		MentorName:    n.displayName(ctx, session.MentorID),
		MenteeName:    n.displayName(ctx, session.MenteeID),
		ScheduledTime: session.ScheduledTime,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s message: %w", input.Event, err)
	}

	var text strings.Builder
	text.WriteString(rendered.Title)
	text.WriteString("\n\n")
	text.WriteString(rendered.Message)
	fmt.Fprintf(&text, "\n\nSession: %s\nStatus: %s\nScheduled: %s",
		session.ID, session.Status, session.ScheduledTime.UTC().Format(time.RFC1123))

	msg := tgbotapi.NewMessage(n.chatID, text.String())
	msg.DisableWebPagePreview = true

	if _, err := n.client.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	return nil
}

// displayName falls back to the user ID when the profile cannot be read
func (n *Notifier) displayName(ctx context.Context, userID string) string {
	u, err := n.userRepo.GetUser(ctx, &userRepo.GetUserInput{UserID: userID})
	if err != nil {
		n.logger.Debug("could not resolve user name", "user_id", userID, "error", err)
		return userID
	}
	return u.Name
}
