package discord

//go:generate mockgen -package=mocks -destination=mocks/mock_webhook_client.go github.com/KirkDiggler/mentorlink/internal/notifications/discord WebhookClient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/notifications"
	userRepo "github.com/KirkDiggler/mentorlink/internal/repositories/user"
	"github.com/KirkDiggler/mentorlink/internal/services/messaging"
	"github.com/bwmarrin/discordgo"
)

const defaultUsername = "MentorLink"

// WebhookClient is the part of discordgo.Session the notifier uses
type WebhookClient interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Config holds configuration for the Discord webhook notifier
type Config struct {
	// WebhookURL is the full https://discord.com/api/webhooks/{id}/{token} URL
	WebhookURL string

	// Username overrides the webhook's display name
	Username string

	// Client defaults to an unauthenticated discordgo session
	Client WebhookClient

	Messaging messaging.Service
	UserRepo  userRepo.Repository
	Logger    *slog.Logger
}

// Notifier posts session events to a Discord channel through a webhook
type Notifier struct {
	webhookID string
	token     string
	username  string
	client    WebhookClient
	messaging messaging.Service
	userRepo  userRepo.Repository
	logger    *slog.Logger
}

var _ notifications.Notifier = (*Notifier)(nil)

// New creates a Discord webhook notifier
func New(cfg *Config) (*Notifier, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Messaging == nil {
		return nil, errors.New("messaging service cannot be nil")
	}
	if cfg.UserRepo == nil {
		return nil, errors.New("user repository cannot be nil")
	}

	webhookID, token, err := ParseWebhookURL(cfg.WebhookURL)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		session, err := discordgo.New("")
		if err != nil {
			return nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		client = session
	}

	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		webhookID: webhookID,
		token:     token,
		username:  username,
		client:    client,
		messaging: cfg.Messaging,
		userRepo:  cfg.UserRepo,
		logger:    logger.With("component", "discord_notifier"),
	}, nil
}

// ParseWebhookURL splits a Discord webhook URL into its ID and token
func ParseWebhookURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}

	return "", "", errors.New("webhook URL must contain /webhooks/{id}/{token}")
}

// Notify renders the event and posts it to the webhook
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

	params := &discordgo.WebhookParams{
		Username: n.username,
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       rendered.Title,
				Description: rendered.Message,
				Color:       eventColor(input.Event),
				Timestamp:   session.UpdatedAt.UTC().Format(time.RFC3339),
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Session", Value: session.ID, Inline: true},
					{Name: "Status", Value: string(session.Status), Inline: true},
					{Name: "Scheduled", Value: session.ScheduledTime.UTC().Format(time.RFC1123), Inline: false},
				},
			},
		},
	}

	if _, err := n.client.WebhookExecute(n.webhookID, n.token, false, params); err != nil {
		return fmt.Errorf("failed to execute discord webhook: %w", err)
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

func eventColor(event messaging.EventKind) int {
	switch event {
	case messaging.EventRequested:
		return 0x3498db // Blue
	case messaging.EventApproved:
		return 0x00ff00 // Green
	case messaging.EventCanceled:
		return 0xff0000 // Red
	case messaging.EventCompleted:
		return 0xf1c40f // Gold
	default:
		return 0x95a5a6
	}
}
