package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	userKeyPrefix       = "user:"
	userEmailKeyPrefix  = "user_email:"
	availableMentorsKey = "mentors:available"
)

// Config holds configuration for the Redis user repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed user repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

// CreateUser claims the email and stores the user
func (r *redisRepository) CreateUser(ctx context.Context, input *CreateUserInput) error {
	if input == nil {
		return errors.New("input cannot be nil")
	}
	if err := validateUser(input.User); err != nil {
		return err
	}

	u := *input.User
	u.Email = normalizeEmail(u.Email)
	u.Credits = 0

	userJSON, err := json.Marshal(&u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	emailKey := userEmailKeyPrefix + u.Email
	claimed, err := r.client.SetNX(ctx, emailKey, u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return ErrEmailTaken
	}

	created, err := r.client.SetNX(ctx, userKeyPrefix+u.ID, userJSON, 0).Result()
	if err != nil || !created {
		// Release the email so a retry can claim it
		r.client.Del(context.WithoutCancel(ctx), emailKey)
		if err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return ErrUserExists
	}

	if u.Available {
		if err := r.client.SAdd(ctx, availableMentorsKey, u.ID).Err(); err != nil {
			return fmt.Errorf("failed to index available mentor: %w", err)
		}
	}

	return nil
}

// GetUser retrieves a user by ID from Redis
func (r *redisRepository) GetUser(ctx context.Context, input *GetUserInput) (*models.User, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	userJSON, err := r.client.Get(ctx, userKeyPrefix+input.UserID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var u models.User
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &u, nil
}

// SetAvailability updates the user record and the available mentor set together
func (r *redisRepository) SetAvailability(ctx context.Context, input *SetAvailabilityInput) error {
	if input == nil || input.UserID == "" {
		return errors.New("input and user ID cannot be empty")
	}

	u, err := r.GetUser(ctx, &GetUserInput{UserID: input.UserID})
	if err != nil {
		return err
	}
	u.Available = input.Available

	userJSON, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, userKeyPrefix+u.ID, userJSON, 0)
	if input.Available {
		pipe.SAdd(ctx, availableMentorsKey, u.ID)
	} else {
		pipe.SRem(ctx, availableMentorsKey, u.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}

	return nil
}

// ListAvailableMentors retrieves all users in the available mentor set
func (r *redisRepository) ListAvailableMentors(ctx context.Context, input *ListAvailableMentorsInput) (*ListAvailableMentorsOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	mentorIDs, err := r.client.SMembers(ctx, availableMentorsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get available mentor IDs: %w", err)
	}

	if len(mentorIDs) == 0 {
		return &ListAvailableMentorsOutput{
			Mentors: []*models.User{},
		}, nil
	}

	// Get all user records using a pipeline
	pipe := r.client.Pipeline()
	userCommands := make(map[string]*redis.StringCmd, len(mentorIDs))
	for _, mentorID := range mentorIDs {
		if mentorID == input.ExcludeUserID {
			continue
		}
		userCommands[mentorID] = pipe.Get(ctx, userKeyPrefix+mentorID)
	}

	if len(userCommands) == 0 {
		return &ListAvailableMentorsOutput{
			Mentors: []*models.User{},
		}, nil
	}

	// redis.Nil for a single key is reported per command
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get mentors: %w", err)
	}

	mentors := make([]*models.User, 0, len(userCommands))
	for mentorID, cmd := range userCommands {
		userJSON, err := cmd.Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to get mentor %s: %w", mentorID, err)
		}

		var u models.User
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			return nil, fmt.Errorf("failed to unmarshal mentor %s: %w", mentorID, err)
		}

		mentors = append(mentors, &u)
	}

	sortMentors(mentors)

	return &ListAvailableMentorsOutput{
		Mentors: mentors,
	}, nil
}
