package mentorship

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	sessionKeyPrefix     = "mentorship_session:"
	userSessionsPrefix   = "user_sessions:"
	idempotencyKeyPrefix = "mentorship_idempotency:"
)

// Script result codes
const (
	codeOK int64 = iota
	codeNotFound
	codeConflict
	codeFeedbackExists
	codeDuplicateKey
)

// createScript stores the session hash and both user indexes, refusing a
// reused idempotency key or session ID.
var createScript = redis.NewScript(`
if ARGV[3] == '1' then
  local existing = redis.call('GET', KEYS[4])
  if existing then
    return {4, existing}
  end
end
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {2, ARGV[1]}
end
redis.call('HSET', KEYS[1], unpack(ARGV, 4))
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
if ARGV[3] == '1' then
  redis.call('SET', KEYS[4], ARGV[1])
end
return {0, ARGV[1]}
`)

var updateStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 1
end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then
  return 2
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
return 0
`)

var setFeedbackScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 1
end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then
  return 2
end
local feedback = redis.call('HGET', KEYS[1], 'feedback')
if feedback and feedback ~= '' then
  return 3
end
redis.call('HSET', KEYS[1], 'feedback', ARGV[2], 'updated_at', ARGV[3])
return 0
`)

// Config holds configuration for the Redis mentorship repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed mentorship repository
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

// CreateSession stores a new session together with its user indexes
func (r *redisRepository) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateSession(input.Session); err != nil {
		return nil, err
	}

	session := input.Session
	useIdempotency := "0"
	if session.IdempotencyKey != "" {
		useIdempotency = "1"
	}

	keys := []string{
		sessionKeyPrefix + session.ID,
		userSessionsKey(session.MentorID, models.SessionRoleMentor),
		userSessionsKey(session.MenteeID, models.SessionRoleMentee),
		idempotencyKey(session.MenteeID, session.IdempotencyKey),
	}
	args := []interface{}{session.ID, sessionScore(session.ScheduledTime), useIdempotency}
	for field, value := range toHash(session) {
		args = append(args, field, value)
	}

	result, err := createScript.Run(ctx, r.client, keys, args...).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to create mentorship session: %w", err)
	}

	code, err := resultCode(result)
	if err != nil {
		return nil, err
	}

	switch code {
	case codeOK:
		return &CreateSessionOutput{Session: session}, nil
	case codeConflict:
		return nil, ErrSessionExists
	case codeDuplicateKey:
		return nil, ErrDuplicateIdempotencyKey
	default:
		return nil, fmt.Errorf("unexpected create script code: %d", code)
	}
}

// GetSession retrieves a session by ID
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.MentorshipSession, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	fields, err := r.client.HGetAll(ctx, sessionKeyPrefix+input.SessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get mentorship session: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrSessionNotFound
	}

	return fromHash(fields)
}

// UpdateStatus moves a session from one status to another atomically
func (r *redisRepository) UpdateStatus(ctx context.Context, input *UpdateStatusInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}
	if !input.From.IsValid() || !input.To.IsValid() {
		return errors.New("invalid session status")
	}

	code, err := updateStatusScript.Run(ctx, r.client,
		[]string{sessionKeyPrefix + input.SessionID},
		string(input.From), string(input.To), formatTime(input.UpdatedAt),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to update mentorship session status: %w", err)
	}

	return codeToError(code)
}

// SetFeedback stores feedback on a completed session
func (r *redisRepository) SetFeedback(ctx context.Context, input *SetFeedbackInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}
	if input.Feedback == "" {
		return errors.New("feedback cannot be empty")
	}

	code, err := setFeedbackScript.Run(ctx, r.client,
		[]string{sessionKeyPrefix + input.SessionID},
		string(models.SessionStatusCompleted), input.Feedback, formatTime(input.UpdatedAt),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to set mentorship session feedback: %w", err)
	}

	return codeToError(code)
}

// ListSessionsForUser retrieves a user's sessions ordered by scheduled time
func (r *redisRepository) ListSessionsForUser(ctx context.Context, input *ListSessionsForUserInput) (*ListSessionsForUserOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	roles := []models.SessionRole{models.SessionRoleMentor, models.SessionRoleMentee}
	if input.Role != "" {
		roles = []models.SessionRole{input.Role}
	}

	pipe := r.client.Pipeline()
	idCommands := make([]*redis.StringSliceCmd, 0, len(roles))
	for _, role := range roles {
		idCommands = append(idCommands, pipe.ZRange(ctx, userSessionsKey(input.UserID, role), 0, -1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get session IDs for user: %w", err)
	}

	seen := make(map[string]struct{})
	sessionIDs := make([]string, 0)
	for _, cmd := range idCommands {
		for _, id := range cmd.Val() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			sessionIDs = append(sessionIDs, id)
		}
	}

	if len(sessionIDs) == 0 {
		return &ListSessionsForUserOutput{
			Sessions: []*models.MentorshipSession{},
		}, nil
	}

	pipe = r.client.Pipeline()
	sessionCommands := make([]*redis.MapStringStringCmd, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		sessionCommands = append(sessionCommands, pipe.HGetAll(ctx, sessionKeyPrefix+id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get mentorship sessions: %w", err)
	}

	keep := statusFilter(input.Statuses)
	sessions := make([]*models.MentorshipSession, 0, len(sessionIDs))
	for i, cmd := range sessionCommands {
		fields := cmd.Val()
		if len(fields) == 0 {
			return nil, fmt.Errorf("indexed session %s has no record", sessionIDs[i])
		}

		session, err := fromHash(fields)
		if err != nil {
			return nil, err
		}
		if keep(session.Status) {
			sessions = append(sessions, session)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].ScheduledTime.Equal(sessions[j].ScheduledTime) {
			return sessions[i].ScheduledTime.Before(sessions[j].ScheduledTime)
		}
		return sessions[i].ID < sessions[j].ID
	})

	return &ListSessionsForUserOutput{
		Sessions: sessions,
	}, nil
}

// FindByIdempotencyKey retrieves the session a mentee booked with the given key
func (r *redisRepository) FindByIdempotencyKey(ctx context.Context, input *FindByIdempotencyKeyInput) (*models.MentorshipSession, error) {
	if input == nil || input.MenteeID == "" || input.Key == "" {
		return nil, errors.New("input, mentee ID and key cannot be empty")
	}

	sessionID, err := r.client.Get(ctx, idempotencyKey(input.MenteeID, input.Key)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	return r.GetSession(ctx, &GetSessionInput{SessionID: sessionID})
}

func userSessionsKey(userID string, role models.SessionRole) string {
	return fmt.Sprintf("%s%s:%s", userSessionsPrefix, userID, role)
}

func idempotencyKey(menteeID, key string) string {
	return fmt.Sprintf("%s%s:%s", idempotencyKeyPrefix, menteeID, key)
}

func sessionScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func formatTime(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	nanos, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos).UTC(), nil
}

func toHash(session *models.MentorshipSession) map[string]string {
	return map[string]string{
		"id":              session.ID,
		"mentor_id":       session.MentorID,
		"mentee_id":       session.MenteeID,
		"scheduled_time":  formatTime(session.ScheduledTime),
		"status":          string(session.Status),
		"feedback":        session.Feedback,
		"event_id":        session.EventID,
		"idempotency_key": session.IdempotencyKey,
		"created_at":      formatTime(session.CreatedAt),
		"updated_at":      formatTime(session.UpdatedAt),
	}
}

func fromHash(fields map[string]string) (*models.MentorshipSession, error) {
	session := &models.MentorshipSession{
		ID:             fields["id"],
		MentorID:       fields["mentor_id"],
		MenteeID:       fields["mentee_id"],
		Status:         models.SessionStatus(fields["status"]),
		Feedback:       fields["feedback"],
		EventID:        fields["event_id"],
		IdempotencyKey: fields["idempotency_key"],
	}

	var err error
	if session.ScheduledTime, err = parseTime(fields["scheduled_time"]); err != nil {
		return nil, fmt.Errorf("failed to parse scheduled time of session %s: %w", session.ID, err)
	}
	if session.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("failed to parse created time of session %s: %w", session.ID, err)
	}
	if session.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("failed to parse updated time of session %s: %w", session.ID, err)
	}

	return session, nil
}

func resultCode(result []interface{}) (int64, error) {
	if len(result) == 0 {
		return 0, errors.New("empty script result")
	}
	code, ok := result[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result code type %T", result[0])
	}
	return code, nil
}

func codeToError(code int64) error {
	switch code {
	case codeOK:
		return nil
	case codeNotFound:
		return ErrSessionNotFound
	case codeConflict:
		return ErrStatusConflict
	case codeFeedbackExists:
		return ErrFeedbackExists
	default:
		return fmt.Errorf("unexpected script code: %d", code)
	}
}
