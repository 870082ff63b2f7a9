package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/KirkDiggler/mentorlink/internal/common/clock"
	"github.com/KirkDiggler/mentorlink/internal/common/uuid"
	"github.com/KirkDiggler/mentorlink/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	balanceKeyPrefix = "ledger_balance:"
	entriesKeyPrefix = "ledger_entries:"
	appliedKeyPrefix = "ledger_applied:"
)

// Script result codes
const (
	codeOK int64 = iota
	codeNoAccount
	codeInsufficient
	codeReplayed
	codeNothingToReverse
)

// The scripts check and change the balance and record the entry in a single
// server-side step so concurrent writers cannot both pass a check.
// KEYS[3], when present, holds the entry already applied for the session and
// reason. KEYS[4], when present, must exist for a reversing credit to apply.
var debitScript = redis.NewScript(`
local balance = redis.call('GET', KEYS[1])
if not balance then
  return {1, 0, ''}
end
balance = tonumber(balance)
if KEYS[3] then
  local applied = redis.call('GET', KEYS[3])
  if applied then
    return {3, balance, applied}
  end
end
local amount = tonumber(ARGV[1])
if balance < amount then
  return {2, balance, ''}
end
balance = redis.call('DECRBY', KEYS[1], amount)
local entry = cjson.decode(ARGV[2])
entry['balance_after'] = balance
local encoded = cjson.encode(entry)
redis.call('LPUSH', KEYS[2], encoded)
if KEYS[3] then
  redis.call('SET', KEYS[3], encoded, 'NX')
end
return {0, balance, encoded}
`)

var creditScript = redis.NewScript(`
local balance = redis.call('GET', KEYS[1])
if not balance then
  return {1, 0, ''}
end
if KEYS[3] then
  local applied = redis.call('GET', KEYS[3])
  if applied then
    return {3, tonumber(balance), applied}
  end
end
if KEYS[4] and redis.call('EXISTS', KEYS[4]) == 0 then
  return {4, tonumber(balance), ''}
end
balance = redis.call('INCRBY', KEYS[1], tonumber(ARGV[1]))
local entry = cjson.decode(ARGV[2])
entry['balance_after'] = balance
local encoded = cjson.encode(entry)
redis.call('LPUSH', KEYS[2], encoded)
if KEYS[3] then
  redis.call('SET', KEYS[3], encoded, 'NX')
end
return {0, balance, encoded}
`)

// Config holds configuration for the Redis ledger repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// Clock stamps new entries
	Clock clock.Clock

	// UUIDGenerator issues entry IDs
	UUIDGenerator uuid.Generator
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client        *redis.Client
	clock         clock.Clock
	uuidGenerator uuid.Generator
}

// NewRedis creates a new Redis-backed ledger repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if cfg.Clock == nil {
		return nil, errors.New("clock cannot be nil")
	}

	if cfg.UUIDGenerator == nil {
		return nil, errors.New("UUID generator cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client:        cfg.RedisClient,
		clock:         cfg.Clock,
		uuidGenerator: cfg.UUIDGenerator,
	}, nil
}

// OpenAccount creates a zero balance, leaving an existing balance untouched
func (r *redisRepository) OpenAccount(ctx context.Context, input *OpenAccountInput) error {
	if input == nil || input.UserID == "" {
		return errors.New("input and user ID cannot be empty")
	}

	if err := r.client.SetNX(ctx, balanceKeyPrefix+input.UserID, 0, 0).Err(); err != nil {
		return fmt.Errorf("failed to open ledger account: %w", err)
	}

	return nil
}

// Debit subtracts credits from a user's balance
func (r *redisRepository) Debit(ctx context.Context, input *DebitInput) (*DebitOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateChange(input.UserID, input.Amount); err != nil {
		return nil, err
	}

	entry := newEntry(r.clock, r.uuidGenerator, input.UserID, -input.Amount, input.Reason, input.SessionID)
	result, err := r.apply(ctx, debitScript, entry, input.Amount, "")
	if err != nil {
		return nil, err
	}

	return &DebitOutput{
		Balance:  result.balance,
		Entry:    result.entry,
		Replayed: result.replayed,
	}, nil
}

// Credit adds credits to a user's balance
func (r *redisRepository) Credit(ctx context.Context, input *CreditInput) (*CreditOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if err := validateCredit(input); err != nil {
		return nil, err
	}

	entry := newEntry(r.clock, r.uuidGenerator, input.UserID, input.Amount, input.Reason, input.SessionID)
	result, err := r.apply(ctx, creditScript, entry, input.Amount, input.Reverses)
	if err != nil {
		return nil, err
	}

	return &CreditOutput{
		Balance:  result.balance,
		Entry:    result.entry,
		Replayed: result.replayed,
	}, nil
}

// scriptResult is the decoded reply of a ledger script
type scriptResult struct {
	balance  int64
	entry    *models.LedgerEntry
	replayed bool
}

func (r *redisRepository) apply(ctx context.Context, script *redis.Script, entry *models.LedgerEntry, amount int64, reverses models.LedgerReason) (*scriptResult, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	keys := []string{balanceKeyPrefix + entry.UserID, entriesKeyPrefix + entry.UserID}
	if entry.SessionID != "" {
		keys = append(keys, appliedKey(entry.SessionID, entry.Reason))
		if reverses != "" {
			keys = append(keys, appliedKey(entry.SessionID, reverses))
		}
	}

	reply, err := script.Run(ctx, r.client, keys, amount, entryJSON).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to apply ledger entry: %w", err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected ledger script result: %v", reply)
	}

	code, isCode := reply[0].(int64)
	balance, balanceOK := reply[1].(int64)
	raw, rawOK := reply[2].(string)
	if !isCode || !balanceOK || !rawOK {
		return nil, fmt.Errorf("unexpected ledger script result: %v", reply)
	}

	switch code {
	case codeOK, codeReplayed:
		var stored models.LedgerEntry
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
		}
		return &scriptResult{
			balance:  balance,
			entry:    &stored,
			replayed: code == codeReplayed,
		}, nil
	case codeNoAccount:
		return nil, ErrAccountNotFound
	case codeInsufficient:
		return nil, ErrInsufficientFunds
	case codeNothingToReverse:
		return nil, ErrNothingToReverse
	default:
		return nil, fmt.Errorf("unexpected ledger script code: %d", code)
	}
}

func appliedKey(sessionID string, reason models.LedgerReason) string {
	return appliedKeyPrefix + sessionID + ":" + string(reason)
}

// GetBalance returns a user's current balance
func (r *redisRepository) GetBalance(ctx context.Context, input *GetBalanceInput) (*GetBalanceOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	raw, err := r.client.Get(ctx, balanceKeyPrefix+input.UserID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}

	return &GetBalanceOutput{
		Balance: balance,
	}, nil
}

// ListEntries returns a user's entries, newest first
func (r *redisRepository) ListEntries(ctx context.Context, input *ListEntriesInput) (*ListEntriesOutput, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	stop := int64(-1)
	if input.Limit > 0 {
		stop = int64(input.Limit) - 1
	}

	rawEntries, err := r.client.LRange(ctx, entriesKeyPrefix+input.UserID, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	entries := make([]*models.LedgerEntry, 0, len(rawEntries))
	for _, raw := range rawEntries {
		var entry models.LedgerEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return &ListEntriesOutput{
		Entries: entries,
	}, nil
}
