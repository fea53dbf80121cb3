package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/airtickets/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	unfinishedIntentsKey = "saga:intents:unfinished"
	intentKeyPrefix      = "saga:intent:"

	defaultIntentTTL = 24 * time.Hour
)

// reserveScript claims an idempotency key and writes the intent in one step,
// so a failed write never leaves a key bound to nothing. A key whose intent
// has expired is reclaimed.
//
// KEYS: idempotency key, intent key, unfinished index.
// ARGV: ticket uid, intent payload, ttl in ms, index score, intent key prefix.
var reserveScript = redis.NewScript(`
local bound = redis.call('GET', KEYS[1])
if bound and redis.call('EXISTS', ARGV[5] .. bound) == 1 then
	return bound
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[1])
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return false
`)

// IntentStore keeps purchase saga records. Unfinished intents (PENDING or
// FAILED) are indexed by creation time so the worker can find abandoned ones.
type IntentStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIntentStore(client *redis.Client, ttl time.Duration) *IntentStore {
	if ttl <= 0 {
		ttl = defaultIntentTTL
	}
	return &IntentStore{client: client, ttl: ttl}
}

// Reserve stores a fresh intent. When its idempotency key was already used by
// the same user, the earlier intent is returned instead and nothing is written.
func (s *IntentStore) Reserve(ctx context.Context, intent *domain.PurchaseIntent) (*domain.PurchaseIntent, error) {
	if intent.IdempotencyKey == "" {
		return nil, s.Save(ctx, intent)
	}

	intent.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(intent)
	if err != nil {
		return nil, err
	}

	key := idempotencyKey(intent.Username, intent.IdempotencyKey)
	raw, err := reserveScript.Run(ctx, s.client,
		[]string{key, intentKey(intent.TicketUID), unfinishedIntentsKey},
		intent.TicketUID.String(), payload, s.ttl.Milliseconds(), intent.CreatedAt.Unix(), intentKeyPrefix,
	).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reserve %s: %w", key, err)
	}

	uid, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency record %s: %w", key, err)
	}
	existing, err := s.Get(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		// expired between the script and this read
		return nil, fmt.Errorf("%w: purchase with idempotency key %q is in progress", domain.ErrConflict, intent.IdempotencyKey)
	}
	return existing, err
}

func (s *IntentStore) Save(ctx context.Context, intent *domain.PurchaseIntent) error {
	intent.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, intentKey(intent.TicketUID), payload, s.ttl)
		if intent.Finished() {
			pipe.ZRem(ctx, unfinishedIntentsKey, intent.TicketUID.String())
		} else {
			pipe.ZAdd(ctx, unfinishedIntentsKey, redis.Z{
				Score:  float64(intent.CreatedAt.Unix()),
				Member: intent.TicketUID.String(),
			})
		}
		return nil
	})
	return err
}

func (s *IntentStore) Get(ctx context.Context, ticketUID uuid.UUID) (*domain.PurchaseIntent, error) {
	data, err := s.client.Get(ctx, intentKey(ticketUID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("intent %s: %w", ticketUID, domain.ErrNotFound)
		}
		return nil, err
	}
	var intent domain.PurchaseIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ListUnfinished returns PENDING and FAILED intents created before cutoff.
// Index entries whose record already expired are dropped.
func (s *IntentStore) ListUnfinished(ctx context.Context, cutoff time.Time) ([]domain.PurchaseIntent, error) {
	members, err := s.client.ZRangeByScore(ctx, unfinishedIntentsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	intents := make([]domain.PurchaseIntent, 0, len(members))
	for _, member := range members {
		uid, err := uuid.Parse(member)
		if err != nil {
			_ = s.client.ZRem(ctx, unfinishedIntentsKey, member).Err()
			continue
		}
		intent, err := s.Get(ctx, uid)
		if errors.Is(err, domain.ErrNotFound) {
			_ = s.client.ZRem(ctx, unfinishedIntentsKey, member).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, nil
}

func intentKey(ticketUID uuid.UUID) string {
	return intentKeyPrefix + ticketUID.String()
}

func idempotencyKey(username, key string) string {
	return fmt.Sprintf("saga:idempotency:%s:%s", username, key)
}
