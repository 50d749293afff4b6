package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HerbHall/cycleinsight/pkg/analytics"
)

// DefaultRedisKeyPrefix namespaces state keys.
const DefaultRedisKeyPrefix = "cycleinsight:persistence:"

// maxTxRetries bounds optimistic-lock retries under contention.
const maxTxRetries = 10

// ErrContention is returned when an update keeps losing the optimistic lock.
var ErrContention = errors.New("persistence: too much contention on user state")

// RedisStore keeps state in Redis so that several replicas share one tracker.
// Updates use WATCH/MULTI on the user's key.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore returns a RedisStore. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) key(userID string) string { return r.prefix + userID }

// Update implements StateStore.
func (r *RedisStore) Update(ctx context.Context, userID string, fn UpdateFunc) (analytics.PersistenceState, error) {
	key := r.key(userID)
	var saved analytics.PersistenceState

	txf := func(tx *redis.Tx) error {
		state, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		state.UserID = userID
		state.UpdatedAt = r.now().UTC()
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			saved = state
		}
		return err
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return saved, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return analytics.PersistenceState{}, err
	}
	return analytics.PersistenceState{}, ErrContention
}

// Get implements StateStore.
func (r *RedisStore) Get(ctx context.Context, userID string) (*analytics.PersistenceState, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	var s analytics.PersistenceState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) load(ctx context.Context, tx *redis.Tx, key string) (analytics.PersistenceState, error) {
	var s analytics.PersistenceState
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("load state: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}
