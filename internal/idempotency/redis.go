package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"checkngo/internal/domain"
)

const pendingMarker = "pending"

// RedisStore делит ключи между несколькими экземплярами сервиса
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("checkout:idempotency:%s", key)
}

func (r *RedisStore) Begin(ctx context.Context, key string) (*domain.Bill, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	ok, err := r.client.SetNX(ctx, redisKey(key), pendingMarker, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return nil, nil
	}

	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// ключ истёк между SETNX и GET
		return r.Begin(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	if string(data) == pendingMarker {
		return nil, ErrInProgress
	}
	var bill domain.Bill
	if err := json.Unmarshal(data, &bill); err != nil {
		return nil, fmt.Errorf("unmarshal bill failed: %w", err)
	}
	return &bill, nil
}

func (r *RedisStore) Complete(ctx context.Context, key string, bill domain.Bill) error {
	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshal bill failed: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// releaseScript удаляет ключ, только пока в нём лежит резерв
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release удаляет только резерв: выданный чек остаётся.
// Сравнение и удаление идут одним скриптом, поэтому Complete не теряется.
func (r *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, r.client, []string{redisKey(key)}, pendingMarker).Err(); err != nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}
