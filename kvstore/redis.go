package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Backend = (*redisBackend)(nil)

type redisEnvelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

type redisBackend struct {
	client *redis.Client
}

// NewRedis connects a Redis-backed cache tier, for deployments where the
// dataset cache is shared between instances. addr is host:port.
func NewRedis(ctx context.Context, addr, password string, db int) (Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBackend{client: client}, nil
}

func (b *redisBackend) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, ErrNotFound
		}

		return nil, time.Time{}, err
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, err
	}

	return env.Value, time.UnixMilli(env.Timestamp), nil
}

func (b *redisBackend) Set(ctx context.Context, key string, value []byte, ts time.Time) error {
	raw, err := json.Marshal(redisEnvelope{Value: value, Timestamp: ts.UnixMilli()})
	if err != nil {
		return err
	}

	return b.client.Set(ctx, key, raw, 0).Err()
}

func (b *redisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}
