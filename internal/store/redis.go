package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type redisStore[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Redis stores JSON encoded records under prefix + key. A zero ttl keeps records forever.
func Redis[T any](client redis.UniversalClient, prefix string, ttl time.Duration) Store[T] {
	return &redisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient connects to a single Redis node.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (r *redisStore[T]) key(k string) string {
	return r.prefix + k
}

func (r *redisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var value T
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return value, false, nil
		}
		return value, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return value, true, nil
}

func (r *redisStore[T]) Put(ctx context.Context, key string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, r.key(key), payload, r.ttl).Err()
}

func (r *redisStore[T]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
