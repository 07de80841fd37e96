package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every collection under its own key. Cart and wishlist keys expire after the
// session TTL plus a few minutes of jitter; orders and products never expire.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewRedisStore(client *redis.Client, sessionTTL time.Duration) *RedisStore {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

func (r *RedisStore) Get(ctx context.Context, collection string) ([]byte, error) {
	data, err := r.client.Get(ctx, collection).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStore) Set(ctx context.Context, collection string, data []byte) error {
	if err := r.client.Set(ctx, collection, string(data), r.ttl(collection)).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Remove(ctx context.Context, collection string) error {
	if err := r.client.Del(ctx, collection).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Apply runs all writes inside MULTI/EXEC.
func (r *RedisStore) Apply(ctx context.Context, writes []Write) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range writes {
			if w.Data == nil {
				pipe.Del(ctx, w.Collection)
				continue
			}
			pipe.Set(ctx, w.Collection, string(w.Data), r.ttl(w.Collection))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis transaction failed: %w", err)
	}
	return nil
}

func (r *RedisStore) ttl(collection string) time.Duration {
	if !isSessionCollection(collection) {
		return 0
	}
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.sessionTTL + jitter
}

func isSessionCollection(collection string) bool {
	return strings.HasPrefix(collection, "cart:") || strings.HasPrefix(collection, "wishlist:")
}
