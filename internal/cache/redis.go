package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"finanzapp/internal/log"
)

// RedisConfig addresses a Redis server.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// Redis stores JSON-encoded values in Redis under a key prefix.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisClient opens a client and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis[T any](client *redis.Client, cfg RedisConfig, logger *log.Logger) *Redis[T] {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "finanzapp:"
	}
	return &Redis[T]{
		client: client,
		prefix: prefix,
		ttl:    cfg.TTL,
		logger: logger.WithComponent(log.ComponentCache),
	}
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		r.logger.WarnContext(ctx, "Redis get failed", "key", key, log.FieldError, err)
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		r.logger.WarnContext(ctx, "Redis value undecodable", "key", key, log.FieldError, err)
		return zero, false
	}
	return v, true
}

func (r *Redis[T]) Set(ctx context.Context, key string, data T) {
	payload, err := json.Marshal(data)
	if err != nil {
		r.logger.WarnContext(ctx, "Redis value unencodable", "key", key, log.FieldError, err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, payload, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "Redis set failed", "key", key, log.FieldError, err)
	}
}

// DeletePrefix scans for matching keys and deletes them in one call.
func (r *Redis[T]) DeletePrefix(ctx context.Context, prefix string) int {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.WarnContext(ctx, "Redis scan failed", "prefix", prefix, log.FieldError, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.WarnContext(ctx, "Redis delete failed", "prefix", prefix, log.FieldError, err)
		return 0
	}
	return int(n)
}
