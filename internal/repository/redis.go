package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"roomreserve/internal/config"
)

var errNilClient = errors.New("redis client is nil")

type RedisStateRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, prefix string) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStateRepository) key(kind, key string) string {
	return r.prefix + ":" + kind + ":" + key
}

// Acquire sets the guard key only if it is absent (SET NX PX).
func (r *RedisStateRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	ok, err := r.client.SetNX(ctx, r.key("submit", key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire guard in redis: %w", err)
	}
	return ok, nil
}

func (r *RedisStateRepository) Release(ctx context.Context, key string) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Del(ctx, r.key("submit", key)).Err(); err != nil {
		return fmt.Errorf("failed to release guard in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	val, err := r.client.Get(ctx, r.key("cache", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache from redis: %w", err)
	}
	return val, nil
}

func (r *RedisStateRepository) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Set(ctx, r.key("cache", key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) Delete(ctx context.Context, keys ...string) error {
	if r.client == nil {
		return errNilClient
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key("cache", k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
