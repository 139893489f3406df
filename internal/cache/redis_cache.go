package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"passbook/backend/internal/domain"
)

type RedisLedgerCache struct {
	client *redis.Client
}

func NewRedisLedgerCache(addr string, password string, db int) *RedisLedgerCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisLedgerCache{client: client}
}

func (c *RedisLedgerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLedgerCache) Close() error {
	return c.client.Close()
}

func (c *RedisLedgerCache) Get(ctx context.Context, key string) ([]domain.LedgerEntry, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []domain.LedgerEntry
	if err := json.Unmarshal(val, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *RedisLedgerCache) Set(ctx context.Context, key string, entries []domain.LedgerEntry, ttl time.Duration) error {
	if entries == nil || ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisLedgerCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
