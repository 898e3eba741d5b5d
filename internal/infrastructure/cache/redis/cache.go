// Package redis provides a candidate cache shared across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ersonp/clinote/internal/domain/entities"
	"github.com/ersonp/clinote/internal/infrastructure/config"
)

// Cache implements ports.CandidateCache on Redis. Values are JSON encoded.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Prefix, ttl, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Get loads cached candidates.
func (c *Cache) Get(ctx context.Context, key string) ([]entities.Candidate, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache key %s: %w", key, err)
	}

	var out []entities.Candidate
	if err := json.Unmarshal(data, &out); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, c.prefix+key).Err()
		return nil, false, nil
	}
	return out, true, nil
}

// Set stores candidates under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, candidates []entities.Candidate) error {
	if candidates == nil {
		candidates = []entities.Candidate{}
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cache key %s: %w", key, err)
	}
	return nil
}
