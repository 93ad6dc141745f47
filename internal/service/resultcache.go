package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/najeemsuhail/ecommerce-store-sub000/internal/domain"
)

const resultKeyPrefix = "catalog:search:"

// RedisResultCache implements ResultCache on Redis with a short TTL.
type RedisResultCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

var _ ResultCache = (*RedisResultCache)(nil)

// NewRedisResultCache creates a new Redis-backed result cache.
func NewRedisResultCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisResultCache {
	return &RedisResultCache{client: client, ttl: ttl, logger: logger}
}

// cacheKey hashes the canonical JSON form of q.
func cacheKey(q domain.SearchQuery) string {
	data, _ := json.Marshal(q)
	sum := sha256.Sum256(data)
	return resultKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached result for q.
func (c *RedisResultCache) Get(ctx context.Context, q domain.SearchQuery) (*domain.SearchResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(q)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.WarnContext(ctx, "search cache entry unreadable", slog.String("error", err.Error()))
		return nil, false
	}
	return &result, true
}

// Set stores result for q.
func (c *RedisResultCache) Set(ctx context.Context, q domain.SearchQuery, result *domain.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.WarnContext(ctx, "search cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, cacheKey(q), data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
	}
}
