package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	appstock "github.com/retailops/backend/internal/application/stock"
	"github.com/retailops/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const valuationKeyPrefix = "stock:valuation:"

// RedisValuationCache caches inventory valuation snapshots in Redis.
// Invalidation bumps a per-tenant generation counter instead of scanning
// for keys, so stale entries simply age out via TTL.
type RedisValuationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisValuationCache creates a valuation cache backed by a new Redis client
func NewRedisValuationCache(cfg *config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisValuationCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisValuationCacheWithClient(client, ttl, logger), nil
}

// NewRedisValuationCacheWithClient creates a cache using an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisValuationCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisValuationCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisValuationCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns a cached valuation snapshot if present
func (c *RedisValuationCache) Get(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (*appstock.ValuationResponse, bool) {
	key, err := c.entryKey(ctx, tenantID, storeID)
	if err != nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("valuation cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var valuation appstock.ValuationResponse
	if err := json.Unmarshal(data, &valuation); err != nil {
		c.logger.Warn("valuation cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		c.client.Del(ctx, key)
		return nil, false
	}
	return &valuation, true
}

// Set stores a valuation snapshot with the configured TTL
func (c *RedisValuationCache) Set(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, valuation *appstock.ValuationResponse) {
	key, err := c.entryKey(ctx, tenantID, storeID)
	if err != nil {
		return
	}

	data, err := json.Marshal(valuation)
	if err != nil {
		c.logger.Warn("valuation cache marshal failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("valuation cache write failed", zap.Error(err))
	}
}

// Invalidate drops all cached valuations for a tenant by bumping its
// generation counter
func (c *RedisValuationCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if err := c.client.Incr(ctx, c.generationKey(tenantID)).Err(); err != nil {
		c.logger.Warn("valuation cache invalidation failed",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

func (c *RedisValuationCache) generationKey(tenantID uuid.UUID) string {
	return valuationKeyPrefix + tenantID.String() + ":gen"
}

// entryKey builds the cache key for a tenant/store pair, embedding the
// tenant's current generation so Invalidate shifts every reader to a
// fresh namespace
func (c *RedisValuationCache) entryKey(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey(tenantID)).Result()
	if err != nil {
		if err != redis.Nil {
			return "", err
		}
		gen = "0"
	}

	scope := "all"
	if storeID != nil {
		scope = storeID.String()
	}
	return fmt.Sprintf("%s%s:%s:%s", valuationKeyPrefix, tenantID, gen, scope), nil
}

// Ensure RedisValuationCache implements the application cache contract
var _ appstock.ValuationCache = (*RedisValuationCache)(nil)
