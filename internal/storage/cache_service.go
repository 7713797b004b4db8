package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/movement-scanner/internal/errors"
	"github.com/movement-scanner/internal/types"
	"github.com/redis/go-redis/v9"
)

// CacheService provides high-level caching for aggregation results
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyMovements is for ranked movement result sets
	CacheKeyMovements CacheKeyType = "movements"
	// CacheKeyFlows is for classified flow result sets
	CacheKeyFlows CacheKeyType = "flows"
)

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	normalizedParams := make([]string, len(params))
	for i, param := range params {
		normalizedParams[i] = strings.ToLower(param)
	}

	parts := append([]string{string(keyType)}, normalizedParams...)
	return strings.Join(parts, ":")
}

// GenerateMovementsKey generates a cache key for a movement result set.
// Chains are sorted so that the same selection always hits the same key.
// Format: movements:<chain1+chain2+...>
func (c *CacheService) GenerateMovementsKey(chains []types.ChainID) string {
	return c.GenerateCacheKey(CacheKeyMovements, joinChains(chains))
}

// GenerateFlowsKey generates a cache key for a flow result set
// Format: flows:<chain1+chain2+...>
func (c *CacheService) GenerateFlowsKey(chains []types.ChainID) string {
	return c.GenerateCacheKey(CacheKeyFlows, joinChains(chains))
}

func joinChains(chains []types.ChainID) string {
	names := make([]string, 0, len(chains))
	for _, chain := range chains {
		names = append(names, string(chain))
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value in cache with a custom TTL
func (c *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, ttl)
}

// Get retrieves a value from cache and deserializes it. A miss returns
// (false, nil), not an error.
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperrors.NewCacheError("get", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidatePattern removes all keys matching a pattern
// Pattern examples: "movements:*", "flows:ethereum*"
func (c *CacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := c.redis.Keys(ctx, pattern)
	if err != nil {
		return apperrors.NewCacheError("keys", err)
	}

	if len(keys) == 0 {
		return nil
	}

	return c.redis.Del(ctx, keys...)
}

// InvalidateResults drops every cached movement and flow result set
func (c *CacheService) InvalidateResults(ctx context.Context) error {
	if err := c.InvalidatePattern(ctx, string(CacheKeyMovements)+":*"); err != nil {
		return err
	}
	return c.InvalidatePattern(ctx, string(CacheKeyFlows)+":*")
}
