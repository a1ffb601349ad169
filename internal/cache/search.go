// Package cache stores finished search results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/productsearch/internal/domain"
)

const keyPrefix = "search:"

// DefaultTTL bounds how stale a cached search can be.
const DefaultTTL = 30 * time.Second

// SearchCache implements planner.ResultCache using Redis.
type SearchCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSearchCache creates a Redis-backed search cache.
func NewSearchCache(client redis.UniversalClient, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SearchCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached result for key. A miss is (nil, false, nil).
func (c *SearchCache) Get(ctx context.Context, key string) (*domain.SearchResult, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get search: %w", err)
	}

	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal search result: %w", err)
	}

	return &result, true, nil
}

// Set stores result under key with the configured TTL.
func (c *SearchCache) Set(ctx context.Context, key string, result *domain.SearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal search result: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set search: %w", err)
	}

	return nil
}
