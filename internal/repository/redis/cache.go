package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	toolCachePrefix = "tool:"
	defaultToolTTL  = 10 * time.Minute
)

// ToolCache memoizes slow external tool results (weather, web search) in Redis
type ToolCache struct {
	client *Client
	ttl    time.Duration
}

// NewToolCache creates a new tool result cache
func NewToolCache(client *Client, ttl time.Duration) *ToolCache {
	if ttl <= 0 {
		ttl = defaultToolTTL
	}
	return &ToolCache{client: client, ttl: ttl}
}

func toolKey(tool, input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s%s:%s", toolCachePrefix, tool, hex.EncodeToString(sum[:8]))
}

// Get returns the cached result; ok is false on a miss
func (c *ToolCache) Get(ctx context.Context, tool, input string) ([]byte, bool, error) {
	data, err := c.client.rdb.Get(ctx, toolKey(tool, input)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read tool cache: %w", err)
	}
	return data, true, nil
}

// Set stores a tool result for the configured TTL
func (c *ToolCache) Set(ctx context.Context, tool, input string, data []byte) error {
	if err := c.client.rdb.Set(ctx, toolKey(tool, input), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write tool cache: %w", err)
	}
	return nil
}

// FlushAll removes all cached tool results
func (c *ToolCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := toolCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
