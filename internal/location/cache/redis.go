package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"communiserver/internal/location/models"
	"communiserver/pkg/platform/sentinel"
)

const (
	chainKeyPrefix       = "loc:chain:"
	descendantsKeyPrefix = "loc:desc:"
)

// RedisCache caches ancestor chains and descendant ID sets. The hierarchy is
// near-static, so a short TTL keeps renames visible without hammering the
// relational store on every scope resolution.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a Redis-backed hierarchy cache.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Chain returns a cached ancestor chain, or sentinel.ErrNotFound on a miss.
func (c *RedisCache) Chain(ctx context.Context, id uuid.UUID) ([]models.Node, error) {
	raw, err := c.client.Get(ctx, chainKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cached chain: %w", err)
	}
	var chain []models.Node
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("decode cached chain: %w", err)
	}
	return chain, nil
}

// SaveChain stores an ancestor chain with the configured TTL.
func (c *RedisCache) SaveChain(ctx context.Context, id uuid.UUID, chain []models.Node) error {
	raw, err := json.Marshal(chain)
	if err != nil {
		return fmt.Errorf("encode chain: %w", err)
	}
	if err := c.client.Set(ctx, chainKeyPrefix+id.String(), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save cached chain: %w", err)
	}
	return nil
}

// Descendants returns a cached descendant ID set, or sentinel.ErrNotFound on
// a miss.
func (c *RedisCache) Descendants(ctx context.Context, id uuid.UUID, kind models.Kind) ([]uuid.UUID, error) {
	raw, err := c.client.Get(ctx, descendantsKey(id, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cached descendants: %w", err)
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode cached descendants: %w", err)
	}
	return ids, nil
}

// SaveDescendants stores a descendant ID set with the configured TTL.
func (c *RedisCache) SaveDescendants(ctx context.Context, id uuid.UUID, kind models.Kind, ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode descendants: %w", err)
	}
	if err := c.client.Set(ctx, descendantsKey(id, kind), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save cached descendants: %w", err)
	}
	return nil
}

func descendantsKey(id uuid.UUID, kind models.Kind) string {
	if kind == models.KindAny {
		return descendantsKeyPrefix + id.String() + ":any"
	}
	return descendantsKeyPrefix + id.String() + ":" + string(kind)
}
