package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/pkg/logger"
)

// Redis shares cached resolutions between engine replicas. Failures
// degrade to cache misses; the cache must never fail a resolution.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedis creates a redis-backed store for the given address.
func NewRedis(addr string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		logger: logger.Get().Named("cache"),
	}
}

// Get loads and decodes a cached resolution.
func (r *Redis) Get(ctx context.Context, key string) (*model.ResolutionResult, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug(ctx, "redis get failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	var result model.ResolutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		r.logger.Warn(ctx, "cached resolution undecodable", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return &result, true
}

// Set encodes and stores a resolution with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, result *model.ResolutionResult) {
	if result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		r.logger.Warn(ctx, "resolution marshal failed", logger.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Debug(ctx, "redis set failed", logger.String("key", key), logger.Error(err))
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Tiered layers a local store in front of a shared one.
type Tiered struct {
	Local  Store
	Shared Store
}

// Get checks the local store first, backfilling it on a shared hit.
func (t Tiered) Get(ctx context.Context, key string) (*model.ResolutionResult, bool) {
	if result, ok := t.Local.Get(ctx, key); ok {
		return result, true
	}
	if t.Shared == nil {
		return nil, false
	}
	result, ok := t.Shared.Get(ctx, key)
	if ok {
		t.Local.Set(ctx, key, result)
	}
	return result, ok
}

// Set writes through to both stores.
func (t Tiered) Set(ctx context.Context, key string, result *model.ResolutionResult) {
	t.Local.Set(ctx, key, result)
	if t.Shared != nil {
		t.Shared.Set(ctx, key, result)
	}
}
