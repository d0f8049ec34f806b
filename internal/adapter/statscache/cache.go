// Package statscache adds an optional read-through cache in front of the
// summary statistics query. The summary is the one whole-table scan in the
// service and its result only shifts as the 24-hour window slides, so a
// short TTL absorbs most of the load on a hot stats endpoint.
package statscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/quakewatch/quake-api/internal/domain"
)

const cacheKey = "quake:summary"

// Summarizer is the wrapped statistics producer.
type Summarizer interface {
	Summarize(ctx context.Context) (domain.Summary, error)
}

// KV is the small key-value surface the cache needs. Redis provides it in
// production; tests substitute a map.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Cache decorates a Summarizer with TTL-bounded caching. A failing KV
// degrades to the inner Summarizer rather than failing the request.
type Cache struct {
	inner   Summarizer
	kv      KV
	ttl     time.Duration
	logger  *slog.Logger
	lookups *prometheus.CounterVec
}

// New creates a cache decorator around a Summarizer.
func New(inner Summarizer, kv KV, ttl time.Duration, logger *slog.Logger, lookups *prometheus.CounterVec) *Cache {
	return &Cache{
		inner:   inner,
		kv:      kv,
		ttl:     ttl,
		logger:  logger,
		lookups: lookups,
	}
}

// Summarize returns the cached summary when fresh, otherwise recomputes and
// stores it.
func (c *Cache) Summarize(ctx context.Context) (domain.Summary, error) {
	cached, ok, err := c.kv.Get(ctx, cacheKey)
	if err != nil {
		c.logger.Warn("stats cache read failed", "error", err)
		c.lookups.WithLabelValues("bypass").Inc()
		return c.inner.Summarize(ctx)
	}
	if ok {
		var sum domain.Summary
		if err := json.Unmarshal([]byte(cached), &sum); err == nil {
			c.lookups.WithLabelValues("hit").Inc()
			return sum, nil
		}
		c.logger.Warn("stats cache entry corrupt, recomputing")
	}

	c.lookups.WithLabelValues("miss").Inc()
	sum, err := c.inner.Summarize(ctx)
	if err != nil {
		return domain.Summary{}, err
	}

	payload, err := json.Marshal(sum)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("encode summary: %w", err)
	}
	if err := c.kv.Set(ctx, cacheKey, string(payload), c.ttl); err != nil {
		c.logger.Warn("stats cache write failed", "error", err)
	}
	return sum, nil
}

// RedisKV adapts a go-redis client to the KV interface.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an opened Redis client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}
