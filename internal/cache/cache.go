// Package cache is a read-through JSON cache on redis. Every failure
// degrades to a miss, so callers always fall back to the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const (
	FlightTTL       = 300 * time.Second
	FlightSearchTTL = 120 * time.Second
	AnalyticsTTL    = 300 * time.Second

	FlightSearchPattern = "flight:search:*"
	AnalyticsPattern    = "admin:analytics:*"
	AdminListKey        = "admin:list"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cache",
		Name:      "requests_total",
		Help:      "The total number of cache lookups",
	},
	[]string{"result"},
)

func FlightKey(id string) string {
	return "flight:" + id
}

// FlightSearchKey encodes params as JSON. Map keys are sorted by the
// encoder, so equal searches share a key.
func FlightSearchKey(params map[string]string) string {
	return "flight:search:" + encodeParams(params)
}

func AnalyticsKey(params map[string]string) string {
	return "admin:analytics:" + encodeParams(params)
}

func encodeParams(params map[string]string) string {
	if params == nil {
		params = map[string]string{}
	}
	b, _ := json.Marshal(params)
	return string(b)
}

type Cache struct {
	client redis.UniversalClient
}

// New returns a cache over client. A nil client gives a cache that always
// misses.
func New(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON decodes the cached value into dest and reports a hit.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if !c.enabled() {
		return false
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		requestsTotal.WithLabelValues("miss").Inc()
		return false
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		log.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cached value is corrupted")
		requestsTotal.WithLabelValues("miss").Inc()
		return false
	}

	requestsTotal.WithLabelValues("hit").Inc()
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.enabled() {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		log.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cannot encode value for cache")
		return
	}

	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.FromContext(ctx).WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.enabled() || len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.FromContext(ctx).WithError(err).WithField("keys", keys).Warn("Cache delete failed")
	}
}

// DeletePattern removes every key matching pattern, walking the keyspace
// with SCAN.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if !c.enabled() {
		return
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.FromContext(ctx).WithError(err).WithField("pattern", pattern).Warn("Cache scan failed")
			return
		}

		c.Delete(ctx, keys...)

		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// Fetch returns the cached value of key, or loads and caches it.
func Fetch[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	if c.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.SetJSON(ctx, key, value, ttl)
	return value, nil
}
