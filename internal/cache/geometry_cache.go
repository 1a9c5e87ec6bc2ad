package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/strategy-chart-go/internal/chart"
	"github.com/irfndi/strategy-chart-go/internal/logging"
	"github.com/irfndi/strategy-chart-go/internal/models"
)

// CategoryGeometry is the analytics category geometry lookups report under.
const CategoryGeometry = "geometry"

// GeometryKey identifies a base geometry: everything it depends on except
// the hovered index.
type GeometryKey struct {
	Version   string
	ScaleMode models.ScaleMode
	Visible   []string
	Canvas    chart.Canvas
	YTicks    int
}

// String renders the redis key. Visible must already be sorted; the series
// list and canvas are folded into one hash to keep keys short.
func (k GeometryKey) String() string {
	h := xxhash.New()
	_, _ = h.WriteString(strings.Join(k.Visible, ","))
	_, _ = fmt.Fprintf(h, "|%v|%d", k.Canvas, k.YTicks)
	return k.Version + ":" + string(k.ScaleMode) + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// GeometryCacheEntry represents a cached geometry with metadata
type GeometryCacheEntry struct {
	Geometry  chart.Geometry `json:"geometry"`
	CachedAt  time.Time      `json:"cached_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// GeometryCacheStats tracks cache performance metrics
type GeometryCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// AnalyticsRecorder receives hit/miss events per category.
type AnalyticsRecorder interface {
	RecordHit(category string)
	RecordMiss(category string)
}

// RedisGeometryCache implements geometry caching using Redis
type RedisGeometryCache struct {
	redis     *redis.Client
	ttl       time.Duration
	prefix    string
	logger    *logrus.Entry
	ops       *logging.StandardLogger
	analytics AnalyticsRecorder
	breaker   *CircuitBreaker

	mu    sync.RWMutex
	stats GeometryCacheStats
}

// NewRedisGeometryCache creates a new Redis-based geometry cache
func NewRedisGeometryCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisGeometryCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisGeometryCache{
		redis:   redisClient,
		ttl:     ttl,
		prefix:  "geometry_cache:",
		logger:  logger.WithField("component", "geometry_cache"),
		ops:     logging.WrapLogger(logger),
		breaker: NewCircuitBreaker("redis_geometry_cache", CircuitBreakerConfig{}, logger),
	}
}

// Breaker exposes the circuit breaker guarding Redis calls.
func (c *RedisGeometryCache) Breaker() *CircuitBreaker {
	return c.breaker
}

// SetAnalytics forwards hit/miss events to recorder.
func (c *RedisGeometryCache) SetAnalytics(recorder AnalyticsRecorder) {
	c.analytics = recorder
}

func (c *RedisGeometryCache) recordHit() {
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	if c.analytics != nil {
		c.analytics.RecordHit(CategoryGeometry)
	}
}

func (c *RedisGeometryCache) recordMiss(failed bool) {
	c.mu.Lock()
	c.stats.Misses++
	if failed {
		c.stats.Errors++
	}
	c.mu.Unlock()
	if c.analytics != nil {
		c.analytics.RecordMiss(CategoryGeometry)
	}
}

// Get retrieves a base geometry from Redis cache
func (c *RedisGeometryCache) Get(ctx context.Context, key GeometryKey) (chart.Geometry, bool) {
	cacheKey := c.prefix + key.String()

	if c.breaker.Allow() != nil {
		c.recordMiss(false)
		return chart.Geometry{}, false
	}

	start := time.Now()
	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.breaker.Record(nil)
		c.recordMiss(false)
		c.ops.LogCacheOperation("get", cacheKey, false, time.Since(start).Milliseconds())
		return chart.Geometry{}, false
	}
	c.breaker.Record(err)
	if err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Redis error getting geometry")
		c.recordMiss(true)
		return chart.Geometry{}, false
	}

	var entry GeometryCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Error deserializing cached geometry")
		c.recordMiss(true)
		return chart.Geometry{}, false
	}

	c.recordHit()
	c.ops.LogCacheOperation("get", cacheKey, true, time.Since(start).Milliseconds())
	return entry.Geometry, true
}

// Set stores a base geometry in Redis cache. Failures are logged and
// otherwise ignored; the caller already holds the computed value.
func (c *RedisGeometryCache) Set(ctx context.Context, key GeometryKey, g chart.Geometry) {
	cacheKey := c.prefix + key.String()

	now := time.Now()
	entry := GeometryCacheEntry{
		Geometry:  g,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Error serializing geometry")
		return
	}

	if c.breaker.Allow() != nil {
		return
	}
	err = c.redis.Set(ctx, cacheKey, data, c.ttl).Err()
	c.breaker.Record(err)
	if err != nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("Redis error setting geometry")
		c.mu.Lock()
		c.stats.Errors++
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.stats.Sets++
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"key":   cacheKey,
		"paths": len(g.Paths),
		"ttl":   c.ttl.String(),
	}).Debug("Cached geometry")
}

// GetStats returns current cache statistics
func (c *RedisGeometryCache) GetStats() GeometryCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// LogStats logs current cache performance statistics
func (c *RedisGeometryCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	c.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", hitRate),
	}).Info("Geometry cache stats")
}

func (c *RedisGeometryCache) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning cache keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of cached geometries.
func (c *RedisGeometryCache) Count(ctx context.Context) (int, error) {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Clear removes all cached geometries, e.g. after the bundle is reloaded.
// A successful clear proves Redis is reachable, so the breaker is closed.
func (c *RedisGeometryCache) Clear(ctx context.Context) error {
	keys, err := c.scanKeys(ctx)
	if err != nil {
		return err
	}
	c.breaker.Reset()
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}

	c.logger.WithField("entries", len(keys)).Info("Cleared geometry cache")
	return nil
}
