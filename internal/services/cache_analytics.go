package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/strategy-chart-go/internal/cache"
)

const (
	overallCategory = "overall"
	statsReportKey  = "chart:cache_analytics:stats"
)

// ErrGeometryCacheDisabled is returned by ClearGeometryCache when no shared
// geometry cache is configured.
var ErrGeometryCacheDisabled = errors.New("geometry cache is disabled")

// GeometryCacheAdmin is the operational side of the shared geometry cache.
type GeometryCacheAdmin interface {
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	LogStats()
	Breaker() *cache.CircuitBreaker
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	HitRate     float64   `json:"hit_rate"`
	TotalOps    int64     `json:"total_ops"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheMetrics represents detailed cache metrics by category
type CacheMetrics struct {
	Enabled          bool                       `json:"enabled"`
	Overall          CacheStats                 `json:"overall"`
	ByCategory       map[string]CacheStats      `json:"by_category"`
	RedisInfo        map[string]string          `json:"redis_info,omitempty"`
	MemoryUsage      int64                      `json:"memory_usage_bytes"`
	ConnectedClients int64                      `json:"connected_clients"`
	KeyCount         int64                      `json:"key_count"`
	GeometryEntries  int64                      `json:"geometry_entries"`
	CircuitBreaker   *cache.CircuitBreakerStats `json:"circuit_breaker,omitempty"`
}

// CacheAnalyticsService tracks cache performance metrics. redisClient may be
// nil when the geometry cache is disabled; stats are then still kept.
type CacheAnalyticsService struct {
	redisClient *redis.Client
	geometry    GeometryCacheAdmin
	logger      *logrus.Entry
	stats       map[string]*CacheStats
	mu          sync.RWMutex
}

// NewCacheAnalyticsService creates a new cache analytics service
func NewCacheAnalyticsService(redisClient *redis.Client, logger *logrus.Logger) *CacheAnalyticsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CacheAnalyticsService{
		redisClient: redisClient,
		logger:      logger.WithField("component", "cache_analytics"),
		stats:       make(map[string]*CacheStats),
	}
}

// SetGeometryCache attaches the shared geometry cache so metrics and
// reports include its size and breaker state.
func (c *CacheAnalyticsService) SetGeometryCache(geometry GeometryCacheAdmin) {
	c.geometry = geometry
}

func (c *CacheAnalyticsService) record(category string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, name := range []string{category, overallCategory} {
		stats := c.stats[name]
		if stats == nil {
			stats = &CacheStats{}
			c.stats[name] = stats
		}
		if hit {
			stats.Hits++
		} else {
			stats.Misses++
		}
		stats.TotalOps++
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalOps)
		stats.LastUpdated = now
	}
}

// RecordHit records a cache hit for the given category
func (c *CacheAnalyticsService) RecordHit(category string) {
	c.record(category, true)
}

// RecordMiss records a cache miss for the given category
func (c *CacheAnalyticsService) RecordMiss(category string) {
	c.record(category, false)
}

// GetStats returns cache statistics for a specific category
func (c *CacheAnalyticsService) GetStats(category string) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if stats, exists := c.stats[category]; exists {
		return *stats
	}
	return CacheStats{}
}

// GetAllStats returns all cache statistics
func (c *CacheAnalyticsService) GetAllStats() map[string]CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]CacheStats, len(c.stats))
	for category, stats := range c.stats {
		result[category] = *stats
	}
	return result
}

// GetMetrics returns comprehensive cache metrics including Redis info
func (c *CacheAnalyticsService) GetMetrics(ctx context.Context) (*CacheMetrics, error) {
	allStats := c.GetAllStats()

	metrics := &CacheMetrics{
		Enabled:    c.redisClient != nil,
		ByCategory: make(map[string]CacheStats, len(allStats)),
	}
	for category, stats := range allStats {
		if category == overallCategory {
			metrics.Overall = stats
			continue
		}
		metrics.ByCategory[category] = stats
	}
	if c.geometry != nil {
		breakerStats := c.geometry.Breaker().GetStats()
		metrics.CircuitBreaker = &breakerStats
	}

	if c.redisClient == nil {
		return metrics, nil
	}

	// Multi-section INFO needs Redis 7; the default sections carry both
	// memory and clients.
	redisInfo, err := c.redisClient.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	metrics.RedisInfo = c.parseRedisInfo(redisInfo)
	metrics.MemoryUsage = parseInfoInt(metrics.RedisInfo, "used_memory")
	metrics.ConnectedClients = parseInfoInt(metrics.RedisInfo, "connected_clients")

	keyCount, err := c.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}
	metrics.KeyCount = keyCount

	if c.geometry != nil {
		entries, err := c.geometry.Count(ctx)
		if err != nil {
			return nil, err
		}
		metrics.GeometryEntries = int64(entries)
	}

	return metrics, nil
}

func parseInfoInt(info map[string]string, key string) int64 {
	n, err := strconv.ParseInt(info[key], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseRedisInfo parses Redis INFO command output
func (c *CacheAnalyticsService) parseRedisInfo(info string) map[string]string {
	result := make(map[string]string)

	if info == "" {
		return result
	}

	lines := strings.Split(info, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}

	return result
}

// ResetStats resets all cache statistics
func (c *CacheAnalyticsService) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*CacheStats)
}

// ClearGeometryCache drops every shared geometry entry.
func (c *CacheAnalyticsService) ClearGeometryCache(ctx context.Context) error {
	if c.geometry == nil {
		return ErrGeometryCacheDisabled
	}
	return c.geometry.Clear(ctx)
}

// StartPeriodicReporting starts periodic reporting of cache stats to Redis
func (c *CacheAnalyticsService) StartPeriodicReporting(ctx context.Context, interval time.Duration) {
	if c.redisClient == nil {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.reportStats(ctx)
			}
		}
	}()
}

// reportStats reports current stats to Redis for persistence
func (c *CacheAnalyticsService) reportStats(ctx context.Context) {
	if c.geometry != nil {
		c.geometry.LogStats()
	}

	statsJSON, err := json.Marshal(c.GetAllStats())
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode cache stats")
		return
	}

	// Store stats in Redis with 24 hour TTL
	if err := c.redisClient.Set(ctx, statsReportKey, statsJSON, 24*time.Hour).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to report cache stats")
	}
}
