package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/strategy-chart-go/internal/services"
)

// CacheAnalyticsInterface defines the interface for cache analytics operations
type CacheAnalyticsInterface interface {
	GetStats(category string) services.CacheStats
	GetAllStats() map[string]services.CacheStats
	GetMetrics(ctx context.Context) (*services.CacheMetrics, error)
	ResetStats()
	ClearGeometryCache(ctx context.Context) error
}

// CacheHandler handles cache monitoring and analytics endpoints
type CacheHandler struct {
	cacheAnalytics CacheAnalyticsInterface
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheAnalytics CacheAnalyticsInterface) *CacheHandler {
	return &CacheHandler{
		cacheAnalytics: cacheAnalytics,
	}
}

// GetCacheStats returns cache statistics for all categories
// @Summary Get cache statistics
// @Description Get geometry cache hit/miss statistics for all categories
// @Tags cache
// @Produce json
// @Success 200 {object} map[string]services.CacheStats
// @Router /api/v1/cache/stats [get]
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	stats := h.cacheAnalytics.GetAllStats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetCacheStatsByCategory returns cache statistics for a specific category
// @Summary Get cache statistics by category
// @Tags cache
// @Param category path string true "Cache category (e.g., geometry, overall)"
// @Produce json
// @Success 200 {object} services.CacheStats
// @Router /api/v1/cache/stats/{category} [get]
func (h *CacheHandler) GetCacheStatsByCategory(c *gin.Context) {
	category := c.Param("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Category parameter is required",
		})
		return
	}

	stats := h.cacheAnalytics.GetStats(category)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetCacheMetrics returns comprehensive cache metrics including Redis info
// @Summary Get comprehensive cache metrics
// @Tags cache
// @Produce json
// @Success 200 {object} services.CacheMetrics
// @Router /api/v1/cache/metrics [get]
func (h *CacheHandler) GetCacheMetrics(c *gin.Context) {
	metrics, err := h.cacheAnalytics.GetMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get cache metrics: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    metrics,
	})
}

// ResetCacheStats resets all cache statistics
// @Summary Reset cache statistics
// @Tags cache
// @Produce json
// @Router /api/v1/cache/stats/reset [post]
func (h *CacheHandler) ResetCacheStats(c *gin.Context) {
	h.cacheAnalytics.ResetStats()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache statistics reset successfully",
	})
}

// ClearGeometryCache drops every shared geometry entry from Redis
// @Summary Clear the shared geometry cache
// @Tags cache
// @Produce json
// @Router /api/v1/cache/geometry/clear [post]
func (h *CacheHandler) ClearGeometryCache(c *gin.Context) {
	err := h.cacheAnalytics.ClearGeometryCache(c.Request.Context())
	if errors.Is(err, services.ErrGeometryCacheDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "Geometry cache is disabled",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to clear geometry cache: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Geometry cache cleared successfully",
	})
}
