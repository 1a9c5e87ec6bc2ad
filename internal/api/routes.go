package api

import (
	"github.com/gin-gonic/gin"

	"github.com/irfndi/strategy-chart-go/internal/api/handlers"
	"github.com/irfndi/strategy-chart-go/internal/database"
	"github.com/irfndi/strategy-chart-go/internal/middleware"
	"github.com/irfndi/strategy-chart-go/internal/services"
)

// SetupRoutes registers every HTTP endpoint. redis is nil when the shared
// geometry cache is disabled.
func SetupRoutes(router *gin.Engine, dashboard *services.DashboardService, cacheAnalyticsService *services.CacheAnalyticsService, redis *database.RedisClient, adminMiddleware *middleware.AdminMiddleware) {
	// A nil *RedisClient inside the interface would not compare equal to nil.
	var redisHealth handlers.HealthChecker
	if redis != nil {
		redisHealth = redis
	}
	healthHandler := handlers.NewHealthHandler(redisHealth, dashboard)

	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)

	chartHandler := handlers.NewChartHandler(dashboard)
	cacheHandler := handlers.NewCacheHandler(cacheAnalyticsService)

	// API v1 routes with telemetry
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TelemetryMiddleware())
	{
		v1.GET("/series", chartHandler.ListSeries)

		views := v1.Group("/views")
		{
			views.POST("", chartHandler.CreateView)
			views.GET("/:id", chartHandler.GetView)
			views.DELETE("/:id", chartHandler.DeleteView)
			views.POST("/:id/actions", chartHandler.DispatchAction)
			views.POST("/:id/toggle/:series", chartHandler.ToggleSeries)
			views.PUT("/:id/scale/:mode", chartHandler.SetScaleMode)
			views.PUT("/:id/preset/:kind", chartHandler.ApplyPreset)
			views.GET("/:id/probe", chartHandler.Probe)
			views.DELETE("/:id/hover", chartHandler.ClearHover)
			views.GET("/:id/chart.svg", chartHandler.RenderSVG)
		}

		cacheGroup := v1.Group("/cache")
		{
			cacheGroup.GET("/stats", cacheHandler.GetCacheStats)
			cacheGroup.GET("/stats/:category", cacheHandler.GetCacheStatsByCategory)
			cacheGroup.GET("/metrics", cacheHandler.GetCacheMetrics)
			cacheGroup.POST("/stats/reset", adminMiddleware.RequireAdminAuth(), cacheHandler.ResetCacheStats)
			cacheGroup.POST("/geometry/clear", adminMiddleware.RequireAdminAuth(), cacheHandler.ClearGeometryCache)
		}
	}
}
