package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/strategy-chart-go/internal/api"
	"github.com/irfndi/strategy-chart-go/internal/cache"
	"github.com/irfndi/strategy-chart-go/internal/chart"
	"github.com/irfndi/strategy-chart-go/internal/config"
	"github.com/irfndi/strategy-chart-go/internal/database"
	"github.com/irfndi/strategy-chart-go/internal/dataset"
	"github.com/irfndi/strategy-chart-go/internal/logging"
	"github.com/irfndi/strategy-chart-go/internal/middleware"
	"github.com/irfndi/strategy-chart-go/internal/services"
	"github.com/irfndi/strategy-chart-go/internal/telemetry"
	"github.com/irfndi/strategy-chart-go/internal/utils"
)

const (
	janitorInterval   = time.Minute
	reportingInterval = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	log := logger.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize telemetry first so bundle loading is traced
	provider, err := telemetry.InitTelemetry(ctx, telemetry.TelemetryConfig{
		Enabled:     cfg.Telemetry.Enabled,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	bundle, err := loadBundle(ctx, cfg.Data.Dir, logger)
	if err != nil {
		return err
	}

	// Redis is optional; without it views still memoise their own geometry.
	var (
		redisClient   *database.RedisClient
		geometryCache services.GeometryCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewRedisConnection(cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
	}

	var cacheAnalyticsService *services.CacheAnalyticsService
	if redisClient != nil {
		cacheAnalyticsService = services.NewCacheAnalyticsService(redisClient.Client, log)
		rc := cache.NewRedisGeometryCache(redisClient.Client, cfg.Cache.TTL, log)
		rc.SetAnalytics(cacheAnalyticsService)
		cacheAnalyticsService.SetGeometryCache(rc)
		geometryCache = rc
	} else {
		cacheAnalyticsService = services.NewCacheAnalyticsService(nil, log)
	}
	cacheAnalyticsService.StartPeriodicReporting(ctx, reportingInterval)

	dashboard := services.NewDashboardService(bundle, services.DashboardConfig{
		Canvas: chart.Canvas{
			Width:  cfg.Chart.Width,
			Height: cfg.Chart.Height,
			Padding: chart.Padding{
				Top:    cfg.Chart.Padding.Top,
				Right:  cfg.Chart.Padding.Right,
				Bottom: cfg.Chart.Padding.Bottom,
				Left:   cfg.Chart.Padding.Left,
			},
		},
		MainSeries: cfg.Chart.MainSeries,
		YTickCount: cfg.Chart.YTickCount,
		ViewTTL:    cfg.Chart.ViewTTL,
	}, geometryCache, log)
	dashboard.StartJanitor(ctx, janitorInterval)

	adminMiddleware := middleware.NewAdminMiddleware(cfg.Server.AdminAPIKey)
	if !adminMiddleware.Enabled() {
		logger.WithComponent("server").Warn("No admin API key configured; admin endpoints are disabled")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(logger))

	api.SetupRoutes(router, dashboard, cacheAnalyticsService, redisClient, adminMiddleware)

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(cfg.Telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "signal received: "+sig.String())
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Stop background workers before draining requests
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}

// loadBundle reads and validates the data directory under a trace span.
func loadBundle(ctx context.Context, dir string, logger *logging.StandardLogger) (*dataset.Bundle, error) {
	tracer := telemetry.NewBusinessTracer()
	_, span := tracer.TraceBundleLoad(ctx, dir)
	defer span.End()

	bundle, err := dataset.NewLoader(dir, logger.Logger()).Load()
	if err != nil {
		tracer.RecordError(span, err)
		if utils.IsValidationError(err) {
			return nil, fmt.Errorf("invalid chart data in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to load chart data from %s: %w", dir, err)
	}

	logger.LogBusinessEvent("bundle_loaded", map[string]interface{}{
		"data_dir": dir,
		"months":   bundle.Dataset.Len(),
		"series":   len(bundle.Series),
		"version":  bundle.Version,
	})
	return bundle, nil
}
