package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/strategy-chart-go/internal/telemetry"
)

var startTime = time.Now()

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDisabled  = "disabled"
)

// HealthChecker is satisfied by *database.RedisClient.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// DatasetInfo reports what the dashboard has loaded.
type DatasetInfo interface {
	MonthCount() int
	Version() string
	ViewCount() int
}

type HealthHandler struct {
	redis   HealthChecker
	dataset DatasetInfo
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	DataHash  string            `json:"data_version"`
	Views     int               `json:"views"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler creates a health handler. redis is nil when the
// geometry cache is disabled.
func NewHealthHandler(redis HealthChecker, dataset DatasetInfo) *HealthHandler {
	return &HealthHandler{
		redis:   redis,
		dataset: dataset,
	}
}

// HealthCheck reports the state of the loaded dataset and Redis
// @Summary Health check
// @Tags health
// @Produce json
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)

	if h.redis == nil {
		services["redis"] = statusDisabled
	} else if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
		services["redis"] = statusUnhealthy + ": " + err.Error()
	} else {
		services["redis"] = statusHealthy
	}

	if months := h.dataset.MonthCount(); months > 0 {
		services["dataset"] = statusHealthy
	} else {
		services["dataset"] = fmt.Sprintf("%s: %d months loaded", statusUnhealthy, months)
	}

	// Determine overall status
	overallStatus := statusHealthy
	for _, status := range services {
		if status != statusHealthy && status != statusDisabled {
			overallStatus = statusUnhealthy
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   telemetry.ServiceVersion,
		DataHash:  h.dataset.Version(),
		Views:     h.dataset.ViewCount(),
		Uptime:    time.Since(startTime).String(),
	}

	statusCode := http.StatusOK
	if overallStatus != statusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}
