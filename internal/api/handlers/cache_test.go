package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/strategy-chart-go/internal/cache"
	"github.com/irfndi/strategy-chart-go/internal/services"
)

// MockCacheAnalyticsService is a mock implementation of CacheAnalyticsInterface
type MockCacheAnalyticsService struct {
	mock.Mock
}

func (m *MockCacheAnalyticsService) GetStats(category string) services.CacheStats {
	args := m.Called(category)
	return args.Get(0).(services.CacheStats)
}

func (m *MockCacheAnalyticsService) GetAllStats() map[string]services.CacheStats {
	args := m.Called()
	return args.Get(0).(map[string]services.CacheStats)
}

func (m *MockCacheAnalyticsService) GetMetrics(ctx context.Context) (*services.CacheMetrics, error) {
	args := m.Called(ctx)
	metrics, _ := args.Get(0).(*services.CacheMetrics)
	return metrics, args.Error(1)
}

func (m *MockCacheAnalyticsService) ResetStats() {
	m.Called()
}

func (m *MockCacheAnalyticsService) ClearGeometryCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func cacheRouter(h *CacheHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1/cache")
	group.GET("/stats", h.GetCacheStats)
	group.GET("/stats/:category", h.GetCacheStatsByCategory)
	group.GET("/metrics", h.GetCacheMetrics)
	group.POST("/stats/reset", h.ResetCacheStats)
	group.POST("/geometry/clear", h.ClearGeometryCache)
	return router
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewCacheHandler(t *testing.T) {
	handler := NewCacheHandler(new(MockCacheAnalyticsService))
	assert.NotNil(t, handler)
}

func TestCacheHandler_GetCacheStats(t *testing.T) {
	mockService := new(MockCacheAnalyticsService)
	mockService.On("GetAllStats").Return(map[string]services.CacheStats{
		cache.CategoryGeometry: {Hits: 100, Misses: 20, HitRate: 0.83, TotalOps: 120, LastUpdated: time.Now()},
	})
	router := cacheRouter(NewCacheHandler(mockService))

	w := serve(router, http.MethodGet, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Success bool                           `json:"success"`
		Data    map[string]services.CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, int64(100), response.Data[cache.CategoryGeometry].Hits)
	mockService.AssertExpectations(t)
}

func TestCacheHandler_GetCacheStatsByCategory(t *testing.T) {
	mockService := new(MockCacheAnalyticsService)
	mockService.On("GetStats", cache.CategoryGeometry).Return(services.CacheStats{Hits: 3, Misses: 1, TotalOps: 4, HitRate: 0.75})
	router := cacheRouter(NewCacheHandler(mockService))

	w := serve(router, http.MethodGet, "/api/v1/cache/stats/geometry")
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data services.CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 0.75, response.Data.HitRate)
	mockService.AssertExpectations(t)
}

func TestCacheHandler_GetCacheMetrics(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockService := new(MockCacheAnalyticsService)
		mockService.On("GetMetrics", mock.Anything).Return(&services.CacheMetrics{
			Enabled:    true,
			Overall:    services.CacheStats{Hits: 5, TotalOps: 5, HitRate: 1},
			ByCategory: map[string]services.CacheStats{},
			KeyCount:   7,
		}, nil)
		router := cacheRouter(NewCacheHandler(mockService))

		w := serve(router, http.MethodGet, "/api/v1/cache/metrics")
		require.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data services.CacheMetrics `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Data.Enabled)
		assert.Equal(t, int64(7), response.Data.KeyCount)
	})

	t.Run("error", func(t *testing.T) {
		mockService := new(MockCacheAnalyticsService)
		mockService.On("GetMetrics", mock.Anything).Return(nil, errors.New("connection refused"))
		router := cacheRouter(NewCacheHandler(mockService))

		w := serve(router, http.MethodGet, "/api/v1/cache/metrics")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to get cache metrics: connection refused")
	})
}

func TestCacheHandler_ResetCacheStats(t *testing.T) {
	mockService := new(MockCacheAnalyticsService)
	mockService.On("ResetStats").Return()
	router := cacheRouter(NewCacheHandler(mockService))

	w := serve(router, http.MethodPost, "/api/v1/cache/stats/reset")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cache statistics reset successfully")
	mockService.AssertExpectations(t)
}

func TestCacheHandler_ClearGeometryCache(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
		body     string
	}{
		{"cleared", nil, http.StatusOK, "Geometry cache cleared successfully"},
		{"disabled", services.ErrGeometryCacheDisabled, http.StatusServiceUnavailable, "Geometry cache is disabled"},
		{"redis error", errors.New("connection refused"), http.StatusInternalServerError, "Failed to clear geometry cache: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCacheAnalyticsService)
			mockService.On("ClearGeometryCache", mock.Anything).Return(tt.err)
			router := cacheRouter(NewCacheHandler(mockService))

			w := serve(router, http.MethodPost, "/api/v1/cache/geometry/clear")
			assert.Equal(t, tt.expected, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
			mockService.AssertExpectations(t)
		})
	}
}

// Exercises the handler against the real analytics service without Redis.
func TestCacheEndpointsIntegration(t *testing.T) {
	analytics := services.NewCacheAnalyticsService(nil, nil)
	router := cacheRouter(NewCacheHandler(analytics))

	analytics.RecordHit(cache.CategoryGeometry)
	analytics.RecordHit(cache.CategoryGeometry)
	analytics.RecordMiss(cache.CategoryGeometry)

	w := serve(router, http.MethodGet, "/api/v1/cache/stats/geometry")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data services.CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Data.Hits)
	assert.Equal(t, int64(1), stats.Data.Misses)

	w = serve(router, http.MethodGet, "/api/v1/cache/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	var metrics struct {
		Data services.CacheMetrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.False(t, metrics.Data.Enabled)
	assert.Equal(t, int64(3), metrics.Data.Overall.TotalOps)

	w = serve(router, http.MethodPost, "/api/v1/cache/stats/reset")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(0), analytics.GetStats(cache.CategoryGeometry).TotalOps)
}
