package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/strategy-chart-go/internal/chart"
	"github.com/irfndi/strategy-chart-go/internal/dataset"
	"github.com/irfndi/strategy-chart-go/internal/models"
	"github.com/irfndi/strategy-chart-go/internal/services"
)

func testBundle() *dataset.Bundle {
	ds := models.NewDataset([]models.MonthlyPoint{
		models.NewMonthlyPoint("2020-01", models.RegimeBull, map[string]float64{"strategy": 100, "spy": 100}),
		models.NewMonthlyPoint("2020-02", models.RegimeBear, map[string]float64{"strategy": 96, "spy": 88}),
		models.NewMonthlyPoint("2020-03", models.RegimeBull, map[string]float64{"strategy": 112.345, "spy": 94}),
	})
	return &dataset.Bundle{
		Dataset: ds,
		Series: models.SeriesSet{
			{ID: "strategy", DisplayName: "Strategy", Color: "#2563eb", StrokeWidth: 2, DefaultVisible: true},
			{ID: "spy", DisplayName: "S&P 500", Color: "#6b7280", StrokeWidth: 1.5},
		},
		Annotations: models.Annotations{RegimeSwitches: models.DeriveRegimeSwitches(ds)},
		Version:     "test-version",
	}
}

func newTestDashboard() *services.DashboardService {
	return services.NewDashboardService(testBundle(), services.DashboardConfig{
		Canvas:     chart.DefaultCanvas(),
		YTickCount: 5,
		ViewTTL:    time.Minute,
	}, nil, nil)
}

func chartRouter(h *ChartHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/series", h.ListSeries)
	views := router.Group("/views")
	views.POST("", h.CreateView)
	views.GET("/:id", h.GetView)
	views.DELETE("/:id", h.DeleteView)
	views.POST("/:id/actions", h.DispatchAction)
	views.POST("/:id/toggle/:series", h.ToggleSeries)
	views.PUT("/:id/scale/:mode", h.SetScaleMode)
	views.PUT("/:id/preset/:kind", h.ApplyPreset)
	views.GET("/:id/probe", h.Probe)
	views.DELETE("/:id/hover", h.ClearHover)
	views.GET("/:id/chart.svg", h.RenderSVG)
	return router
}

type snapshotResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Data    services.ViewSnapshot `json:"data"`
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, snapshotResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp snapshotResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func createView(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, resp := do(t, router, http.MethodPost, "/views", "")
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Data.ID)
	return resp.Data.ID
}

func TestChartHandler_ListSeries(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/series", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Series  models.SeriesSet `json:"series"`
			Version string           `json:"version"`
			Months  int              `json:"months"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"strategy", "spy"}, resp.Data.Series.IDs())
	assert.Equal(t, "test-version", resp.Data.Version)
	assert.Equal(t, 3, resp.Data.Months)
}

func TestChartHandler_ViewLifecycle(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))
	id := createView(t, router)

	w, resp := do(t, router, http.MethodGet, "/views/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"strategy"}, resp.Data.State.Visible.IDs())
	require.Len(t, resp.Data.Geometry.Paths, 1)

	w, resp = do(t, router, http.MethodDelete, "/views/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	w, resp = do(t, router, http.MethodGet, "/views/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "view not found")

	w, _ = do(t, router, http.MethodDelete, "/views/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChartHandler_Actions(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))
	id := createView(t, router)

	w, resp := do(t, router, http.MethodPost, "/views/"+id+"/toggle/spy", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"spy", "strategy"}, resp.Data.State.Visible.IDs())

	w, resp = do(t, router, http.MethodPut, "/views/"+id+"/scale/log", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScaleLog, resp.Data.State.ScaleMode)
	assert.Equal(t, models.ScaleLog, resp.Data.Geometry.ScaleMode)

	w, resp = do(t, router, http.MethodPut, "/views/"+id+"/preset/main", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"strategy"}, resp.Data.State.Visible.IDs())

	w, resp = do(t, router, http.MethodPost, "/views/"+id+"/actions", `{"type":"set_hover","index":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Data.Geometry.Hover)
	assert.Equal(t, "2020-03", resp.Data.Geometry.Hover.Month)
	require.Len(t, resp.Data.Geometry.Hover.Points, 1)
	assert.Equal(t, "112.35", resp.Data.Geometry.Hover.Points[0].Display)

	w, resp = do(t, router, http.MethodDelete, "/views/"+id+"/hover", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, resp.Data.State.Hovered)
	assert.Nil(t, resp.Data.Geometry.Hover)
}

func TestChartHandler_BadRequests(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))
	id := createView(t, router)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"unknown scale", http.MethodPut, "/views/" + id + "/scale/cubic", "", "Unknown scale mode"},
		{"unknown preset", http.MethodPut, "/views/" + id + "/preset/none", "", "Unknown preset"},
		{"malformed action", http.MethodPost, "/views/" + id + "/actions", `{"type":`, "Invalid action"},
		{"unknown action", http.MethodPost, "/views/" + id + "/actions", `{"type":"zoom"}`, "unknown action"},
		{"missing x", http.MethodGet, "/views/" + id + "/probe", "", "must be a number"},
		{"bad x", http.MethodGet, "/views/" + id + "/probe?x=left", "", "must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestChartHandler_Probe(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))
	id := createView(t, router)

	w, resp := do(t, router, http.MethodGet, "/views/"+id+"/probe?x=5000", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Data.State.Hovered)
	assert.Equal(t, 2, *resp.Data.State.Hovered)

	w, _ = do(t, router, http.MethodGet, "/views/missing/probe?x=1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChartHandler_RenderSVG(t *testing.T) {
	router := chartRouter(NewChartHandler(newTestDashboard()))
	id := createView(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/views/"+id+"/chart.svg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml; charset=utf-8", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))

	w, _ = do(t, router, http.MethodGet, "/views/missing/chart.svg", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) CreateView(ctx context.Context) (*services.ViewSnapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*services.ViewSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) GetView(ctx context.Context, id string) (*services.ViewSnapshot, error) {
	args := m.Called(ctx, id)
	snap, _ := args.Get(0).(*services.ViewSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) DeleteView(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockDashboardService) Dispatch(ctx context.Context, id string, action chart.Action) (*services.ViewSnapshot, error) {
	args := m.Called(ctx, id, action)
	snap, _ := args.Get(0).(*services.ViewSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) ProbeHover(ctx context.Context, id string, pixelX float64) (*services.ViewSnapshot, error) {
	args := m.Called(ctx, id, pixelX)
	snap, _ := args.Get(0).(*services.ViewSnapshot)
	return snap, args.Error(1)
}

func (m *MockDashboardService) RenderSVG(ctx context.Context, id string, w io.Writer) error {
	return m.Called(ctx, id, w).Error(0)
}

func (m *MockDashboardService) Series() models.SeriesSet {
	return m.Called().Get(0).(models.SeriesSet)
}

func (m *MockDashboardService) Version() string {
	return m.Called().String(0)
}

func (m *MockDashboardService) MonthCount() int {
	return m.Called().Int(0)
}

func (m *MockDashboardService) ViewCount() int {
	return m.Called().Int(0)
}

func TestChartHandler_InternalError(t *testing.T) {
	dashboard := new(MockDashboardService)
	dashboard.On("CreateView", mock.Anything).Return(nil, errors.New("out of memory"))
	dashboard.On("RenderSVG", mock.Anything, "abc", mock.Anything).Return(errors.New("write failed"))
	router := chartRouter(NewChartHandler(dashboard))

	w, resp := do(t, router, http.MethodPost, "/views", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "out of memory", resp.Error)

	w, resp = do(t, router, http.MethodGet, "/views/abc/chart.svg", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "write failed", resp.Error)

	dashboard.AssertExpectations(t)
}

func TestChartHandler_DispatchPassesAction(t *testing.T) {
	dashboard := new(MockDashboardService)
	snap := &services.ViewSnapshot{ID: "abc"}
	dashboard.On("Dispatch", mock.Anything, "abc", chart.ToggleSeries("spy")).Return(snap, nil)
	dashboard.On("Dispatch", mock.Anything, "abc", chart.SetScaleMode(models.ScaleLinear)).Return(snap, nil)
	dashboard.On("Dispatch", mock.Anything, "abc", chart.ApplyPreset(models.PresetAll)).Return(snap, nil)
	dashboard.On("Dispatch", mock.Anything, "abc", chart.ClearHover()).Return(snap, nil)
	router := chartRouter(NewChartHandler(dashboard))

	for _, req := range []struct{ method, path string }{
		{http.MethodPost, "/views/abc/toggle/spy"},
		{http.MethodPut, "/views/abc/scale/linear"},
		{http.MethodPut, "/views/abc/preset/all"},
		{http.MethodDelete, "/views/abc/hover"},
	} {
		w, resp := do(t, router, req.method, req.path, "")
		assert.Equal(t, http.StatusOK, w.Code, req.path)
		assert.Equal(t, "abc", resp.Data.ID)
	}

	dashboard.AssertExpectations(t)
}
