package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/strategy-chart-go/internal/chart"
	"github.com/irfndi/strategy-chart-go/internal/middleware"
	"github.com/irfndi/strategy-chart-go/internal/models"
	"github.com/irfndi/strategy-chart-go/internal/services"
)

// DashboardServiceInterface defines the view operations the chart
// endpoints need.
type DashboardServiceInterface interface {
	CreateView(ctx context.Context) (*services.ViewSnapshot, error)
	GetView(ctx context.Context, id string) (*services.ViewSnapshot, error)
	DeleteView(id string) error
	Dispatch(ctx context.Context, id string, action chart.Action) (*services.ViewSnapshot, error)
	ProbeHover(ctx context.Context, id string, pixelX float64) (*services.ViewSnapshot, error)
	RenderSVG(ctx context.Context, id string, w io.Writer) error
	Series() models.SeriesSet
	Version() string
	MonthCount() int
	ViewCount() int
}

// ChartHandler handles dashboard view endpoints
type ChartHandler struct {
	dashboard DashboardServiceInterface
}

// NewChartHandler creates a new chart handler
func NewChartHandler(dashboard DashboardServiceInterface) *ChartHandler {
	return &ChartHandler{dashboard: dashboard}
}

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrViewNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrUnknownAction):
		status = http.StatusBadRequest
	default:
		_ = c.Error(err)
		middleware.RecordError(c, err, "chart request failed")
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
	})
}

func respondSnapshot(c *gin.Context, status int, snap *services.ViewSnapshot) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    snap,
	})
}

// ListSeries returns the series definitions and bundle metadata
// @Summary List chart series
// @Tags chart
// @Produce json
// @Router /api/v1/series [get]
func (h *ChartHandler) ListSeries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"series":  h.dashboard.Series(),
			"version": h.dashboard.Version(),
			"months":  h.dashboard.MonthCount(),
		},
	})
}

// CreateView mounts a new chart view in its initial state
// @Summary Create view
// @Tags chart
// @Produce json
// @Router /api/v1/views [post]
func (h *ChartHandler) CreateView(c *gin.Context) {
	snap, err := h.dashboard.CreateView(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.AddSpanAttribute(c, "chart.view_id", snap.ID)
	respondSnapshot(c, http.StatusCreated, snap)
}

// GetView returns the state and geometry of a view
// @Summary Get view
// @Tags chart
// @Param id path string true "View ID"
// @Produce json
// @Router /api/v1/views/{id} [get]
func (h *ChartHandler) GetView(c *gin.Context) {
	snap, err := h.dashboard.GetView(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSnapshot(c, http.StatusOK, snap)
}

// DeleteView unmounts a view
// @Summary Delete view
// @Tags chart
// @Param id path string true "View ID"
// @Produce json
// @Router /api/v1/views/{id} [delete]
func (h *ChartHandler) DeleteView(c *gin.Context) {
	if err := h.dashboard.DeleteView(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "View deleted",
	})
}

// DispatchAction applies a JSON-encoded action to a view
// @Summary Apply action
// @Tags chart
// @Param id path string true "View ID"
// @Accept json
// @Produce json
// @Router /api/v1/views/{id}/actions [post]
func (h *ChartHandler) DispatchAction(c *gin.Context) {
	var action chart.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		badRequest(c, "Invalid action: "+err.Error())
		return
	}
	h.dispatch(c, action)
}

// ToggleSeries flips the visibility of one series
// @Summary Toggle series
// @Tags chart
// @Param id path string true "View ID"
// @Param series path string true "Series ID"
// @Produce json
// @Router /api/v1/views/{id}/toggle/{series} [post]
func (h *ChartHandler) ToggleSeries(c *gin.Context) {
	h.dispatch(c, chart.ToggleSeries(c.Param("series")))
}

// SetScaleMode switches a view between linear and log scale
// @Summary Set scale mode
// @Tags chart
// @Param id path string true "View ID"
// @Param mode path string true "linear or log"
// @Produce json
// @Router /api/v1/views/{id}/scale/{mode} [put]
func (h *ChartHandler) SetScaleMode(c *gin.Context) {
	mode := models.ScaleMode(c.Param("mode"))
	if !mode.IsValid() {
		badRequest(c, "Unknown scale mode: "+string(mode))
		return
	}
	h.dispatch(c, chart.SetScaleMode(mode))
}

// ApplyPreset replaces the visible set with a preset
// @Summary Apply preset
// @Tags chart
// @Param id path string true "View ID"
// @Param kind path string true "main or all"
// @Produce json
// @Router /api/v1/views/{id}/preset/{kind} [put]
func (h *ChartHandler) ApplyPreset(c *gin.Context) {
	preset := models.Preset(c.Param("kind"))
	if !preset.IsValid() {
		badRequest(c, "Unknown preset: "+string(preset))
		return
	}
	h.dispatch(c, chart.ApplyPreset(preset))
}

// Probe hovers the month nearest to a horizontal pixel position
// @Summary Probe hover
// @Tags chart
// @Param id path string true "View ID"
// @Param x query number true "Pixel x on the chart canvas"
// @Produce json
// @Router /api/v1/views/{id}/probe [get]
func (h *ChartHandler) Probe(c *gin.Context) {
	x, err := strconv.ParseFloat(c.Query("x"), 64)
	if err != nil {
		badRequest(c, "Query parameter x must be a number")
		return
	}

	snap, err := h.dashboard.ProbeHover(c.Request.Context(), c.Param("id"), x)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSnapshot(c, http.StatusOK, snap)
}

// ClearHover removes the hover readout
// @Summary Clear hover
// @Tags chart
// @Param id path string true "View ID"
// @Produce json
// @Router /api/v1/views/{id}/hover [delete]
func (h *ChartHandler) ClearHover(c *gin.Context) {
	h.dispatch(c, chart.ClearHover())
}

// RenderSVG returns the view as an SVG image
// @Summary Render view
// @Tags chart
// @Param id path string true "View ID"
// @Produce image/svg+xml
// @Router /api/v1/views/{id}/chart.svg [get]
func (h *ChartHandler) RenderSVG(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.dashboard.RenderSVG(c.Request.Context(), c.Param("id"), &buf); err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", buf.Bytes())
}

func (h *ChartHandler) dispatch(c *gin.Context, action chart.Action) {
	middleware.AddSpanAttribute(c, "chart.action", string(action.Type))

	snap, err := h.dashboard.Dispatch(c.Request.Context(), c.Param("id"), action)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSnapshot(c, http.StatusOK, snap)
}
