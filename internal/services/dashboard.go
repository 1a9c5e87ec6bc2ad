package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/strategy-chart-go/internal/cache"
	"github.com/irfndi/strategy-chart-go/internal/chart"
	"github.com/irfndi/strategy-chart-go/internal/dataset"
	"github.com/irfndi/strategy-chart-go/internal/models"
	"github.com/irfndi/strategy-chart-go/internal/telemetry"
)

var (
	// ErrViewNotFound is returned for an unknown or evicted view ID.
	ErrViewNotFound = errors.New("view not found")
	// ErrUnknownAction is returned for an action type the reducer does not know.
	ErrUnknownAction = errors.New("unknown action")
)

// GeometryCache stores base geometries shared across views.
type GeometryCache interface {
	Get(ctx context.Context, key cache.GeometryKey) (chart.Geometry, bool)
	Set(ctx context.Context, key cache.GeometryKey, g chart.Geometry)
}

// DashboardConfig holds the chart settings every view shares.
type DashboardConfig struct {
	Canvas     chart.Canvas
	MainSeries []string
	YTickCount int
	ViewTTL    time.Duration
}

// view is one mounted chart. Its mutex serialises actions on the view;
// base memoises the geometry that does not depend on the hovered index.
type view struct {
	mu        sync.Mutex
	id        string
	state     chart.ViewState
	base      *chart.Geometry
	createdAt time.Time
	updatedAt time.Time
}

// ViewSnapshot is a consistent copy of a view and its drawable geometry.
type ViewSnapshot struct {
	ID        string          `json:"id"`
	State     chart.ViewState `json:"state"`
	Geometry  chart.Geometry  `json:"geometry"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DashboardService owns the loaded bundle and every live view.
type DashboardService struct {
	bundle  *dataset.Bundle
	input   chart.Input
	reducer chart.Reducer
	cfg     DashboardConfig
	cache   GeometryCache
	tracer  *telemetry.BusinessTracer
	logger  *logrus.Entry
	now     func() time.Time

	mu    sync.RWMutex
	views map[string]*view
}

// NewDashboardService creates a service over bundle. geometryCache may be
// nil, in which case base geometry is only memoised per view.
func NewDashboardService(bundle *dataset.Bundle, cfg DashboardConfig, geometryCache GeometryCache, logger *logrus.Logger) *DashboardService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.YTickCount <= 0 {
		cfg.YTickCount = chart.DefaultYTickCount
	}

	entry := logger.WithField("component", "dashboard_service")
	for _, id := range cfg.MainSeries {
		if !bundle.Series.Has(id) {
			entry.WithField("series_id", id).Warn("Main preset names an undefined series")
		}
	}

	return &DashboardService{
		bundle: bundle,
		input: chart.Input{
			Dataset:     bundle.Dataset,
			Series:      bundle.Series,
			Annotations: bundle.Annotations,
			Canvas:      cfg.Canvas,
			YTickCount:  cfg.YTickCount,
		},
		reducer: chart.Reducer{
			Series: bundle.Series,
			Main:   cfg.MainSeries,
			Count:  bundle.Dataset.Len(),
		},
		cfg:    cfg,
		cache:  geometryCache,
		tracer: telemetry.NewBusinessTracer(),
		logger: entry,
		now:    time.Now,
		views:  make(map[string]*view),
	}
}

// Series returns the series definitions in drawing order.
func (s *DashboardService) Series() models.SeriesSet {
	return s.bundle.Series
}

// Version returns the content hash of the loaded bundle.
func (s *DashboardService) Version() string {
	return s.bundle.Version
}

// MonthCount returns the number of months in the dataset.
func (s *DashboardService) MonthCount() int {
	return s.bundle.Dataset.Len()
}

// ViewCount returns the number of live views.
func (s *DashboardService) ViewCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// CreateView mounts a new chart in its initial state.
func (s *DashboardService) CreateView(ctx context.Context) (*ViewSnapshot, error) {
	now := s.now()
	v := &view{
		id:        uuid.New().String(),
		state:     s.reducer.Initial(),
		createdAt: now,
		updatedAt: now,
	}

	s.mu.Lock()
	s.views[v.id] = v
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"view_id": v.id,
		"visible": v.state.Visible.IDs(),
	}).Info("View created")

	v.mu.Lock()
	defer v.mu.Unlock()
	return s.snapshot(ctx, v), nil
}

func (s *DashboardService) lookup(id string) (*view, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return v, nil
}

// GetView returns the current state and geometry of a view.
func (s *DashboardService) GetView(ctx context.Context, id string) (*ViewSnapshot, error) {
	v, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.updatedAt = s.now()
	return s.snapshot(ctx, v), nil
}

// DeleteView unmounts a view.
func (s *DashboardService) DeleteView(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.views[id]; !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	delete(s.views, id)
	s.logger.WithField("view_id", id).Info("View deleted")
	return nil
}

// Dispatch applies action to a view and returns the resulting snapshot.
func (s *DashboardService) Dispatch(ctx context.Context, id string, action chart.Action) (*ViewSnapshot, error) {
	if !action.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}

	v, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.TraceViewAction(ctx, id, string(action.Type))
	defer span.End()

	v.mu.Lock()
	defer v.mu.Unlock()

	prev := v.state
	next := s.reducer.Apply(prev, action)
	if next.ScaleMode != prev.ScaleMode || !sameVisibility(next.Visible, prev.Visible) {
		v.base = nil
	}
	v.state = next
	v.updatedAt = s.now()

	if next.ScaleMode == models.ScaleLog && (prev.ScaleMode != models.ScaleLog || v.base == nil) {
		if err := chart.CheckLogDomain(s.bundle.Dataset, next.Visible); err != nil {
			s.logger.WithError(err).WithField("view_id", id).Warn("Log scale values clamped")
		}
	}

	return s.snapshot(ctx, v), nil
}

// ProbeHover maps a horizontal pixel position to the nearest month and
// hovers it. An empty dataset clears the hover instead.
func (s *DashboardService) ProbeHover(ctx context.Context, id string, pixelX float64) (*ViewSnapshot, error) {
	// Horizontal placement depends only on the plot rect and month count.
	m := chart.NewMapper(chart.FallbackDomain, s.cfg.Canvas.PlotRect(), s.MonthCount(), models.ScaleLinear)

	index := chart.Probe(pixelX, m)
	if index < 0 {
		return s.Dispatch(ctx, id, chart.ClearHover())
	}
	return s.Dispatch(ctx, id, chart.SetHover(index))
}

// RenderSVG writes the current geometry of a view as an SVG document.
func (s *DashboardService) RenderSVG(ctx context.Context, id string, w io.Writer) error {
	snap, err := s.GetView(ctx, id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := chart.RenderSVG(&buf, snap.Geometry); err != nil {
		return fmt.Errorf("failed to render view %s: %w", id, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// snapshot copies v and attaches geometry. Callers hold v.mu.
func (s *DashboardService) snapshot(ctx context.Context, v *view) *ViewSnapshot {
	base := s.baseGeometry(ctx, v)
	g := base
	if idx, ok := v.state.HoveredIndex(); ok {
		g = chart.WithHover(base, s.input, v.state, idx)
	}

	return &ViewSnapshot{
		ID: v.id,
		State: chart.ViewState{
			ScaleMode: v.state.ScaleMode,
			Visible:   v.state.Visible.Clone(),
			Hovered:   v.state.Hovered,
		},
		Geometry:  g,
		CreatedAt: v.createdAt,
		UpdatedAt: v.updatedAt,
	}
}

func (s *DashboardService) cacheKey(state chart.ViewState) cache.GeometryKey {
	return cache.GeometryKey{
		Version:   s.bundle.Version,
		ScaleMode: state.ScaleMode,
		Visible:   state.Visible.IDs(),
		Canvas:    s.cfg.Canvas,
		YTicks:    s.cfg.YTickCount,
	}
}

// baseGeometry returns the memoised hover-independent geometry of v,
// consulting the shared cache before computing it. Callers hold v.mu.
func (s *DashboardService) baseGeometry(ctx context.Context, v *view) chart.Geometry {
	if v.base != nil {
		return *v.base
	}

	start := time.Now()
	ctx, span := s.tracer.TraceGeometryComputation(ctx, v.id, string(v.state.ScaleMode), len(v.state.Visible))
	defer span.End()

	key := s.cacheKey(v.state)
	var (
		g   chart.Geometry
		hit bool
	)
	if s.cache != nil {
		g, hit = s.cache.Get(ctx, key)
	}
	if !hit {
		g = chart.ComputeBase(s.input, v.state)
		if s.cache != nil {
			s.cache.Set(ctx, key, g)
		}
	}
	v.base = &g

	s.tracer.RecordGeometryResult(span, telemetry.GeometryMetrics{
		Paths:         len(g.Paths),
		BearSpans:     len(g.BearSpans),
		Crises:        len(g.Crises),
		RegimeMarkers: len(g.RegimeMarkers),
		DomainMin:     g.Domain.Min,
		DomainMax:     g.Domain.Max,
		CacheHit:      hit,
		Duration:      time.Since(start),
	})
	return g
}

// EvictIdle removes views untouched for longer than the view TTL and
// returns how many were removed.
func (s *DashboardService) EvictIdle() int {
	if s.cfg.ViewTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.cfg.ViewTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, v := range s.views {
		v.mu.Lock()
		idle := v.updatedAt.Before(cutoff)
		v.mu.Unlock()
		if idle {
			delete(s.views, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": len(s.views),
		}).Info("Evicted idle views")
	}
	return evicted
}

// StartJanitor evicts idle views every interval until ctx is done.
func (s *DashboardService) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.EvictIdle()
			}
		}
	}()
}

func sameVisibility(a, b chart.Visibility) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}
