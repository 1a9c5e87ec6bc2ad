package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer opens spans around dashboard operations: geometry
// computation, hover probing and bundle loading.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a tracer bound to the chart tracer name.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{tracer: GetChartTracer()}
}

// GeometryMetrics summarises one geometry computation.
type GeometryMetrics struct {
	Paths         int
	BearSpans     int
	Crises        int
	RegimeMarkers int
	DomainMin     float64
	DomainMax     float64
	CacheHit      bool
	Duration      time.Duration
}

// TraceGeometryComputation starts a span for computing a view's geometry.
func (bt *BusinessTracer) TraceGeometryComputation(ctx context.Context, viewID string, scaleMode string, visible int) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "chart.compute_geometry",
		trace.WithAttributes(
			attribute.String("chart.view_id", viewID),
			attribute.String("chart.scale_mode", scaleMode),
			attribute.Int("chart.visible_series", visible),
		),
	)
}

// RecordGeometryResult adds the outcome of a geometry computation to span.
func (bt *BusinessTracer) RecordGeometryResult(span trace.Span, metrics GeometryMetrics) {
	span.SetAttributes(
		attribute.Int("chart.paths", metrics.Paths),
		attribute.Int("chart.bear_spans", metrics.BearSpans),
		attribute.Int("chart.crises", metrics.Crises),
		attribute.Int("chart.regime_markers", metrics.RegimeMarkers),
		attribute.Float64("chart.domain_min", metrics.DomainMin),
		attribute.Float64("chart.domain_max", metrics.DomainMax),
		attribute.Bool("chart.cache_hit", metrics.CacheHit),
		attribute.Int64("chart.duration_ms", metrics.Duration.Milliseconds()),
	)
}

// TraceViewAction starts a span for applying a user action to a view.
func (bt *BusinessTracer) TraceViewAction(ctx context.Context, viewID string, action string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "chart.apply_action",
		trace.WithAttributes(
			attribute.String("chart.view_id", viewID),
			attribute.String("chart.action", action),
		),
	)
}

// TraceBundleLoad starts a span for loading the input bundle.
func (bt *BusinessTracer) TraceBundleLoad(ctx context.Context, dir string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "chart.load_bundle",
		trace.WithAttributes(attribute.String("chart.data_dir", dir)),
	)
}

// RecordError marks span as failed.
func (bt *BusinessTracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
