package chart

import "github.com/irfndi/strategy-chart-go/internal/models"

// Input is the static, already validated data a chart is drawn from.
type Input struct {
	Dataset     *models.Dataset
	Series      models.SeriesSet
	Annotations models.Annotations
	Canvas      Canvas
	YTickCount  int
}

// SeriesPath is the drawable polyline of one visible series.
type SeriesPath struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Color       string        `json:"color"`
	StrokeWidth float64       `json:"stroke_width"`
	Commands    []PathCommand `json:"commands"`
	D           string        `json:"d"`
}

// Geometry is the full drawable output for one view state. It carries
// enough of the mapper configuration (domain, plot rect, count, scale) to
// rebuild the Mapper without the dataset.
type Geometry struct {
	Canvas        Canvas           `json:"canvas"`
	Plot          Rect             `json:"plot"`
	ScaleMode     models.ScaleMode `json:"scale_mode"`
	Domain        Domain           `json:"domain"`
	Count         int              `json:"count"`
	Paths         []SeriesPath     `json:"paths"`
	BearSpans     []Span           `json:"bear_spans"`
	Crises        []CrisisBand     `json:"crises"`
	RegimeMarkers []RegimeMarker   `json:"regime_markers"`
	YTicks        []YTick          `json:"y_ticks"`
	XTicks        []XTick          `json:"x_ticks"`
	Hover         *HoverReadout    `json:"hover,omitempty"`
}

// Mapper rebuilds the coordinate mapper the geometry was computed with.
func (g Geometry) Mapper() Mapper {
	return NewMapper(g.Domain, g.Plot, g.Count, g.ScaleMode)
}

// ComputeGeometry runs the whole pipeline: domain, mapper, paths,
// overlays, ticks and, when the state has a hovered index, the readout.
func ComputeGeometry(in Input, state ViewState) Geometry {
	g := ComputeBase(in, state)
	if idx, ok := state.HoveredIndex(); ok {
		return WithHover(g, in, state, idx)
	}
	return g
}

// ComputeBase computes everything that does not depend on the hovered
// index. Its result depends only on the dataset, the visible set and the
// scale mode.
func ComputeBase(in Input, state ViewState) Geometry {
	ds := in.Dataset
	if ds == nil {
		ds = &models.Dataset{}
	}
	domain := ComputeDomain(ds, state.Visible)
	plot := in.Canvas.PlotRect()
	m := NewMapper(domain, plot, ds.Len(), state.ScaleMode)

	g := Geometry{
		Canvas:        in.Canvas,
		Plot:          plot,
		ScaleMode:     m.Mode,
		Domain:        domain,
		Count:         ds.Len(),
		Paths:         []SeriesPath{},
		BearSpans:     BearSpans(ds, m),
		Crises:        CrisisBands(ds, in.Annotations.Crises, m),
		RegimeMarkers: RegimeMarkers(ds, in.Annotations.RegimeSwitches, m),
		YTicks:        YTicks(m, in.YTickCount),
		XTicks:        XTicks(ds, m),
	}

	for _, def := range in.Series {
		if !state.Visible.Has(def.ID) {
			continue
		}
		cmds := BuildPath(def.ID, ds, m)
		if len(cmds) == 0 {
			continue
		}
		g.Paths = append(g.Paths, SeriesPath{
			ID:          def.ID,
			DisplayName: def.DisplayName,
			Color:       def.Color,
			StrokeWidth: def.StrokeWidth,
			Commands:    cmds,
			D:           PathData(cmds),
		})
	}
	return g
}

// WithHover returns a copy of base with the readout for index attached.
func WithHover(base Geometry, in Input, state ViewState, index int) Geometry {
	readout, ok := Readout(in.Dataset, index, state.Visible, in.Series, base.Mapper())
	if !ok {
		base.Hover = nil
		return base
	}
	base.Hover = &readout
	return base
}
