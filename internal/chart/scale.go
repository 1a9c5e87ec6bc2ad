package chart

import (
	"errors"
	"fmt"
	"math"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

const (
	// LogShift keeps log10 defined for cumulative index values, which
	// start at 100 and cannot fall below -100.
	LogShift = 100.0
	// MinDomainSpan below which the vertical scale collapses to the
	// midpoint of the plot area.
	MinDomainSpan = 1e-9

	logEpsilon = 1e-12
)

// ErrLogDomain is returned by CheckLogDomain when a visible value cannot
// be shifted into the positive range required by the log scale.
var ErrLogDomain = errors.New("value outside log scale domain")

// Rect is the plot area inside the canvas, in canvas units.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Padding is the inset between canvas edge and plot area.
type Padding struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Canvas is the fixed logical drawing surface.
type Canvas struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Padding Padding `json:"padding"`
}

// DefaultCanvas matches the dashboard's 1200x500 chart.
func DefaultCanvas() Canvas {
	return Canvas{
		Width:   1200,
		Height:  500,
		Padding: Padding{Top: 20, Right: 30, Bottom: 50, Left: 60},
	}
}

// PlotRect returns the area left once padding is removed.
func (c Canvas) PlotRect() Rect {
	return Rect{
		Left:   c.Padding.Left,
		Top:    c.Padding.Top,
		Width:  c.Width - c.Padding.Left - c.Padding.Right,
		Height: c.Height - c.Padding.Top - c.Padding.Bottom,
	}
}

// Mapper converts dataset indices and series values to canvas coordinates.
type Mapper struct {
	Domain Domain
	Rect   Rect
	N      int
	Mode   models.ScaleMode
}

// NewMapper builds a mapper for n time buckets. An unknown mode falls back
// to linear.
func NewMapper(domain Domain, rect Rect, n int, mode models.ScaleMode) Mapper {
	if !mode.IsValid() {
		mode = models.ScaleLinear
	}
	return Mapper{Domain: domain, Rect: rect, N: n, Mode: mode}
}

// X maps a time index to a horizontal coordinate. Index 0 is the left
// edge and index N-1 the right edge.
func (m Mapper) X(index int) float64 {
	if m.N <= 1 {
		return m.Rect.Left
	}
	return m.Rect.Left + (float64(index)/float64(m.N-1))*m.Rect.Width
}

// Y maps a value to a vertical coordinate; larger values sit higher.
func (m Mapper) Y(value float64) float64 {
	lo, hi, v := m.Domain.Min, m.Domain.Max, value
	if m.Mode == models.ScaleLog {
		lo, hi, v = logTransform(lo), logTransform(hi), logTransform(v)
	}

	span := hi - lo
	if math.Abs(span) < MinDomainSpan {
		return m.Rect.Top + m.Rect.Height/2
	}
	return m.Rect.Top + m.Rect.Height - ((v-lo)/span)*m.Rect.Height
}

func logTransform(v float64) float64 {
	shifted := v + LogShift
	if shifted < logEpsilon {
		shifted = logEpsilon
	}
	return math.Log10(shifted)
}

// CheckLogDomain verifies that every defined value of every visible series
// satisfies value + 100 > 0.
func CheckLogDomain(ds *models.Dataset, visible Visibility) error {
	for _, p := range ds.Points {
		for id := range visible {
			v, ok := p.Values[id]
			if !ok {
				continue
			}
			if v+LogShift <= 0 {
				return fmt.Errorf("%w: series %s at %s is %g", ErrLogDomain, id, p.Month, v)
			}
		}
	}
	return nil
}
