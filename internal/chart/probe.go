package chart

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

var baseline = decimal.NewFromInt(100)

// HoverPoint is the highlighted vertex of one visible series.
type HoverPoint struct {
	SeriesID    string  `json:"series_id"`
	DisplayName string  `json:"display_name"`
	Color       string  `json:"color"`
	Value       float64 `json:"value"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	// Display is Value rounded to two decimals.
	Display string `json:"display"`
	// Return is the cumulative return against the 100 baseline, in percent.
	Return string `json:"return"`
}

// HoverReadout is everything drawn for a hovered month: the cross-hair, one
// dot per visible series and the side panel rows.
type HoverReadout struct {
	Index       int           `json:"index"`
	Month       string        `json:"month"`
	Regime      models.Regime `json:"regime"`
	CrosshairX  float64       `json:"crosshair_x"`
	CrosshairY1 float64       `json:"crosshair_y1"`
	CrosshairY2 float64       `json:"crosshair_y2"`
	Points      []HoverPoint  `json:"points"`
}

// Probe maps a horizontal pointer position to the nearest month index.
// Positions outside the plot area clamp to the first or last month. It
// returns -1 for an empty dataset.
func Probe(pixelX float64, m Mapper) int {
	if m.N <= 0 {
		return -1
	}
	if m.N == 1 || m.Rect.Width <= 0 {
		return 0
	}

	fraction := (pixelX - m.Rect.Left) / m.Rect.Width
	if math.IsNaN(fraction) {
		fraction = 0
	}
	fraction = math.Max(0, math.Min(1, fraction))
	return int(math.Round(fraction * float64(m.N-1)))
}

// Readout builds the hover output for index. Series are listed in
// definition order; those without a value at index are left out.
func Readout(ds *models.Dataset, index int, visible Visibility, series models.SeriesSet, m Mapper) (HoverReadout, bool) {
	if index < 0 || index >= ds.Len() {
		return HoverReadout{}, false
	}

	p := ds.Points[index]
	x := m.X(index)
	out := HoverReadout{
		Index:       index,
		Month:       p.Month,
		Regime:      p.Regime,
		CrosshairX:  x,
		CrosshairY1: m.Rect.Top,
		CrosshairY2: m.Rect.Bottom(),
		Points:      []HoverPoint{},
	}

	for _, def := range series {
		if !visible.Has(def.ID) {
			continue
		}
		v, ok := p.Values[def.ID]
		if !ok {
			continue
		}
		d := decimal.NewFromFloat(v)
		out.Points = append(out.Points, HoverPoint{
			SeriesID:    def.ID,
			DisplayName: def.DisplayName,
			Color:       def.Color,
			Value:       v,
			X:           x,
			Y:           m.Y(v),
			Display:     d.StringFixed(2),
			Return:      formatReturn(d),
		})
	}
	return out, true
}

func formatReturn(value decimal.Decimal) string {
	r := value.Sub(baseline).Round(2)
	s := r.StringFixed(2) + "%"
	if r.IsPositive() {
		return "+" + s
	}
	return s
}
