package chart

import "github.com/irfndi/strategy-chart-go/internal/models"

// MarkerOffset is the distance below the plot area at which regime switch
// glyphs are drawn.
const MarkerOffset = 14.0

// Direction of a regime switch glyph.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Span is a contiguous run of Bear months. EndIndex is the first Bull
// month after the run, or the last index when the run reaches the end.
type Span struct {
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	StartX     float64 `json:"start_x"`
	EndX       float64 `json:"end_x"`
}

// CrisisBand is a resolved crisis period.
type CrisisBand struct {
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
	StartX     float64 `json:"start_x"`
	EndX       float64 `json:"end_x"`
	CenterX    float64 `json:"center_x"`
}

// RegimeMarker is a vertical marker at a regime switch.
type RegimeMarker struct {
	Month     string        `json:"month"`
	Index     int           `json:"index"`
	To        models.Regime `json:"to"`
	Direction Direction     `json:"direction"`
	X         float64       `json:"x"`
	GlyphY    float64       `json:"glyph_y"`
}

// BearSpans walks the dataset once and merges consecutive Bear months into
// one span each.
func BearSpans(ds *models.Dataset, m Mapper) []Span {
	var spans []Span
	open := false
	start := 0

	for i, p := range ds.Points {
		switch {
		case !open && p.Regime == models.RegimeBear:
			open = true
			start = i
		case open && p.Regime == models.RegimeBull:
			spans = append(spans, newSpan(start, i, m))
			open = false
		}
	}

	if open {
		spans = append(spans, newSpan(start, ds.Len()-1, m))
	}
	return spans
}

func newSpan(start, end int, m Mapper) Span {
	return Span{
		StartIndex: start,
		EndIndex:   end,
		StartX:     m.X(start),
		EndX:       m.X(end),
	}
}

// CrisisBands resolves each period's boundary months. A period whose start
// or end month is not in the dataset produces nothing.
func CrisisBands(ds *models.Dataset, periods []models.CrisisPeriod, m Mapper) []CrisisBand {
	var bands []CrisisBand
	for _, period := range periods {
		start, ok := ds.IndexOf(period.StartMonth)
		if !ok {
			continue
		}
		end, ok := ds.IndexOf(period.EndMonth)
		if !ok {
			continue
		}

		startX, endX := m.X(start), m.X(end)
		bands = append(bands, CrisisBand{
			Name:       period.Name,
			Color:      period.Color,
			StartIndex: start,
			EndIndex:   end,
			StartX:     startX,
			EndX:       endX,
			CenterX:    (startX + endX) / 2,
		})
	}
	return bands
}

// RegimeMarkers places one marker per resolvable switch event.
func RegimeMarkers(ds *models.Dataset, events []models.RegimeSwitchEvent, m Mapper) []RegimeMarker {
	var markers []RegimeMarker
	glyphY := m.Rect.Bottom() + MarkerOffset

	for _, ev := range events {
		idx, ok := ds.IndexOf(ev.Month)
		if !ok {
			continue
		}

		dir := DirectionDown
		if ev.To == models.RegimeBull {
			dir = DirectionUp
		}
		markers = append(markers, RegimeMarker{
			Month:     ev.Month,
			Index:     idx,
			To:        ev.To,
			Direction: dir,
			X:         m.X(idx),
			GlyphY:    glyphY,
		})
	}
	return markers
}
