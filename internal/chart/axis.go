package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

// DefaultYTickCount is used when a non-positive count is requested.
const DefaultYTickCount = 5

// YTick is a horizontal grid line with its value label.
type YTick struct {
	Value float64 `json:"value"`
	Y     float64 `json:"y"`
	Label string  `json:"label"`
}

// XTick is a year boundary on the time axis.
type XTick struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// YTicks returns roughly count grid values inside the mapper's domain.
// Linear scales use 1/2/5 steps; log scales space ticks evenly in
// transformed space and round each to two significant digits.
func YTicks(m Mapper, count int) []YTick {
	if count <= 0 {
		count = DefaultYTickCount
	}
	d := m.Domain
	if d.Span() < MinDomainSpan {
		return []YTick{newYTick(d.Min, m)}
	}

	var values []float64
	if m.Mode == models.ScaleLog {
		values = logTickValues(d, count)
	} else {
		values = linearTickValues(d, count)
	}

	ticks := make([]YTick, 0, len(values))
	for _, v := range values {
		ticks = append(ticks, newYTick(v, m))
	}
	return ticks
}

func newYTick(v float64, m Mapper) YTick {
	return YTick{Value: v, Y: m.Y(v), Label: formatTick(v)}
}

func linearTickValues(d Domain, count int) []float64 {
	step := niceStep(d.Span() / float64(count))
	first := math.Ceil(d.Min/step) * step

	var values []float64
	for v := first; v <= d.Max+step*1e-9; v += step {
		// Snap to the step grid to drop accumulated float drift.
		values = append(values, roundTo(v, step))
	}
	return values
}

func logTickValues(d Domain, count int) []float64 {
	lo, hi := logTransform(d.Min), logTransform(d.Max)
	step := (hi - lo) / float64(count)

	var values []float64
	seen := make(map[float64]bool)
	for i := 0; i <= count; i++ {
		v := roundSignificant(math.Pow(10, lo+float64(i)*step)-LogShift, 2)
		if v < d.Min || v > d.Max || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Floor(math.Log10(raw))
	pow := math.Pow(10, exp)
	f := raw / pow

	var nf float64
	switch {
	case f <= 1:
		nf = 1
	case f <= 2:
		nf = 2
	case f <= 5:
		nf = 5
	default:
		nf = 10
	}
	return nf * pow
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

func roundSignificant(v float64, digits int) float64 {
	if v == 0 {
		return 0
	}
	mag := math.Pow(10, float64(digits)-math.Ceil(math.Log10(math.Abs(v))))
	return math.Round(v*mag) / mag
}

func formatTick(v float64) string {
	if v == 0 {
		v = 0 // normalise -0
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// XTicks places one tick on every January. A dataset without any January
// gets a single tick on its first month.
func XTicks(ds *models.Dataset, m Mapper) []XTick {
	var ticks []XTick
	for i, p := range ds.Points {
		if len(p.Month) == 7 && strings.HasSuffix(p.Month, "-01") {
			ticks = append(ticks, XTick{Index: i, X: m.X(i), Label: p.Month[:4]})
		}
	}
	if len(ticks) == 0 && ds.Len() > 0 {
		ticks = append(ticks, XTick{Index: 0, X: m.X(0), Label: ds.Points[0].Month})
	}
	return ticks
}
