package chart

import (
	"strconv"
	"strings"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

// PathOp is a polyline drawing command.
type PathOp string

const (
	MoveTo PathOp = "M"
	LineTo PathOp = "L"
)

// PathCommand is one vertex of a series polyline. Index is the vertex's
// position in the full month sequence.
type PathCommand struct {
	Op    PathOp  `json:"op"`
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type indexedValue struct {
	index int
	value float64
}

// definedValues pairs each month index with the series value and keeps the
// defined ones, so positions never have to be recovered after filtering.
func definedValues(seriesID string, ds *models.Dataset) []indexedValue {
	out := make([]indexedValue, 0, ds.Len())
	for i, p := range ds.Points {
		if v, ok := p.Values[seriesID]; ok {
			out = append(out, indexedValue{index: i, value: v})
		}
	}
	return out
}

// BuildPath turns one series into an ordered move/line command list.
// Absent values are skipped and the line joins the neighbouring defined
// points directly across the gap.
func BuildPath(seriesID string, ds *models.Dataset, m Mapper) []PathCommand {
	points := definedValues(seriesID, ds)
	if len(points) == 0 {
		return nil
	}

	cmds := make([]PathCommand, len(points))
	for i, pt := range points {
		op := LineTo
		if i == 0 {
			op = MoveTo
		}
		cmds[i] = PathCommand{
			Op:    op,
			Index: pt.index,
			X:     m.X(pt.index),
			Y:     m.Y(pt.value),
		}
	}
	return cmds
}

// PathData renders commands in SVG path syntax.
func PathData(cmds []PathCommand) string {
	var b strings.Builder
	for i, c := range cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(c.Op))
		b.WriteString(formatCoord(c.X))
		b.WriteByte(',')
		b.WriteString(formatCoord(c.Y))
	}
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
