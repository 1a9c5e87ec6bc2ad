package chart

import (
	"bytes"
	"fmt"
	"html"
	"io"
)

const (
	svgBackground = "#0f172a"
	svgGrid       = "#1e293b"
	svgAxisText   = "#94a3b8"
	svgBearFill   = "#ef4444"
	svgCrosshair  = "#e2e8f0"
	svgBullGlyph  = "#22c55e"
	svgBearGlyph  = "#ef4444"
)

// RenderSVG paints g onto a fixed-size SVG canvas. Layers, back to front:
// background, bear shading, crisis bands, grid and ticks, series lines,
// regime markers, hover cross-hair and dots.
func RenderSVG(w io.Writer, g Geometry) error {
	var b bytes.Buffer
	c, p := g.Canvas, g.Plot

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatCoord(c.Width), formatCoord(c.Height), formatCoord(c.Width), formatCoord(c.Height))
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, svgBackground)

	b.WriteString(`<g class="bear-regimes">`)
	for _, s := range g.BearSpans {
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="0.08"/>`,
			formatCoord(s.StartX), formatCoord(p.Top), formatCoord(s.EndX-s.StartX), formatCoord(p.Height), svgBearFill)
	}
	b.WriteString(`</g>`)

	b.WriteString(`<g class="crises">`)
	for _, cb := range g.Crises {
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="0.15"/>`,
			formatCoord(cb.StartX), formatCoord(p.Top), formatCoord(cb.EndX-cb.StartX), formatCoord(p.Height), attr(cb.Color))
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			formatCoord(cb.CenterX), formatCoord(p.Top+12), attr(cb.Color), html.EscapeString(cb.Name))
	}
	b.WriteString(`</g>`)

	b.WriteString(`<g class="axes">`)
	for _, t := range g.YTicks {
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"/>`,
			formatCoord(p.Left), formatCoord(t.Y), formatCoord(p.Right()), formatCoord(t.Y), svgGrid)
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="11" text-anchor="end">%s</text>`,
			formatCoord(p.Left-6), formatCoord(t.Y+4), svgAxisText, html.EscapeString(t.Label))
	}
	for _, t := range g.XTicks {
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"/>`,
			formatCoord(t.X), formatCoord(p.Bottom()), formatCoord(t.X), formatCoord(p.Bottom()+4), svgAxisText)
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="11" text-anchor="middle">%s</text>`,
			formatCoord(t.X), formatCoord(p.Bottom()+MarkerOffset+20), svgAxisText, html.EscapeString(t.Label))
	}
	b.WriteString(`</g>`)

	b.WriteString(`<g class="series">`)
	for _, s := range g.Paths {
		width := s.StrokeWidth
		if width <= 0 {
			width = 1.5
		}
		fmt.Fprintf(&b, `<path data-series="%s" d="%s" fill="none" stroke="%s" stroke-width="%s"/>`,
			attr(s.ID), s.D, attr(s.Color), formatCoord(width))
	}
	b.WriteString(`</g>`)

	b.WriteString(`<g class="regime-switches">`)
	for _, m := range g.RegimeMarkers {
		glyph, color := "▼", svgBearGlyph
		if m.Direction == DirectionUp {
			glyph, color = "▲", svgBullGlyph
		}
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-dasharray="2,3" stroke-opacity="0.5"/>`,
			formatCoord(m.X), formatCoord(p.Top), formatCoord(m.X), formatCoord(p.Bottom()), color)
		fmt.Fprintf(&b, `<text x="%s" y="%s" fill="%s" font-size="10" text-anchor="middle">%s</text>`,
			formatCoord(m.X), formatCoord(m.GlyphY), color, glyph)
	}
	b.WriteString(`</g>`)

	if h := g.Hover; h != nil {
		b.WriteString(`<g class="hover">`)
		fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-opacity="0.6"/>`,
			formatCoord(h.CrosshairX), formatCoord(h.CrosshairY1), formatCoord(h.CrosshairX), formatCoord(h.CrosshairY2), svgCrosshair)
		for _, pt := range h.Points {
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="4" fill="%s"/>`,
				formatCoord(pt.X), formatCoord(pt.Y), attr(pt.Color))
		}
		b.WriteString(`</g>`)
	}

	b.WriteString(`</svg>`)
	_, err := w.Write(b.Bytes())
	return err
}

func attr(s string) string {
	return html.EscapeString(s)
}
