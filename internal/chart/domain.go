// Package chart computes the geometry of the strategy performance chart:
// the value domain, coordinate transforms, series polylines, regime and
// crisis overlays, axis ticks and hover probing. Every function here is a
// pure function of the dataset and the view state; painting lives in
// svg.go and never feeds back into the computation.
package chart

import (
	"math"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

const (
	// DomainFloor keeps the lower bound at or below 50 so the 100 baseline
	// is never compressed against the bottom edge.
	DomainFloor = 50.0
	// DomainHeadroom scales the observed maximum. The headroom is taken
	// from |max| so it always lifts the bound, even for negative maxima.
	DomainHeadroom = 1.10
)

// FallbackDomain is returned when no visible series has a defined value.
var FallbackDomain = Domain{Min: 100, Max: 110}

// Domain is the numeric range mapped onto the vertical pixel extent.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (d Domain) Span() float64 {
	return d.Max - d.Min
}

// ComputeDomain scans every defined value of every visible series.
func ComputeDomain(ds *models.Dataset, visible Visibility) Domain {
	observedMin := math.Inf(1)
	observedMax := math.Inf(-1)

	if len(visible) > 0 {
		for _, p := range ds.Points {
			for id := range visible {
				v, ok := p.Values[id]
				if !ok {
					continue
				}
				if v < observedMin {
					observedMin = v
				}
				if v > observedMax {
					observedMax = v
				}
			}
		}
	}

	if math.IsInf(observedMin, 1) || math.IsInf(observedMax, -1) {
		return FallbackDomain
	}

	return Domain{
		Min: math.Min(observedMin, DomainFloor),
		Max: observedMax + math.Abs(observedMax)*(DomainHeadroom-1),
	}
}
