package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Regime is the coarse market state assigned to a month.
type Regime string

const (
	RegimeBull Regime = "Bull"
	RegimeBear Regime = "Bear"
)

// IsValid reports whether r is one of the known regimes.
func (r Regime) IsValid() bool {
	return r == RegimeBull || r == RegimeBear
}

// MonthlyPoint is one time bucket of the backtest output. Values holds the
// cumulative index value of every series that is defined for this month; a
// series without a key is absent.
type MonthlyPoint struct {
	Month  string             `json:"month"`
	Regime Regime             `json:"regime"`
	Values map[string]float64 `json:"-"`
}

// NewMonthlyPoint builds a point from month, regime and series values.
func NewMonthlyPoint(month string, regime Regime, values map[string]float64) MonthlyPoint {
	if values == nil {
		values = make(map[string]float64)
	}
	return MonthlyPoint{Month: month, Regime: regime, Values: values}
}

// Value returns the series value for this month and whether it is defined.
func (p MonthlyPoint) Value(seriesID string) (float64, bool) {
	v, ok := p.Values[seriesID]
	return v, ok
}

// UnmarshalJSON decodes the flat wire form
// {"month": "...", "regime": "...", "<seriesId>": number|null, ...}.
func (p *MonthlyPoint) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var (
		month  string
		regime Regime
		values = make(map[string]float64, len(raw))
	)
	for key, value := range raw {
		switch key {
		case "month":
			if err := json.Unmarshal(value, &month); err != nil {
				return fmt.Errorf("invalid month: %w", err)
			}
		case "regime":
			if err := json.Unmarshal(value, &regime); err != nil {
				return fmt.Errorf("invalid regime: %w", err)
			}
		default:
			var v *float64
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("invalid value for series %q: %w", key, err)
			}
			if v != nil {
				values[key] = *v
			}
		}
	}

	*p = NewMonthlyPoint(month, regime, values)
	return nil
}

// MarshalJSON encodes the point in the same flat form it is read from.
func (p MonthlyPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Values)+2)
	for id, v := range p.Values {
		out[id] = v
	}
	out["month"] = p.Month
	out["regime"] = p.Regime
	return json.Marshal(out)
}

// Dataset is the ordered monthly sequence shared by every series.
type Dataset struct {
	Points []MonthlyPoint `json:"points"`

	index map[string]int
}

// NewDataset wraps points and builds the month lookup table.
func NewDataset(points []MonthlyPoint) *Dataset {
	ds := &Dataset{Points: points}
	ds.reindex()
	return ds
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.Points))
	for i, p := range d.Points {
		if _, exists := d.index[p.Month]; !exists {
			d.index[p.Month] = i
		}
	}
}

// Len returns the number of months in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Points)
}

// IndexOf resolves a month key by exact string match.
func (d *Dataset) IndexOf(month string) (int, bool) {
	if d == nil {
		return 0, false
	}
	if d.index == nil {
		for i, p := range d.Points {
			if p.Month == month {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := d.index[month]
	return i, ok
}

// Value returns the value of seriesID at index.
func (d *Dataset) Value(index int, seriesID string) (float64, bool) {
	if d == nil || index < 0 || index >= len(d.Points) {
		return 0, false
	}
	return d.Points[index].Value(seriesID)
}

// SeriesIDs returns every series ID that has at least one defined value,
// sorted for stable output.
func (d *Dataset) SeriesIDs() []string {
	seen := make(map[string]struct{})
	for _, p := range d.Points {
		for id := range p.Values {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnmarshalJSON accepts the bare array form used by the data pipeline.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var points []MonthlyPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	d.Points = points
	d.reindex()
	return nil
}

// MarshalJSON encodes the dataset as a bare array.
func (d Dataset) MarshalJSON() ([]byte, error) {
	if d.Points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.Points)
}
