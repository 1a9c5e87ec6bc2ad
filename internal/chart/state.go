package chart

import (
	"encoding/json"
	"sort"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

// Visibility is the set of series currently drawn.
type Visibility map[string]struct{}

// NewVisibility builds a set from ids.
func NewVisibility(ids ...string) Visibility {
	v := make(Visibility, len(ids))
	for _, id := range ids {
		v[id] = struct{}{}
	}
	return v
}

// Has reports whether id is visible.
func (v Visibility) Has(id string) bool {
	_, ok := v[id]
	return ok
}

// IDs returns the members sorted.
func (v Visibility) IDs() []string {
	ids := make([]string, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for id := range v {
		out[id] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (v Visibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.IDs())
}

// UnmarshalJSON decodes an array of IDs.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*v = NewVisibility(ids...)
	return nil
}

// ViewState is the single source of truth for one mounted chart.
// Values are never mutated in place; Reducer.Apply returns a new one.
type ViewState struct {
	ScaleMode models.ScaleMode `json:"scale_mode"`
	Visible   Visibility       `json:"visible_series"`
	Hovered   *int             `json:"hovered_index"`
}

// HoveredIndex returns the hovered index and whether one is set.
func (s ViewState) HoveredIndex() (int, bool) {
	if s.Hovered == nil {
		return 0, false
	}
	return *s.Hovered, true
}

// ActionType names a view state transition.
type ActionType string

const (
	ActionToggleSeries ActionType = "toggle_series"
	ActionSetScaleMode ActionType = "set_scale_mode"
	ActionSetHover     ActionType = "set_hover"
	ActionClearHover   ActionType = "clear_hover"
	ActionApplyPreset  ActionType = "apply_preset"
)

// IsValid reports whether t is a known action.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionToggleSeries, ActionSetScaleMode, ActionSetHover, ActionClearHover, ActionApplyPreset:
		return true
	}
	return false
}

// Action is a request to change a ViewState. Only the field matching Type
// is read.
type Action struct {
	Type      ActionType       `json:"type"`
	SeriesID  string           `json:"series_id,omitempty"`
	ScaleMode models.ScaleMode `json:"scale_mode,omitempty"`
	Preset    models.Preset    `json:"preset,omitempty"`
	Index     int              `json:"index,omitempty"`
}

func ToggleSeries(id string) Action { return Action{Type: ActionToggleSeries, SeriesID: id} }

func SetScaleMode(mode models.ScaleMode) Action {
	return Action{Type: ActionSetScaleMode, ScaleMode: mode}
}

func SetHover(index int) Action { return Action{Type: ActionSetHover, Index: index} }

func ClearHover() Action { return Action{Type: ActionClearHover} }

func ApplyPreset(p models.Preset) Action { return Action{Type: ActionApplyPreset, Preset: p} }

// Reducer applies actions for one chart configuration.
type Reducer struct {
	Series models.SeriesSet
	// Main is the "main" preset. When empty the series' default-visible
	// flags are used.
	Main []string
	// Count is the number of months; SetHover clamps into [0, Count-1].
	Count int
}

// Initial returns the state a freshly mounted chart starts with.
func (r Reducer) Initial() ViewState {
	return ViewState{
		ScaleMode: models.ScaleLinear,
		Visible:   NewVisibility(r.mainPreset()...),
	}
}

// mainPreset drops configured IDs that have no series definition.
func (r Reducer) mainPreset() []string {
	if len(r.Main) == 0 {
		return r.Series.DefaultVisible()
	}
	ids := make([]string, 0, len(r.Main))
	for _, id := range r.Main {
		if r.Series.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Apply returns the state that results from action. It never fails:
// actions with unusable arguments leave the state unchanged.
func (r Reducer) Apply(state ViewState, action Action) ViewState {
	next := ViewState{
		ScaleMode: state.ScaleMode,
		Visible:   state.Visible.Clone(),
		Hovered:   copyIndex(state.Hovered),
	}

	switch action.Type {
	case ActionToggleSeries:
		// Only defined series may become visible; the domain scans every
		// visible ID, so an undefined one would stretch it invisibly.
		if next.Visible.Has(action.SeriesID) {
			delete(next.Visible, action.SeriesID)
		} else if r.Series.Has(action.SeriesID) {
			next.Visible[action.SeriesID] = struct{}{}
		}
	case ActionSetScaleMode:
		if action.ScaleMode.IsValid() {
			next.ScaleMode = action.ScaleMode
		}
	case ActionSetHover:
		if r.Count > 0 {
			idx := clampInt(action.Index, 0, r.Count-1)
			next.Hovered = &idx
		}
	case ActionClearHover:
		next.Hovered = nil
	case ActionApplyPreset:
		switch action.Preset {
		case models.PresetMain:
			next.Visible = NewVisibility(r.mainPreset()...)
		case models.PresetAll:
			next.Visible = NewVisibility(r.Series.IDs()...)
		}
	}
	return next
}

func copyIndex(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
