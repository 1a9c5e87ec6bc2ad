package models

// SeriesDefinition describes how one strategy series is drawn.
type SeriesDefinition struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	Color          string  `json:"color"`
	StrokeWidth    float64 `json:"stroke_width"`
	DefaultVisible bool    `json:"default_visible"`
}

// SeriesSet is the ordered, immutable list of series definitions. Drawing
// order follows the slice order.
type SeriesSet []SeriesDefinition

// IDs returns every series ID in definition order.
func (s SeriesSet) IDs() []string {
	ids := make([]string, len(s))
	for i, def := range s {
		ids[i] = def.ID
	}
	return ids
}

// DefaultVisible returns the IDs flagged as visible on mount.
func (s SeriesSet) DefaultVisible() []string {
	var ids []string
	for _, def := range s {
		if def.DefaultVisible {
			ids = append(ids, def.ID)
		}
	}
	return ids
}

// Find looks up a definition by ID.
func (s SeriesSet) Find(id string) (SeriesDefinition, bool) {
	for _, def := range s {
		if def.ID == id {
			return def, true
		}
	}
	return SeriesDefinition{}, false
}

// Has reports whether id is a defined series.
func (s SeriesSet) Has(id string) bool {
	_, ok := s.Find(id)
	return ok
}
