package models

// ScaleMode selects the vertical value-to-pixel function family.
type ScaleMode string

const (
	ScaleLinear ScaleMode = "linear"
	ScaleLog    ScaleMode = "log"
)

// IsValid reports whether m is a known scale mode.
func (m ScaleMode) IsValid() bool {
	return m == ScaleLinear || m == ScaleLog
}

// Preset names a fixed visible-series selection.
type Preset string

const (
	// PresetMain selects the configured default subset.
	PresetMain Preset = "main"
	// PresetAll selects every defined series.
	PresetAll Preset = "all"
)

// IsValid reports whether p is a known preset.
func (p Preset) IsValid() bool {
	return p == PresetMain || p == PresetAll
}
