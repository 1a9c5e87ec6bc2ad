// Package dataset reads the static backtest bundle the chart is drawn
// from and checks the input contracts the geometry engine relies on.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/strategy-chart-go/internal/models"
	"github.com/irfndi/strategy-chart-go/internal/utils"
)

// File names inside a bundle directory.
const (
	DatasetFile        = "dataset.json"
	SeriesFile         = "series.json"
	CrisesFile         = "crises.json"
	RegimeSwitchesFile = "regime_switches.json"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Bundle is everything loaded from one data directory.
type Bundle struct {
	Dataset     *models.Dataset
	Series      models.SeriesSet
	Annotations models.Annotations
	// Version is a content hash of the bundle files; it changes whenever
	// any input changes and keys derived caches.
	Version string
}

// Loader reads bundles from a filesystem.
type Loader struct {
	fsys   fs.FS
	logger *logrus.Entry
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *logrus.Logger) *Loader {
	return NewFSLoader(os.DirFS(dir), logger)
}

// NewFSLoader creates a loader over an arbitrary filesystem.
func NewFSLoader(fsys fs.FS, logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{
		fsys:   fsys,
		logger: logger.WithField("component", "dataset_loader"),
	}
}

// Load reads and validates the bundle. dataset.json and series.json are
// required; crises.json is optional; regime_switches.json is derived from
// the dataset's regime column when absent.
func (l *Loader) Load() (*Bundle, error) {
	digest := xxhash.New()

	var ds models.Dataset
	if err := l.readJSON(DatasetFile, &ds, digest, true); err != nil {
		return nil, err
	}
	if err := ValidateDataset(&ds); err != nil {
		return nil, err
	}

	var series models.SeriesSet
	if err := l.readJSON(SeriesFile, &series, digest, true); err != nil {
		return nil, err
	}
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}

	var crises []models.CrisisPeriod
	if err := l.readJSON(CrisesFile, &crises, digest, false); err != nil {
		return nil, err
	}
	if err := ValidateCrises(crises); err != nil {
		return nil, err
	}

	var switches []models.RegimeSwitchEvent
	found, err := l.exists(RegimeSwitchesFile)
	if err != nil {
		return nil, err
	}
	if found {
		if err := l.readJSON(RegimeSwitchesFile, &switches, digest, true); err != nil {
			return nil, err
		}
	} else {
		switches = models.DeriveRegimeSwitches(&ds)
		l.logger.WithField("events", len(switches)).Info("Derived regime switches from dataset")
	}
	if err := ValidateRegimeSwitches(switches); err != nil {
		return nil, err
	}

	l.warnUnknownSeries(&ds, series)

	bundle := &Bundle{
		Dataset: models.NewDataset(ds.Points),
		Series:  series,
		Annotations: models.Annotations{
			Crises:         crises,
			RegimeSwitches: switches,
		},
		Version: strconv.FormatUint(digest.Sum64(), 16),
	}

	l.logger.WithFields(logrus.Fields{
		"months":  bundle.Dataset.Len(),
		"series":  len(series),
		"crises":  len(crises),
		"version": bundle.Version,
	}).Info("Loaded chart bundle")

	return bundle, nil
}

func (l *Loader) exists(name string) (bool, error) {
	_, err := fs.Stat(l.fsys, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", name, err)
}

func (l *Loader) readJSON(name string, v interface{}, digest *xxhash.Digest, required bool) error {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			l.logger.WithField("file", name).Debug("Optional bundle file not present")
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	_, _ = digest.WriteString(name)
	_, _ = digest.Write(data)

	if err := json.Unmarshal(data, v); err != nil {
		return utils.SourceValidationErrorf(name, "invalid JSON: %v", err)
	}
	return nil
}

// warnUnknownSeries logs dataset columns without a series definition.
// They are kept in the dataset but never drawn.
func (l *Loader) warnUnknownSeries(ds *models.Dataset, series models.SeriesSet) {
	for _, id := range ds.SeriesIDs() {
		if !series.Has(id) {
			l.logger.WithField("series_id", id).Warn("Dataset column has no series definition")
		}
	}
}

// ValidateDataset checks month format, uniqueness, strict ordering and
// regime labels.
func ValidateDataset(ds *models.Dataset) error {
	if ds.Len() == 0 {
		return utils.SourceValidationErrorf(DatasetFile, "dataset is empty")
	}
	for i, p := range ds.Points {
		if !monthPattern.MatchString(p.Month) {
			return utils.SourceValidationErrorf(DatasetFile, "point %d has invalid month %q", i, p.Month)
		}
		if !p.Regime.IsValid() {
			return utils.SourceValidationErrorf(DatasetFile, "point %d (%s) has invalid regime %q", i, p.Month, p.Regime)
		}
		// Zero-padded YYYY-MM keys order lexically.
		if i > 0 && p.Month <= ds.Points[i-1].Month {
			return utils.SourceValidationErrorf(DatasetFile,
				"month %s at point %d does not follow %s", p.Month, i, ds.Points[i-1].Month)
		}
	}
	return nil
}

// ValidateSeries checks that every definition has a unique, non-empty ID.
func ValidateSeries(series models.SeriesSet) error {
	if len(series) == 0 {
		return utils.SourceValidationErrorf(SeriesFile, "no series defined")
	}
	seen := make(map[string]bool, len(series))
	for i, def := range series {
		if def.ID == "" {
			return utils.SourceValidationErrorf(SeriesFile, "series %d has no id", i)
		}
		if seen[def.ID] {
			return utils.SourceValidationErrorf(SeriesFile, "duplicate series id %q", def.ID)
		}
		if def.StrokeWidth < 0 {
			return utils.SourceValidationErrorf(SeriesFile, "series %q has negative stroke width", def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}

// ValidateCrises checks that no period ends before it starts. Months that
// do not appear in the dataset are accepted; they simply draw nothing.
func ValidateCrises(crises []models.CrisisPeriod) error {
	for _, c := range crises {
		if c.StartMonth > c.EndMonth {
			return utils.SourceValidationErrorf(CrisesFile,
				"period %q ends (%s) before it starts (%s)", c.Name, c.EndMonth, c.StartMonth)
		}
	}
	return nil
}

// ValidateRegimeSwitches checks regime labels and that consecutive events
// alternate their target regime.
func ValidateRegimeSwitches(events []models.RegimeSwitchEvent) error {
	for i, ev := range events {
		if !ev.From.IsValid() || !ev.To.IsValid() {
			return utils.SourceValidationErrorf(RegimeSwitchesFile,
				"event %d (%s) has invalid regime %q -> %q", i, ev.Month, ev.From, ev.To)
		}
		if i > 0 && events[i-1].To == ev.To {
			return utils.SourceValidationErrorf(RegimeSwitchesFile,
				"events at %s and %s both switch to %s", events[i-1].Month, ev.Month, ev.To)
		}
	}
	return nil
}
