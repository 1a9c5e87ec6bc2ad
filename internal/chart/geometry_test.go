package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/strategy-chart-go/internal/models"
)

func scenarioInput() Input {
	return Input{
		Dataset: scenarioDataset(),
		Series: models.SeriesSet{
			{ID: "A", DisplayName: "Alpha", Color: "#3b82f6", StrokeWidth: 2, DefaultVisible: true},
			{ID: "B", DisplayName: "Beta", Color: "#f97316", StrokeWidth: 1.5},
		},
		Annotations: models.Annotations{
			Crises: []models.CrisisPeriod{
				{Name: "S&P drawdown", StartMonth: "2020-02", EndMonth: "2020-03", Color: "#a855f7"},
				{Name: "Unknown", StartMonth: "2019-01", EndMonth: "2020-03", Color: "#000000"},
			},
			RegimeSwitches: []models.RegimeSwitchEvent{
				{Month: "2020-02", From: models.RegimeBull, To: models.RegimeBear},
				{Month: "2020-03", From: models.RegimeBear, To: models.RegimeBull},
			},
		},
		Canvas:     DefaultCanvas(),
		YTickCount: 5,
	}
}

func TestComputeGeometry_UndefinedSeriesDoesNotStretchDomain(t *testing.T) {
	in := scenarioInput()
	in.Dataset = models.NewDataset([]models.MonthlyPoint{
		point("2020-01", models.RegimeBull, map[string]float64{"A": 100}),
		point("2020-02", models.RegimeBull, map[string]float64{"A": 110, "Z": 1000}),
	})
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}

	state := r.Apply(r.Initial(), ToggleSeries("Z"))
	g := ComputeGeometry(in, state)

	assert.Equal(t, []string{"A"}, state.Visible.IDs())
	assert.InDelta(t, 121.0, g.Domain.Max, 1e-9)
	require.Len(t, g.Paths, 1)
	assert.Equal(t, "A", g.Paths[0].ID)
}

func TestComputeGeometry_Scenario(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	state := r.Initial()

	g := ComputeGeometry(in, state)

	assert.Equal(t, 50.0, g.Domain.Min)
	assert.InDelta(t, 110.0, g.Domain.Max, 1e-9)
	assert.Equal(t, 3, g.Count)
	assert.Equal(t, in.Canvas.PlotRect(), g.Plot)
	assert.Nil(t, g.Hover)

	m := g.Mapper()
	require.Len(t, g.Paths, 1)
	path := g.Paths[0]
	assert.Equal(t, "A", path.ID)
	assert.Equal(t, "#3b82f6", path.Color)
	require.Len(t, path.Commands, 3)
	assert.Equal(t, m.X(0), path.Commands[0].X)
	assert.Equal(t, m.Y(100), path.Commands[0].Y)
	assert.Equal(t, m.Y(90), path.Commands[1].Y)
	assert.Equal(t, m.Y(95), path.Commands[2].Y)
	assert.True(t, strings.HasPrefix(path.D, "M60.00,"))

	require.Len(t, g.BearSpans, 1)
	assert.Equal(t, m.X(1), g.BearSpans[0].StartX)
	assert.Equal(t, m.X(2), g.BearSpans[0].EndX)

	require.Len(t, g.Crises, 1)
	assert.Equal(t, "S&P drawdown", g.Crises[0].Name)

	require.Len(t, g.RegimeMarkers, 2)
	assert.Equal(t, DirectionDown, g.RegimeMarkers[0].Direction)
	assert.Equal(t, DirectionUp, g.RegimeMarkers[1].Direction)

	assert.NotEmpty(t, g.YTicks)
	assert.Len(t, g.XTicks, 1)
	assert.Equal(t, "2020", g.XTicks[0].Label)
}

func TestComputeGeometry_Hover(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	state := r.Apply(r.Initial(), SetHover(1))

	g := ComputeGeometry(in, state)
	require.NotNil(t, g.Hover)
	assert.Equal(t, "2020-02", g.Hover.Month)
	assert.Equal(t, models.RegimeBear, g.Hover.Regime)
	assert.Equal(t, g.Mapper().X(1), g.Hover.CrosshairX)
	require.Len(t, g.Hover.Points, 1)
	assert.Equal(t, "90.00", g.Hover.Points[0].Display)

	cleared := ComputeGeometry(in, r.Apply(state, ClearHover()))
	assert.Nil(t, cleared.Hover)
}

func TestComputeGeometry_ScaleModeChangesOnlyVerticalGeometry(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	linear := ComputeGeometry(in, r.Initial())
	log := ComputeGeometry(in, r.Apply(r.Initial(), SetScaleMode(models.ScaleLog)))

	assert.Equal(t, models.ScaleLog, log.ScaleMode)
	assert.Equal(t, linear.Domain, log.Domain)
	assert.Equal(t, linear.BearSpans, log.BearSpans)
	require.Len(t, log.Paths, 1)
	for i := range linear.Paths[0].Commands {
		assert.Equal(t, linear.Paths[0].Commands[i].X, log.Paths[0].Commands[i].X)
	}
	assert.NotEqual(t, linear.Paths[0].Commands[1].Y, log.Paths[0].Commands[1].Y)
}

func TestComputeGeometry_EmptyVisibleSet(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	state := r.Apply(r.Initial(), ToggleSeries("A"))

	g := ComputeGeometry(in, state)
	assert.Equal(t, FallbackDomain, g.Domain)
	assert.Empty(t, g.Paths)
	assert.Len(t, g.BearSpans, 1, "overlays do not depend on visibility")
}

func TestComputeGeometry_VisibleSeriesWithoutValues(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	state := r.Apply(r.Initial(), ApplyPreset(models.PresetAll))

	g := ComputeGeometry(in, state)
	require.Len(t, g.Paths, 1, "B has no data and produces no path")
	assert.Equal(t, "A", g.Paths[0].ID)
}

func TestComputeGeometry_NilDataset(t *testing.T) {
	in := scenarioInput()
	in.Dataset = nil
	state := ViewState{ScaleMode: models.ScaleLinear, Visible: NewVisibility("A")}

	g := ComputeGeometry(in, state)
	assert.Equal(t, 0, g.Count)
	assert.Equal(t, FallbackDomain, g.Domain)
	assert.Empty(t, g.Paths)
}

func TestGeometry_JSON(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	g := ComputeGeometry(in, r.Apply(r.Initial(), SetHover(0)))

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var decoded Geometry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, g.Domain, decoded.Domain)
	assert.Equal(t, g.Mapper(), decoded.Mapper())
	require.NotNil(t, decoded.Hover)
	assert.Equal(t, "2020-01", decoded.Hover.Month)
}

func TestRenderSVG(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	g := ComputeGeometry(in, r.Apply(r.Initial(), SetHover(2)))

	var buf bytes.Buffer
	require.NoError(t, RenderSVG(&buf, g))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" width="1200.00" height="500.00"`))
	assert.True(t, strings.HasSuffix(out, `</svg>`))
	assert.Contains(t, out, `data-series="A"`)
	assert.Contains(t, out, g.Paths[0].D)
	assert.Contains(t, out, "S&amp;P drawdown")
	assert.NotContains(t, out, "S&P drawdown")
	assert.Contains(t, out, "▲")
	assert.Contains(t, out, "▼")
	assert.Equal(t, 1, strings.Count(out, "<circle"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRenderSVG_WriteError(t *testing.T) {
	in := scenarioInput()
	r := Reducer{Series: in.Series, Count: in.Dataset.Len()}
	assert.Error(t, RenderSVG(failingWriter{}, ComputeGeometry(in, r.Initial())))
}
