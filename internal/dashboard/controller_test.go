package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/KaramelBytes/sheetviz/internal/render"
	"github.com/KaramelBytes/sheetviz/internal/table"
	"github.com/KaramelBytes/sheetviz/internal/testutil"
)

func newController(t *testing.T) *Controller {
	t.Helper()
	return NewController(Config{
		Table:  table.DefaultOptions(),
		Render: render.Options{Format: render.SVG, Width: 480, Height: 360},
		Logger: testutil.NewTestLogger(t),
	})
}

func loadSales(t *testing.T, c *Controller) *table.Table {
	t.Helper()
	tbl, err := c.Upload(context.Background(), "sales.xlsx", bytes.NewReader(testutil.XLSX(t, testutil.SalesSheet())))
	require.NoError(t, err)
	return tbl
}

func TestControllerStartsWithPrompt(t *testing.T) {
	c := newController(t)

	assert.Equal(t, NoData, c.State())
	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "heatmap"})
	assert.Equal(t, OutcomePrompt, out.Kind)
	assert.Equal(t, PromptText, out.Message())

	ov := c.Overview()
	assert.Equal(t, NoData, ov.State)
	assert.Nil(t, ov.Summary)

	wo := c.Options(analysis.KindDistribution)
	require.Len(t, wo.Pickers, 1)
	assert.Empty(t, wo.Pickers[0].Choices)
}

func TestControllerUploadTransitions(t *testing.T) {
	c := newController(t)

	_, err := c.Upload(context.Background(), "data.csv", strings.NewReader("a,b\n1,2\n"))
	var loadErr *table.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, table.ErrNotSpreadsheet)
	assert.Equal(t, NoData, c.State())

	first := loadSales(t, c)
	assert.Equal(t, Loaded, c.State())
	assert.Equal(t, 6, first.Rows())

	// a failed upload leaves the loaded table in place
	_, err = c.Upload(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	require.ErrorAs(t, err, &loadErr)
	assert.Same(t, first, c.tbl)

	second := loadSales(t, c)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, c.tbl)
}

func TestControllerOverview(t *testing.T) {
	c := newController(t)
	loadSales(t, c)

	ov := c.Overview()
	require.NotNil(t, ov.Summary)
	assert.Equal(t, Loaded, ov.State)
	assert.Equal(t, 6, ov.Summary.Rows)
	assert.Len(t, ov.Summary.Head, analysis.HeadRows)
	assert.Equal(t, []string{"Region", "Product", "Sales", "Units", "Time"}, ov.Summary.Headers)
	assert.False(t, ov.LoadedAt.IsZero())
}

func TestControllerEvaluateChart(t *testing.T) {
	c := newController(t)
	loadSales(t, c)

	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "top-n", Category: "Region", Value: "Sales", N: 2})
	require.Equal(t, OutcomeChart, out.Kind, out.Message())
	assert.Contains(t, string(out.Figure), "<svg")

	groups := out.Spec.Data.(*analysis.GroupSums).Groups
	require.Len(t, groups, 2)
	assert.Equal(t, "East", groups[0].Key)
	assert.InDelta(t, 312.0, groups[0].Sum, 1e-9)
	assert.Equal(t, "South", groups[1].Key)

	png := c.EvaluateAs(context.Background(), analysis.Selection{Kind: "heatmap"}, render.PNG)
	require.Equal(t, OutcomeChart, png.Kind, png.Message())
	assert.True(t, bytes.HasPrefix(png.Figure, []byte("\x89PNG")))
}

func TestControllerRejectsBeforeBuilding(t *testing.T) {
	c := newController(t)
	tbl := loadSales(t, c)

	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "outlier", Column: "Region", Threshold: 3})
	assert.Equal(t, OutcomeRejected, out.Kind)
	assert.Contains(t, out.Message(), "not numeric")
	assert.Equal(t, 0, tbl.Version(), "rejected request must not touch the table")

	out = c.Evaluate(context.Background(), analysis.Selection{Kind: "pie"})
	assert.Equal(t, OutcomeRejected, out.Kind)
	assert.NotEmpty(t, out.Reason)
}

func TestControllerZScoreStaysInOutlierPass(t *testing.T) {
	c := newController(t)
	tbl := loadSales(t, c)

	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "outlier", Column: "Sales", Threshold: 1.5})
	require.Equal(t, OutcomeChart, out.Kind, out.Message())
	set := out.Spec.Data.(*analysis.OutlierSet)
	assert.Len(t, set.Points, 6)

	assert.Equal(t, 0, tbl.Version(), "outlier pass must not patch the loaded table")
	_, ok := tbl.Column(analysis.ZScoreColumn)
	assert.False(t, ok)
	assert.NotContains(t, c.Options(analysis.KindOutlier).Pickers[0].Choices, analysis.ZScoreColumn)
	assert.NotContains(t, c.Options(analysis.KindStackedBar).Pickers[1].Choices, analysis.ZScoreColumn)
	assert.NotContains(t, c.Overview().Summary.Headers, analysis.ZScoreColumn)

	heat := c.Evaluate(context.Background(), analysis.Selection{Kind: "heatmap"})
	require.Equal(t, OutcomeChart, heat.Kind, heat.Message())
	assert.Equal(t, []string{"Sales", "Units"}, heat.Spec.Data.(*analysis.CorrMatrix).Columns)

	again := c.Evaluate(context.Background(), analysis.Selection{Kind: "outlier", Column: "Sales", Threshold: 1.5})
	require.Equal(t, OutcomeChart, again.Kind, again.Message())
	assert.Equal(t, set.Points, again.Spec.Data.(*analysis.OutlierSet).Points, "same selection, same result")
}

func TestControllerComputationFailure(t *testing.T) {
	c := newController(t)
	book := testutil.XLSX(t, testutil.Sheet{Name: "Flat", Rows: [][]any{
		{"Group", "Level"},
		{"a", 1}, {"b", 1}, {"c", 1}, {"d", 1},
	}})
	_, err := c.Upload(context.Background(), "flat.xlsx", bytes.NewReader(book))
	require.NoError(t, err)

	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "outlier", Column: "Level", Threshold: 3})
	require.Equal(t, OutcomeFailed, out.Kind)
	var compErr *analysis.ComputationError
	assert.True(t, errors.As(out.Err, &compErr))
	assert.NotEmpty(t, out.Message())
}

func TestControllerDropsCancelledPass(t *testing.T) {
	c := newController(t)
	loadSales(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := c.Evaluate(ctx, analysis.Selection{Kind: "heatmap"})
	assert.Equal(t, OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Nil(t, out.Figure)
}

func TestControllerOptions(t *testing.T) {
	c := newController(t)
	loadSales(t, c)
	all := []string{"Region", "Product", "Sales", "Units", "Time"}
	nums := []string{"Sales", "Units"}

	tests := []struct {
		kind    analysis.Kind
		pickers map[string][]string
		sliders []string
	}{
		{analysis.KindDistribution, map[string][]string{"column": all}, nil},
		{analysis.KindTopN, map[string][]string{"category": all, "value": all}, []string{"n"}},
		{analysis.KindHeatmap, map[string][]string{}, nil},
		{analysis.KindOutlier, map[string][]string{"column": nums}, []string{"threshold"}},
		{analysis.KindBoxPlot, map[string][]string{"category": all, "value": all}, nil},
		{analysis.KindTimeSeries, map[string][]string{"value": nums}, nil},
		{analysis.KindStackedBar, map[string][]string{"category": all, "values": nums}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.kind.Slug(), func(t *testing.T) {
			wo := c.Options(tt.kind)
			assert.Empty(t, wo.Note)
			got := map[string][]string{}
			for _, p := range wo.Pickers {
				got[p.Signal] = p.Choices
			}
			assert.Equal(t, tt.pickers, got)
			var sliders []string
			for _, s := range wo.Sliders {
				sliders = append(sliders, s.Signal)
			}
			assert.Equal(t, tt.sliders, sliders)
		})
	}

	wo := c.Options(analysis.KindTopN)
	assert.Equal(t, float64(analysis.DefaultTopN), wo.Sliders[0].Default)
	wo = c.Options(analysis.KindOutlier)
	assert.Equal(t, analysis.DefaultThreshold, wo.Sliders[0].Default)
}

func TestControllerTimeSeriesWithoutTimeColumn(t *testing.T) {
	c := newController(t)
	book := testutil.XLSX(t, testutil.Sheet{Name: "S", Rows: [][]any{{"Date", "V"}, {"x", 1}, {"y", 2}}})
	_, err := c.Upload(context.Background(), "s.xlsx", bytes.NewReader(book))
	require.NoError(t, err)

	wo := c.Options(analysis.KindTimeSeries)
	assert.Equal(t, "The dataset does not have a time column.", wo.Note)
	assert.Empty(t, wo.Pickers)

	out := c.Evaluate(context.Background(), analysis.Selection{Kind: "time-series", Value: "V"})
	assert.Equal(t, OutcomeRejected, out.Kind)
}
