package render

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
)

func specs() []*analysis.ChartSpec {
	month := func(m time.Month) time.Time { return time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC) }
	return []*analysis.ChartSpec{
		{Kind: analysis.KindDistribution, Title: "Distribution of Region", XLabel: "Region", YLabel: "Count",
			Style: analysis.Style{Palette: "coolwarm"},
			Data:  &analysis.CategoryCounts{Column: "Region", Counts: []analysis.CategoryCount{{Value: "A", Count: 3}, {Value: "B", Count: 1}}}},
		{Kind: analysis.KindDistribution, Title: "Distribution of Sales", XLabel: "Sales", YLabel: "Count",
			Style: analysis.Style{Color: "blue", KDE: true},
			Data:  &analysis.NumericValues{Column: "Sales", Values: []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 12}}},
		{Kind: analysis.KindTopN, Title: "Top-2 Region by Sales", XLabel: "Sales", YLabel: "Region",
			Style: analysis.Style{Palette: "viridis", Horizontal: true},
			Data:  &analysis.GroupSums{Category: "Region", Value: "Sales", Groups: []analysis.GroupSum{{Key: "A", Sum: 30}, {Key: "B", Sum: 5}}}},
		{Kind: analysis.KindHeatmap, Title: "Correlation Heatmap",
			Style: analysis.Style{Palette: "YlGnBu", Annotate: true},
			Data:  &analysis.CorrMatrix{Columns: []string{"A", "B"}, Values: [][]float64{{1, -0.5}, {-0.5, 1}}}},
		{Kind: analysis.KindOutlier, Title: "Outlier Detection in X", XLabel: "Row", YLabel: "X",
			Style: analysis.Style{Color: "blue", Accent: "red"},
			Data: &analysis.OutlierSet{Column: "X", Threshold: 1, Points: []analysis.OutlierPoint{
				{Row: 0, X: 1, Z: -0.7}, {Row: 1, X: 2, Z: -0.5}, {Row: 2, X: 9, Z: 1.9, Outlier: true}}}},
		{Kind: analysis.KindBoxPlot, Title: "Box Plot of V by G", XLabel: "G", YLabel: "V",
			Style: analysis.Style{Palette: "Set2"},
			Data: &analysis.BoxGroups{Category: "G", Value: "V", Groups: []analysis.BoxGroup{
				{Key: "a", Values: []float64{1, 2, 3, 4, 40}}, {Key: "b"}, {Key: "c", Values: []float64{5}}}}},
		{Kind: analysis.KindTimeSeries, Title: "Time Series Analysis of Sales", XLabel: "Time", YLabel: "Sales",
			Style: analysis.Style{Marker: "o"},
			Data: &analysis.MonthSeries{TimeColumn: "Time", Value: "Sales", Points: []analysis.MonthPoint{
				{Month: month(1), Sum: 10}, {Month: month(2), Sum: 4}, {Month: month(4), Sum: 12}}}},
		{Kind: analysis.KindStackedBar, Title: "Stacked Bar Chart of X, Y by K", XLabel: "K", YLabel: "Sum",
			Style: analysis.Style{Palette: "coolwarm"},
			Data: &analysis.StackedTable{Category: "K", Series: []string{"X", "Y"}, Keys: []string{"a", "b"},
				Sums: [][]float64{{3, 4}, {-2, 6}}}},
	}
}

func TestRenderEveryKindSVG(t *testing.T) {
	for _, spec := range specs() {
		var buf bytes.Buffer
		if err := Render(&buf, spec, Options{Format: SVG, Width: 640, Height: 480}); err != nil {
			t.Fatalf("%s: %v", spec.Title, err)
		}
		out := buf.String()
		if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
			t.Fatalf("%s: output is not an svg document", spec.Title)
		}
	}
}

func TestRenderEveryKindPNG(t *testing.T) {
	for _, spec := range specs() {
		var buf bytes.Buffer
		if err := Render(&buf, spec, Options{Format: PNG, Width: 480, Height: 360}); err != nil {
			t.Fatalf("%s: %v", spec.Title, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
			t.Fatalf("%s: output is not a png", spec.Title)
		}
	}
}

func TestRenderSinglePointTimeSeries(t *testing.T) {
	spec := &analysis.ChartSpec{Kind: analysis.KindTimeSeries, Title: "one month", Style: analysis.Style{Marker: "o"},
		Data: &analysis.MonthSeries{Points: []analysis.MonthPoint{{Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Sum: 5}}}}
	var buf bytes.Buffer
	if err := Render(&buf, spec, DefaultOptions()); err != nil {
		t.Fatalf("single point: %v", err)
	}
}

func TestRenderRejectsEmptyData(t *testing.T) {
	spec := &analysis.ChartSpec{Kind: analysis.KindTopN, Data: &analysis.GroupSums{}}
	err := Render(&bytes.Buffer{}, spec, DefaultOptions())
	if err == nil || !strings.HasPrefix(err.Error(), "render top-n:") {
		t.Fatalf("expected wrapped render error, got %v", err)
	}
	if err := Render(&bytes.Buffer{}, nil, DefaultOptions()); err == nil {
		t.Fatal("expected error for nil spec")
	}
	var target interface{ Unwrap() error }
	if !errors.As(err, &target) {
		t.Fatalf("render error should wrap its cause: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": SVG, "svg": SVG, "PNG": PNG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatal("expected error for gif")
	}
	if PNG.ContentType() != "image/png" || SVG.ContentType() != "image/svg+xml" {
		t.Fatal("content types")
	}
}

func TestHistogramAutoBins(t *testing.T) {
	xs := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 12}
	edges, counts := histogram(xs)
	// Sturges width is 11/(log2(10)+1) = 2.55 and FD width 2*1.75*10^(-1/3) = 1.62.
	if len(counts) != 7 || len(edges) != 8 {
		t.Fatalf("bins = %d, edges = %v", len(counts), edges)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != len(xs) || edges[0] != 1 || edges[7] != 12 {
		t.Fatalf("counts=%v edges=%v", counts, edges)
	}
	edges, counts = histogram([]float64{7, 7, 7})
	if len(counts) != 1 || counts[0] != 3 || edges[0] != 6.5 || edges[1] != 7.5 {
		t.Fatalf("constant sample: %v %v", edges, counts)
	}
}

func TestKDEIntegratesToOne(t *testing.T) {
	xs := []float64{-1, 0, 0.5, 1, 1.5, 2, 3}
	grid, dens := kde(xs, -10, 12, 2000)
	area := 0.0
	for i := 1; i < len(grid); i++ {
		area += (dens[i] + dens[i-1]) / 2 * (grid[i] - grid[i-1])
	}
	if math.Abs(area-1) > 1e-3 {
		t.Fatalf("density integrates to %v", area)
	}
	if g, _ := kde([]float64{2, 2, 2}, 0, 4, 10); g != nil {
		t.Fatal("zero bandwidth should give no curve")
	}
}

func TestSummarizeBox(t *testing.T) {
	b, ok := summarizeBox([]float64{40, 1, 2, 3, 4})
	if !ok {
		t.Fatal("expected stats")
	}
	if b.Q1 != 2 || b.Median != 3 || b.Q3 != 4 || b.Low != 1 || b.High != 4 {
		t.Fatalf("box = %+v", b)
	}
	if len(b.Fliers) != 1 || b.Fliers[0] != 40 {
		t.Fatalf("fliers = %v", b.Fliers)
	}
	if _, ok := summarizeBox(nil); ok {
		t.Fatal("empty group has no box")
	}
}

func TestNiceTicks(t *testing.T) {
	got := niceTicks(0, 30, 6)
	want := []float64{0, 5, 10, 15, 20, 25, 30}
	if len(got) != len(want) {
		t.Fatalf("ticks = %v", got)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("ticks = %v, want %v", got, want)
		}
	}
}

func TestPaletteColors(t *testing.T) {
	cs := paletteColors("viridis", 3)
	if cs[0] != colorAt("viridis", 0) || cs[2] != colorAt("viridis", 1) {
		t.Fatalf("viridis ends: %v", cs)
	}
	set2 := paletteColors("Set2", 10)
	if set2[0] != set2[8] {
		t.Fatal("qualitative palette should cycle")
	}
}
