package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/sheetviz/internal/table"
)

// Build computes the derived dataset and chart specification of an accepted
// request. A rejected result is returned as its *SchemaMismatchError without
// touching the table. Outlier requests append (or overwrite) the Z_Score
// column of t, so callers that keep t across passes hand Build a Clone.
func Build(t *table.Table, res Result) (*ChartSpec, error) {
	if !res.Accepted() {
		return nil, res.Err()
	}
	switch r := res.Request.(type) {
	case Distribution:
		return buildDistribution(t, r)
	case TopN:
		return buildTopN(t, r)
	case Heatmap:
		return buildHeatmap(t, r)
	case Outlier:
		return buildOutlier(t, r)
	case BoxPlot:
		return buildBoxPlot(t, r)
	case TimeSeries:
		return buildTimeSeries(t, r)
	case StackedBar:
		return buildStackedBar(t, r)
	}
	return nil, fmt.Errorf("build: unsupported request %T", res.Request)
}

func column(t *table.Table, name string) (*table.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("column %q not found in table %s", name, t.Name)
	}
	return c, nil
}

func buildDistribution(t *table.Table, r Distribution) (*ChartSpec, error) {
	c, err := column(t, r.Column)
	if err != nil {
		return nil, err
	}
	spec := &ChartSpec{
		Kind:   KindDistribution,
		Title:  fmt.Sprintf("Distribution of %s", r.Column),
		XLabel: r.Column,
		YLabel: "Count",
	}
	if c.Type == table.TypeText {
		counts := &CategoryCounts{Column: r.Column}
		index := map[string]int{}
		for _, v := range c.Values {
			if v.Kind != table.Text {
				continue
			}
			i, ok := index[v.Str]
			if !ok {
				i = len(counts.Counts)
				index[v.Str] = i
				counts.Counts = append(counts.Counts, CategoryCount{Value: v.Str})
			}
			counts.Counts[i].Count++
		}
		spec.Style = Style{Palette: "coolwarm"}
		spec.Data = counts
		return spec, nil
	}
	vals, ok := c.Floats()
	nv := &NumericValues{Column: r.Column}
	for i, x := range vals {
		if ok[i] {
			nv.Values = append(nv.Values, x)
		}
	}
	if len(nv.Values) == 0 {
		return nil, &ComputationError{Kind: KindDistribution, Column: r.Column, Reason: "column has no values"}
	}
	spec.Style = Style{Color: "blue", KDE: true}
	spec.Data = nv
	return spec, nil
}

// groupedSums sums each value column per category. Groups come back in
// ascending key order; rows with a missing category are dropped and missing
// values add nothing.
func groupedSums(cat *table.Column, values ...*table.Column) ([]string, [][]float64) {
	index := map[string]int{}
	var keys []string
	var sums [][]float64
	floats := make([][]float64, len(values))
	present := make([][]bool, len(values))
	for j, c := range values {
		floats[j], present[j] = c.Floats()
	}
	for i, v := range cat.Values {
		if v.Kind != table.Text {
			continue
		}
		g, ok := index[v.Str]
		if !ok {
			g = len(keys)
			index[v.Str] = g
			keys = append(keys, v.Str)
			sums = append(sums, make([]float64, len(values)))
		}
		for j := range values {
			if present[j][i] {
				sums[g][j] += floats[j][i]
			}
		}
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
	sortedKeys := make([]string, len(keys))
	sortedSums := make([][]float64, len(keys))
	for i, o := range order {
		sortedKeys[i] = keys[o]
		sortedSums[i] = sums[o]
	}
	return sortedKeys, sortedSums
}

func buildTopN(t *table.Table, r TopN) (*ChartSpec, error) {
	cat, err := column(t, r.Category)
	if err != nil {
		return nil, err
	}
	val, err := column(t, r.Value)
	if err != nil {
		return nil, err
	}
	keys, sums := groupedSums(cat, val)
	groups := make([]GroupSum, len(keys))
	for i, k := range keys {
		groups[i] = GroupSum{Key: k, Sum: sums[i][0]}
	}
	// Stable: equal sums keep ascending key order.
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Sum > groups[j].Sum })
	if len(groups) > r.N {
		groups = groups[:r.N]
	}
	return &ChartSpec{
		Kind:   KindTopN,
		Title:  fmt.Sprintf("Top-%d %s by %s", r.N, r.Category, r.Value),
		XLabel: r.Value,
		YLabel: r.Category,
		Style:  Style{Palette: "viridis", Horizontal: true},
		Data:   &GroupSums{Category: r.Category, Value: r.Value, Groups: groups},
	}, nil
}

func buildHeatmap(t *table.Table, _ Heatmap) (*ChartSpec, error) {
	var cols []*table.Column
	for _, c := range t.Columns {
		if c.Type == table.TypeInteger || c.Type == table.TypeReal {
			cols = append(cols, c)
		}
	}
	if len(cols) < 2 {
		return nil, &ComputationError{Kind: KindHeatmap, Reason: fmt.Sprintf("correlation needs at least 2 numeric columns, found %d", len(cols))}
	}
	n := len(cols)
	m := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	vals := make([][]float64, n)
	present := make([][]bool, n)
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, n)
		vals[i], present[i] = c.Floats()
	}
	for a := 0; a < n; a++ {
		m.Values[a][a] = 1
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for i := range vals[a] {
				if present[a][i] && present[b][i] {
					xs = append(xs, vals[a][i])
					ys = append(ys, vals[b][i])
				}
			}
			r, err := pearson(xs, ys)
			if err != nil {
				return nil, &ComputationError{Kind: KindHeatmap, Column: m.Columns[a] + " ~ " + m.Columns[b], Reason: err.Error()}
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return &ChartSpec{
		Kind:  KindHeatmap,
		Title: "Correlation Heatmap",
		Style: Style{Palette: "YlGnBu", Annotate: true},
		Data:  m,
	}, nil
}

func pearson(xs, ys []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, fmt.Errorf("only %d paired observation(s)", len(xs))
	}
	sx, _ := stats.StandardDeviationPopulation(xs)
	sy, _ := stats.StandardDeviationPopulation(ys)
	if degenerate(sx, xs) || degenerate(sy, ys) {
		return 0, fmt.Errorf("zero variance, correlation is undefined")
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("correlation is not finite")
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, nil
}

// degenerate treats a deviation lost in rounding noise as zero variance. The
// cutoff is relative to the largest magnitude in xs, so small-scale data with
// a real spread is kept.
func degenerate(std float64, xs []float64) bool {
	if math.IsNaN(std) {
		return true
	}
	var scale float64
	for _, x := range xs {
		scale = math.Max(scale, math.Abs(x))
	}
	return std <= 1e-12*scale
}

// ZScores standardizes the present values of xs with the population standard
// deviation (ddof=0).
func ZScores(xs []float64, present []bool) (zs []float64, mean, std float64, err error) {
	var sample []float64
	for i, x := range xs {
		if present[i] {
			sample = append(sample, x)
		}
	}
	if len(sample) == 0 {
		return nil, 0, 0, fmt.Errorf("column has no values")
	}
	mean, err = stats.Mean(sample)
	if err != nil {
		return nil, 0, 0, err
	}
	std, err = stats.StandardDeviationPopulation(sample)
	if err != nil {
		return nil, 0, 0, err
	}
	if degenerate(std, sample) {
		return nil, mean, std, fmt.Errorf("zero variance, z-scores are undefined")
	}
	zs = make([]float64, len(xs))
	for i, x := range xs {
		if present[i] {
			zs[i] = (x - mean) / std
		} else {
			zs[i] = math.NaN()
		}
	}
	return zs, mean, std, nil
}

func buildOutlier(t *table.Table, r Outlier) (*ChartSpec, error) {
	c, err := column(t, r.Column)
	if err != nil {
		return nil, err
	}
	xs, present := c.Floats()
	zs, mean, std, err := ZScores(xs, present)
	if err != nil {
		return nil, &ComputationError{Kind: KindOutlier, Column: r.Column, Reason: err.Error()}
	}
	set := &OutlierSet{Column: r.Column, Threshold: r.Threshold, Mean: mean, Std: std}
	derived := make([]table.Value, len(xs))
	for i := range xs {
		if !present[i] {
			set.Skipped++
			continue
		}
		derived[i] = table.NumberValue(zs[i])
		set.Points = append(set.Points, OutlierPoint{Row: i, X: xs[i], Z: zs[i], Outlier: math.Abs(zs[i]) > r.Threshold})
	}
	if err := t.SetDerived(ZScoreColumn, derived); err != nil {
		return nil, err
	}
	return &ChartSpec{
		Kind:   KindOutlier,
		Title:  fmt.Sprintf("Outlier Detection in %s", r.Column),
		XLabel: "Row",
		YLabel: r.Column,
		Style:  Style{Color: "blue", Accent: "red"},
		Data:   set,
	}, nil
}

func buildBoxPlot(t *table.Table, r BoxPlot) (*ChartSpec, error) {
	cat, err := column(t, r.Category)
	if err != nil {
		return nil, err
	}
	val, err := column(t, r.Value)
	if err != nil {
		return nil, err
	}
	xs, present := val.Floats()
	bg := &BoxGroups{Category: r.Category, Value: r.Value}
	index := map[string]int{}
	for i, v := range cat.Values {
		if v.Kind != table.Text {
			continue
		}
		g, ok := index[v.Str]
		if !ok {
			g = len(bg.Groups)
			index[v.Str] = g
			bg.Groups = append(bg.Groups, BoxGroup{Key: v.Str})
		}
		if present[i] {
			bg.Groups[g].Values = append(bg.Groups[g].Values, xs[i])
		}
	}
	return &ChartSpec{
		Kind:   KindBoxPlot,
		Title:  fmt.Sprintf("Box Plot of %s by %s", r.Value, r.Category),
		XLabel: r.Category,
		YLabel: r.Value,
		Style:  Style{Palette: "Set2"},
		Data:   bg,
	}, nil
}

// MonthOf truncates a date-time to the first instant of its calendar month,
// keeping the wall clock of its own location and reporting it as UTC.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func buildTimeSeries(t *table.Table, r TimeSeries) (*ChartSpec, error) {
	tc, err := column(t, r.TimeColumn)
	if err != nil {
		return nil, err
	}
	val, err := column(t, r.Value)
	if err != nil {
		return nil, err
	}
	xs, present := val.Floats()
	buckets := map[time.Time]float64{}
	for i, v := range tc.Values {
		if v.IsEmpty() {
			continue
		}
		ts, ok := timeOf(v)
		if !ok {
			return nil, &ComputationError{Kind: KindTimeSeries, Column: r.TimeColumn, Reason: fmt.Sprintf("row %d is not a date-time: %q", i+1, v.String())}
		}
		m := MonthOf(ts)
		sum := buckets[m]
		if present[i] {
			sum += xs[i]
		}
		buckets[m] = sum
	}
	ms := &MonthSeries{TimeColumn: r.TimeColumn, Value: r.Value, Points: make([]MonthPoint, 0, len(buckets))}
	for m, s := range buckets {
		ms.Points = append(ms.Points, MonthPoint{Month: m, Sum: s})
	}
	sort.Slice(ms.Points, func(i, j int) bool { return ms.Points[i].Month.Before(ms.Points[j].Month) })
	if len(ms.Points) == 0 {
		return nil, &ComputationError{Kind: KindTimeSeries, Column: r.TimeColumn, Reason: "column has no date-times"}
	}
	return &ChartSpec{
		Kind:   KindTimeSeries,
		Title:  fmt.Sprintf("Time Series Analysis of %s", r.Value),
		XLabel: r.TimeColumn,
		YLabel: r.Value,
		Style:  Style{Marker: "o"},
		Data:   ms,
	}, nil
}

func buildStackedBar(t *table.Table, r StackedBar) (*ChartSpec, error) {
	cat, err := column(t, r.Category)
	if err != nil {
		return nil, err
	}
	cols := make([]*table.Column, len(r.Values))
	for i, name := range r.Values {
		if cols[i], err = column(t, name); err != nil {
			return nil, err
		}
	}
	keys, sums := groupedSums(cat, cols...)
	series := append([]string(nil), r.Values...)
	return &ChartSpec{
		Kind:   KindStackedBar,
		Title:  fmt.Sprintf("Stacked Bar Chart of %s by %s", strings.Join(r.Values, ", "), r.Category),
		XLabel: r.Category,
		YLabel: "Sum",
		Style:  Style{Palette: "coolwarm"},
		Data:   &StackedTable{Category: r.Category, Series: series, Keys: keys, Sums: sums},
	}, nil
}
