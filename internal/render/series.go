package render

import (
	"errors"
	"io"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
)

// kdePoints is the resolution of the density curve.
const kdePoints = 200

func padding() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 48, Left: 20, Right: 24, Bottom: 20}}
}

// pointStyle returns a style that renders points only (no connecting line).
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    col,
	}
}

// countPlot draws one bar per category in order of first appearance.
func countPlot(w io.Writer, spec *analysis.ChartSpec, d *analysis.CategoryCounts, opt Options) error {
	if len(d.Counts) == 0 {
		return errors.New("no categories to count")
	}
	colors := paletteColors(spec.Style.Palette, len(d.Counts))
	bars := make([]chart.Value, len(d.Counts))
	maxCount := 0
	for i, c := range d.Counts {
		bars[i] = chart.Value{
			Label: truncate(c.Value, 18),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: colors[i], StrokeColor: colors[i], StrokeWidth: 1},
		}
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	avail := opt.Width - 140
	per := avail / len(bars)
	if per < 2 {
		per = 2
	}
	barWidth := per * 7 / 10
	if barWidth < 1 {
		barWidth = 1
	}
	xStyle := chart.Style{}
	if len(bars) > 8 {
		xStyle.TextRotationDegrees = 45
	}
	bc := chart.BarChart{
		Title:      spec.Title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		BarWidth:   barWidth,
		BarSpacing: per - barWidth,
		XAxis:      xStyle,
		YAxis: chart.YAxis{
			Name:  spec.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount) * 1.1},
		},
		Bars: bars,
	}
	return bc.Render(opt.Format.provider(), w)
}

// histPlot draws a filled step histogram with the scaled density curve on top.
func histPlot(w io.Writer, spec *analysis.ChartSpec, d *analysis.NumericValues, opt Options) error {
	edges, counts := histogram(d.Values)
	if len(counts) == 0 {
		return errors.New("no values to bin")
	}
	color := namedColor(spec.Style.Color)
	xs := make([]float64, 0, 2*len(counts)+2)
	ys := make([]float64, 0, 2*len(counts)+2)
	xs, ys = append(xs, edges[0]), append(ys, 0)
	maxCount := 0
	for i, c := range counts {
		xs = append(xs, edges[i], edges[i+1])
		ys = append(ys, float64(c), float64(c))
		if c > maxCount {
			maxCount = c
		}
	}
	xs, ys = append(xs, edges[len(edges)-1]), append(ys, 0)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Count",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 1,
				FillColor:   color.WithAlpha(96),
			},
		},
	}
	yMax := float64(maxCount)
	if spec.Style.KDE {
		binWidth := (edges[len(edges)-1] - edges[0]) / float64(len(counts))
		grid, density := kde(d.Values, edges[0], edges[len(edges)-1], kdePoints)
		if grid != nil {
			scale := float64(len(d.Values)) * binWidth
			for i := range density {
				density[i] *= scale
				yMax = math.Max(yMax, density[i])
			}
			series = append(series, chart.ContinuousSeries{
				Name:    "KDE",
				XValues: grid,
				YValues: density,
				Style:   chart.Style{StrokeColor: color, StrokeWidth: 2},
			})
		}
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis:      chart.XAxis{Name: spec.XLabel, Range: &chart.ContinuousRange{Min: edges[0], Max: edges[len(edges)-1]}},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: &chart.ContinuousRange{Min: 0, Max: yMax * 1.1}},
		Series:     series,
	}
	return ch.Render(opt.Format.provider(), w)
}

// outlierScatter plots every present row and overlays the outliers.
func outlierScatter(w io.Writer, spec *analysis.ChartSpec, d *analysis.OutlierSet, opt Options) error {
	if len(d.Points) == 0 {
		return errors.New("no points to plot")
	}
	var xs, ys, oxs, oys []float64
	for _, p := range d.Points {
		xs = append(xs, float64(p.Row))
		ys = append(ys, p.X)
		if p.Outlier {
			oxs = append(oxs, float64(p.Row))
			oys = append(oys, p.X)
		}
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}
	series := []chart.Series{
		chart.ContinuousSeries{Name: "Data", XValues: xs, YValues: ys, Style: pointStyle(namedColor(spec.Style.Color))},
	}
	if len(oxs) > 0 {
		series = append(series, chart.ContinuousSeries{Name: "Outliers", XValues: oxs, YValues: oys, Style: pointStyle(namedColor(spec.Style.Accent))})
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis:      chart.XAxis{Name: spec.XLabel},
		YAxis:      chart.YAxis{Name: spec.YLabel},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(opt.Format.provider(), w)
}

// lineChart draws the monthly sums with point markers.
func lineChart(w io.Writer, spec *analysis.ChartSpec, d *analysis.MonthSeries, opt Options) error {
	if len(d.Points) == 0 {
		return errors.New("no periods to plot")
	}
	times := make([]time.Time, len(d.Points))
	ys := make([]float64, len(d.Points))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, p := range d.Points {
		times[i] = p.Month
		ys[i] = p.Sum
		lo, hi = math.Min(lo, p.Sum), math.Max(hi, p.Sum)
	}
	// Pad to at least two X values for go-chart
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		ys = append(ys, ys[0])
	}
	style := chart.Style{StrokeColor: drawing.ColorFromHex(defaultColor), StrokeWidth: 2}
	if spec.Style.Marker != "" {
		style.DotWidth = 5
		style.DotColor = style.StrokeColor
	}
	var yRange chart.Range
	if lo == hi {
		pad := math.Max(1, math.Abs(lo)*0.1)
		yRange = &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	ch := chart.Chart{
		Title:      spec.Title,
		Width:      opt.Width,
		Height:     opt.Height,
		Background: padding(),
		XAxis:      chart.XAxis{Name: spec.XLabel, ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01")},
		YAxis:      chart.YAxis{Name: spec.YLabel, Range: yRange},
		Series:     []chart.Series{chart.TimeSeries{Name: d.Value, XValues: times, YValues: ys, Style: style}},
	}
	return ch.Render(opt.Format.provider(), w)
}
