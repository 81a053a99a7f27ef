package render

import (
	"errors"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
)

// horizontalBars draws one bar per group, largest on top.
func horizontalBars(w io.Writer, spec *analysis.ChartSpec, d *analysis.GroupSums, opt Options) error {
	if len(d.Groups) == 0 {
		return errors.New("no groups to plot")
	}
	c, err := newCanvas(opt.Format.provider(), opt.Width, opt.Height, chart.Box{Top: 48, Left: 150, Right: 30, Bottom: 56})
	if err != nil {
		return err
	}
	lo, hi := 0.0, 0.0
	for _, g := range d.Groups {
		lo, hi = math.Min(lo, g.Sum), math.Max(hi, g.Sum)
	}
	ticks := niceTicks(lo, hi, 5)
	x := linear{d0: math.Min(lo, ticks[0]), d1: math.Max(hi, ticks[len(ticks)-1]), p0: c.plot.Left, p1: c.plot.Right}
	c.title(spec.Title)
	c.valueAxis(x, ticks, false)
	colors := paletteColors(spec.Style.Palette, len(d.Groups))
	band := float64(c.plot.Bottom-c.plot.Top) / float64(len(d.Groups))
	for i, g := range d.Groups {
		y0 := c.plot.Top + int(band*float64(i)+band*0.1)
		y1 := c.plot.Top + int(band*float64(i+1)-band*0.1)
		x0, x1 := x.at(0), x.at(g.Sum)
		if x1 < x0 {
			x0, x1 = x1, x0
		}
		c.rect(x0, y0, x1, y1, colors[i], colors[i])
		c.text(truncate(g.Key, 22), c.plot.Left-6, (y0+y1)/2, 10, axisColor, alignRight)
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)
	return c.save(w)
}

// heatmap draws the correlation matrix as colored cells with the coefficient
// written in each cell, plus a color bar.
func heatmap(w io.Writer, spec *analysis.ChartSpec, d *analysis.CorrMatrix, opt Options) error {
	n := len(d.Columns)
	if n == 0 {
		return errors.New("empty correlation matrix")
	}
	c, err := newCanvas(opt.Format.provider(), opt.Width, opt.Height, chart.Box{Top: 48, Left: 150, Right: 110, Bottom: 110})
	if err != nil {
		return err
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range d.Values {
		for _, v := range row {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	norm := func(v float64) float64 {
		if hi == lo {
			return 0.5
		}
		return (v - lo) / (hi - lo)
	}
	c.title(spec.Title)
	cw := float64(c.plot.Right-c.plot.Left) / float64(n)
	chh := float64(c.plot.Bottom-c.plot.Top) / float64(n)
	for i := 0; i < n; i++ {
		y0 := c.plot.Top + int(chh*float64(i))
		y1 := c.plot.Top + int(chh*float64(i+1))
		for j := 0; j < n; j++ {
			x0 := c.plot.Left + int(cw*float64(j))
			x1 := c.plot.Left + int(cw*float64(j+1))
			fill := colorAt(spec.Style.Palette, norm(d.Values[i][j]))
			c.rect(x0, y0, x1, y1, fill, fill)
			if spec.Style.Annotate {
				c.text(formatValue(d.Values[i][j]), (x0+x1)/2, (y0+y1)/2, 10, textOn(fill), alignCenter)
			}
		}
		c.text(truncate(d.Columns[i], 22), c.plot.Left-6, (y0+y1)/2, 10, axisColor, alignRight)
	}
	for j := 0; j < n; j++ {
		x := c.plot.Left + int(cw*(float64(j)+0.5))
		c.vtext(truncate(d.Columns[j], 16), x, c.plot.Bottom+50, 10, axisColor)
	}

	// color bar
	bx0, bx1 := c.plot.Right+30, c.plot.Right+48
	steps := 64
	span := float64(c.plot.Bottom - c.plot.Top)
	for s := 0; s < steps; s++ {
		y0 := c.plot.Bottom - int(span*float64(s+1)/float64(steps))
		y1 := c.plot.Bottom - int(span*float64(s)/float64(steps))
		fill := colorAt(spec.Style.Palette, (float64(s)+0.5)/float64(steps))
		c.rect(bx0, y0, bx1, y1, fill, fill)
	}
	scale := linear{d0: lo, d1: hi, p0: c.plot.Bottom, p1: c.plot.Top}
	for _, v := range niceTicks(lo, hi, 5) {
		if v < lo-1e-9 || v > hi+1e-9 {
			continue
		}
		c.text(formatTick(v), bx1+6, scale.at(v), 9, axisColor, alignLeft)
	}
	return c.save(w)
}

// boxPlot draws one box per group in the order given.
func boxPlot(w io.Writer, spec *analysis.ChartSpec, d *analysis.BoxGroups, opt Options) error {
	if len(d.Groups) == 0 {
		return errors.New("no groups to plot")
	}
	c, err := newCanvas(opt.Format.provider(), opt.Width, opt.Height, chart.Box{Top: 48, Left: 80, Right: 30, Bottom: 70})
	if err != nil {
		return err
	}
	boxes := make([]boxStats, len(d.Groups))
	present := make([]bool, len(d.Groups))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, g := range d.Groups {
		boxes[i], present[i] = summarizeBox(g.Values)
		for _, v := range g.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return errors.New("no values in any group")
	}
	ticks := niceTicks(lo, hi, 6)
	y := linear{d0: math.Min(lo, ticks[0]), d1: math.Max(hi, ticks[len(ticks)-1]), p0: c.plot.Bottom, p1: c.plot.Top}
	c.title(spec.Title)
	c.valueAxis(y, ticks, true)
	colors := paletteColors(spec.Style.Palette, len(d.Groups))
	band := float64(c.plot.Right-c.plot.Left) / float64(len(d.Groups))
	edge := drawing.ColorFromHex("3f3f3f")
	for i, g := range d.Groups {
		x0 := c.plot.Left + int(band*float64(i)+band*0.2)
		x1 := c.plot.Left + int(band*float64(i+1)-band*0.2)
		mid := (x0 + x1) / 2
		c.text(truncate(g.Key, 16), mid, c.plot.Bottom+14, 10, axisColor, alignCenter)
		if !present[i] {
			continue
		}
		b := boxes[i]
		c.line(mid, y.at(b.Low), mid, y.at(b.Q1), edge, 1.5)
		c.line(mid, y.at(b.Q3), mid, y.at(b.High), edge, 1.5)
		cap0, cap1 := mid-(x1-x0)/4, mid+(x1-x0)/4
		c.line(cap0, y.at(b.Low), cap1, y.at(b.Low), edge, 1.5)
		c.line(cap0, y.at(b.High), cap1, y.at(b.High), edge, 1.5)
		c.rect(x0, y.at(b.Q3), x1, y.at(b.Q1), colors[i], edge)
		c.line(x0, y.at(b.Median), x1, y.at(b.Median), edge, 2)
		for _, f := range b.Fliers {
			c.dot(mid, y.at(f), 3, edge)
		}
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)
	return c.save(w)
}

// stackedBars stacks the selected series per category. Positive sums grow up
// from zero and negative sums grow down.
func stackedBars(w io.Writer, spec *analysis.ChartSpec, d *analysis.StackedTable, opt Options) error {
	if len(d.Keys) == 0 || len(d.Series) == 0 {
		return errors.New("no categories to stack")
	}
	c, err := newCanvas(opt.Format.provider(), opt.Width, opt.Height, chart.Box{Top: 48, Left: 80, Right: 170, Bottom: 70})
	if err != nil {
		return err
	}
	lo, hi := 0.0, 0.0
	for _, row := range d.Sums {
		pos, neg := 0.0, 0.0
		for _, v := range row {
			if v >= 0 {
				pos += v
			} else {
				neg += v
			}
		}
		lo, hi = math.Min(lo, neg), math.Max(hi, pos)
	}
	ticks := niceTicks(lo, hi, 6)
	y := linear{d0: math.Min(lo, ticks[0]), d1: math.Max(hi, ticks[len(ticks)-1]), p0: c.plot.Bottom, p1: c.plot.Top}
	c.title(spec.Title)
	c.valueAxis(y, ticks, true)
	colors := paletteColors(spec.Style.Palette, len(d.Series))
	band := float64(c.plot.Right-c.plot.Left) / float64(len(d.Keys))
	for i, key := range d.Keys {
		x0 := c.plot.Left + int(band*float64(i)+band*0.15)
		x1 := c.plot.Left + int(band*float64(i+1)-band*0.15)
		pos, neg := 0.0, 0.0
		for j, v := range d.Sums[i] {
			var from, to float64
			if v >= 0 {
				from, to = pos, pos+v
				pos = to
			} else {
				from, to = neg, neg+v
				neg = to
			}
			if v == 0 {
				continue
			}
			c.rect(x0, y.at(to), x1, y.at(from), colors[j], colors[j])
		}
		c.text(truncate(key, 16), (x0+x1)/2, c.plot.Bottom+14, 10, axisColor, alignCenter)
	}
	if y.d0 < 0 {
		c.line(c.plot.Left, y.at(0), c.plot.Right, y.at(0), axisColor, 1)
	}
	c.frame()
	c.xLabel(spec.XLabel)
	c.yLabel(spec.YLabel)

	// legend
	lx := c.plot.Right + 16
	for j, name := range d.Series {
		ly := c.plot.Top + 10 + j*20
		c.rect(lx, ly-6, lx+12, ly+6, colors[j], colors[j])
		c.text(truncate(name, 20), lx+18, ly, 10, axisColor, alignLeft)
	}
	return c.save(w)
}
