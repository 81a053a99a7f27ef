package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	axisColor = drawing.ColorFromHex("333333")
	gridColor = drawing.ColorFromHex("e5e5e5")
)

// canvas draws the chart kinds go-chart has no series type for (heatmap,
// horizontal bars, box plots) directly on a go-chart renderer.
type canvas struct {
	r    chart.Renderer
	w, h int
	plot chart.Box
}

func newCanvas(provider chart.RendererProvider, w, h int, margin chart.Box) (*canvas, error) {
	r, err := provider(w, h)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)
	c := &canvas{r: r, w: w, h: h}
	c.plot = chart.Box{Top: margin.Top, Left: margin.Left, Right: w - margin.Right, Bottom: h - margin.Bottom}
	c.rect(0, 0, w, h, drawing.ColorWhite, drawing.ColorWhite)
	return c, nil
}

func (c *canvas) save(w io.Writer) error { return c.r.Save(w) }

func (c *canvas) rect(x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.LineTo(x0, y0)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, color drawing.Color, width float64) {
	c.r.SetStrokeColor(color)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) dot(x, y int, radius float64, fill drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(fill)
	c.r.SetStrokeWidth(1)
	c.r.Circle(radius, x, y)
	c.r.FillStroke()
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// text draws s with its vertical center on y.
func (c *canvas) text(s string, x, y int, size float64, color drawing.Color, a align) {
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	box := c.r.MeasureText(s)
	switch a {
	case alignCenter:
		x -= box.Width() / 2
	case alignRight:
		x -= box.Width()
	}
	c.r.Text(s, x, y+box.Height()/2)
}

// vtext draws s rotated a quarter turn counter-clockwise, centered on (x, y).
func (c *canvas) vtext(s string, x, y int, size float64, color drawing.Color) {
	c.r.SetFontSize(size)
	c.r.SetFontColor(color)
	box := c.r.MeasureText(s)
	c.r.SetTextRotation(-math.Pi / 2)
	c.r.Text(s, x+box.Height()/2, y+box.Width()/2)
	c.r.ClearTextRotation()
}

func (c *canvas) title(s string) {
	c.text(s, c.w/2, c.plot.Top/2, 14, drawing.ColorBlack, alignCenter)
}

func (c *canvas) xLabel(s string) {
	if s != "" {
		c.text(s, (c.plot.Left+c.plot.Right)/2, c.h-14, 11, axisColor, alignCenter)
	}
}

func (c *canvas) yLabel(s string) {
	if s != "" {
		c.vtext(s, 14, (c.plot.Top+c.plot.Bottom)/2, 11, axisColor)
	}
}

// linear maps a data range onto a pixel range.
type linear struct {
	d0, d1 float64
	p0, p1 int
}

func (l linear) at(v float64) int {
	if l.d1 == l.d0 {
		return (l.p0 + l.p1) / 2
	}
	return l.p0 + int(math.Round((v-l.d0)/(l.d1-l.d0)*float64(l.p1-l.p0)))
}

// valueAxis draws grid lines and tick labels for a numeric axis. Vertical
// axes label on the left edge of the plot; horizontal axes below it.
func (c *canvas) valueAxis(scale linear, ticks []float64, vertical bool) {
	for _, v := range ticks {
		p := scale.at(v)
		label := formatTick(v)
		if vertical {
			c.line(c.plot.Left, p, c.plot.Right, p, gridColor, 1)
			c.text(label, c.plot.Left-6, p, 9, axisColor, alignRight)
		} else {
			c.line(p, c.plot.Top, p, c.plot.Bottom, gridColor, 1)
			c.text(label, p, c.plot.Bottom+12, 9, axisColor, alignCenter)
		}
	}
}

func (c *canvas) frame() {
	c.line(c.plot.Left, c.plot.Bottom, c.plot.Right, c.plot.Bottom, axisColor, 1)
	c.line(c.plot.Left, c.plot.Top, c.plot.Left, c.plot.Bottom, axisColor, 1)
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e9 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// truncate shortens long category labels so they fit beside the plot.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
