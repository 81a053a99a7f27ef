// Package render draws chart specifications as SVG or PNG figures.
package render

import (
	"fmt"
	"io"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
)

// Format is an output image format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case SVG, "":
		return SVG, nil
	case PNG:
		return PNG, nil
	}
	return "", fmt.Errorf("unsupported image format %q (want svg or png)", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() chart.RendererProvider {
	if f == PNG {
		return chart.PNG
	}
	return chart.SVG
}

// Options sizes the figure.
type Options struct {
	Format Format
	Width  int
	Height int
}

// DefaultOptions is a 960x640 SVG.
func DefaultOptions() Options {
	return Options{Format: SVG, Width: 960, Height: 640}
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// Render writes the figure for spec to w.
func Render(w io.Writer, spec *analysis.ChartSpec, opt Options) error {
	if spec == nil {
		return fmt.Errorf("render: nil chart spec")
	}
	opt = opt.normalized()
	var err error
	switch d := spec.Data.(type) {
	case *analysis.CategoryCounts:
		err = countPlot(w, spec, d, opt)
	case *analysis.NumericValues:
		err = histPlot(w, spec, d, opt)
	case *analysis.GroupSums:
		err = horizontalBars(w, spec, d, opt)
	case *analysis.CorrMatrix:
		err = heatmap(w, spec, d, opt)
	case *analysis.OutlierSet:
		err = outlierScatter(w, spec, d, opt)
	case *analysis.BoxGroups:
		err = boxPlot(w, spec, d, opt)
	case *analysis.MonthSeries:
		err = lineChart(w, spec, d, opt)
	case *analysis.StackedTable:
		err = stackedBars(w, spec, d, opt)
	default:
		err = fmt.Errorf("unsupported dataset %T", spec.Data)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", spec.Kind, err)
	}
	return nil
}
