package analysis

import "time"

// ChartSpec is what the renderer consumes: a kind tag, labels, styling hints
// and the derived dataset.
type ChartSpec struct {
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	Style  Style
	Data   Dataset
}

// Style carries the preset styling hints of a chart kind.
type Style struct {
	Palette    string // coolwarm, viridis, YlGnBu, Set2
	Color      string // single-series color
	Accent     string // highlight color (outliers)
	Marker     string // "o" draws point markers on lines
	KDE        bool
	Annotate   bool
	Horizontal bool
}

// Dataset is one of the derived dataset types below.
type Dataset interface{ dataset() }

// CategoryCounts holds value counts in order of first appearance.
type CategoryCounts struct {
	Column string
	Counts []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// NumericValues holds the raw non-missing values of a numeric column; the
// renderer bins them and estimates the density.
type NumericValues struct {
	Column string
	Values []float64
}

// GroupSums holds summed values per category, largest first.
type GroupSums struct {
	Category string
	Value    string
	Groups   []GroupSum
}

type GroupSum struct {
	Key string
	Sum float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// OutlierSet is the z-score partition of one numeric column.
type OutlierSet struct {
	Column    string
	Threshold float64
	Mean      float64
	Std       float64
	Points    []OutlierPoint
	Skipped   int // rows with a missing value
}

// OutlierPoint is one row with a present value.
type OutlierPoint struct {
	Row     int
	X       float64
	Z       float64
	Outlier bool
}

// Outliers returns the rows with |z| above the threshold.
func (o *OutlierSet) Outliers() []OutlierPoint {
	var out []OutlierPoint
	for _, p := range o.Points {
		if p.Outlier {
			out = append(out, p)
		}
	}
	return out
}

// Inliers returns the rows with |z| at or below the threshold.
func (o *OutlierSet) Inliers() []OutlierPoint {
	var out []OutlierPoint
	for _, p := range o.Points {
		if !p.Outlier {
			out = append(out, p)
		}
	}
	return out
}

// BoxGroups carries the values per category; quartiles are left to the renderer.
type BoxGroups struct {
	Category string
	Value    string
	Groups   []BoxGroup
}

type BoxGroup struct {
	Key    string
	Values []float64
}

// MonthSeries holds monthly sums keyed by the first instant of each month.
type MonthSeries struct {
	TimeColumn string
	Value      string
	Points     []MonthPoint
}

type MonthPoint struct {
	Month time.Time
	Sum   float64
}

// StackedTable holds per-category sums of several numeric columns.
// Sums[i][j] is the sum of Series[j] over rows whose category is Keys[i].
type StackedTable struct {
	Category string
	Series   []string
	Keys     []string
	Sums     [][]float64
}

func (*CategoryCounts) dataset() {}
func (*NumericValues) dataset()  {}
func (*GroupSums) dataset()      {}
func (*CorrMatrix) dataset()     {}
func (*OutlierSet) dataset()     {}
func (*BoxGroups) dataset()      {}
func (*MonthSeries) dataset()    {}
func (*StackedTable) dataset()   {}
