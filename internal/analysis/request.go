package analysis

import (
	"fmt"
	"strings"
)

// Kind identifies one of the canned visualizations.
type Kind int

const (
	KindUnknown Kind = iota
	KindDistribution
	KindTopN
	KindHeatmap
	KindOutlier
	KindBoxPlot
	KindTimeSeries
	KindStackedBar
)

// Kinds lists every visualization in menu order.
var Kinds = []Kind{KindDistribution, KindTopN, KindHeatmap, KindOutlier, KindBoxPlot, KindTimeSeries, KindStackedBar}

var kindInfo = map[Kind]struct {
	slug, label, needs string
}{
	KindDistribution: {"distribution", "Distribution of a Column", "one numeric or categorical column"},
	KindTopN:         {"top-n", "Top-N Categories by Aggregated Value", "categorical column, numeric column, n in [1,20]"},
	KindHeatmap:      {"heatmap", "Heatmap of Numerical Data", "at least two numeric columns in the dataset"},
	KindOutlier:      {"outlier", "Outlier Detection", "one numeric column, z-score threshold in [1.0,5.0]"},
	KindBoxPlot:      {"box-plot", "Box Plot Comparison", "categorical column, numeric column"},
	KindTimeSeries:   {"time-series", "Time Series Analysis", "date-time column named \"Time\", numeric column"},
	KindStackedBar:   {"stacked-bar", "Stacked Bar Chart", "categorical column, two or more numeric columns"},
}

// Slug is the stable identifier used in URLs, flags and signals.
func (k Kind) Slug() string { return kindInfo[k].slug }

// Label is the menu text.
func (k Kind) Label() string { return kindInfo[k].label }

// Needs describes the inputs the kind requires.
func (k Kind) Needs() string { return kindInfo[k].needs }

func (k Kind) String() string {
	if s := k.Slug(); s != "" {
		return s
	}
	return "unknown"
}

// ParseKind accepts a slug or a menu label.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(s, k.Slug()) || strings.EqualFold(s, k.Label()) {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown chart kind %q", s)
}

// Parameter ranges enforced by the validator, with the slider defaults.
const (
	MinTopN          = 1
	MaxTopN          = 20
	DefaultTopN      = 5
	MinThreshold     = 1.0
	MaxThreshold     = 5.0
	DefaultThreshold = 3.0
)

// Request is a chart request for exactly one kind. The concrete types are
// Distribution, TopN, Heatmap, Outlier, BoxPlot, TimeSeries and StackedBar.
type Request interface {
	Kind() Kind
	sealed()
}

type Distribution struct{ Column string }

type TopN struct {
	Category string
	Value    string
	N        int
}

type Heatmap struct{}

type Outlier struct {
	Column    string
	Threshold float64
}

type BoxPlot struct {
	Category string
	Value    string
}

type TimeSeries struct {
	TimeColumn string
	Value      string
}

type StackedBar struct {
	Category string
	Values   []string
}

func (Distribution) Kind() Kind { return KindDistribution }
func (TopN) Kind() Kind         { return KindTopN }
func (Heatmap) Kind() Kind      { return KindHeatmap }
func (Outlier) Kind() Kind      { return KindOutlier }
func (BoxPlot) Kind() Kind      { return KindBoxPlot }
func (TimeSeries) Kind() Kind   { return KindTimeSeries }
func (StackedBar) Kind() Kind   { return KindStackedBar }

func (Distribution) sealed() {}
func (TopN) sealed()         {}
func (Heatmap) sealed()      {}
func (Outlier) sealed()      {}
func (BoxPlot) sealed()      {}
func (TimeSeries) sealed()   {}
func (StackedBar) sealed()   {}

// Selection is the raw widget state of one interaction. Only the fields the
// selected kind uses are read.
type Selection struct {
	Kind      string   `json:"kind"`
	Column    string   `json:"column"`
	Category  string   `json:"category"`
	Value     string   `json:"value"`
	Values    []string `json:"values"`
	N         int      `json:"n"`
	Threshold float64  `json:"threshold"`
}

// Request turns the widget state into the request variant of its kind.
func (s Selection) Request() (Request, error) {
	k, err := ParseKind(s.Kind)
	if err != nil {
		return nil, err
	}
	switch k {
	case KindDistribution:
		return Distribution{Column: s.Column}, nil
	case KindTopN:
		return TopN{Category: s.Category, Value: s.Value, N: s.N}, nil
	case KindHeatmap:
		return Heatmap{}, nil
	case KindOutlier:
		return Outlier{Column: s.Column, Threshold: s.Threshold}, nil
	case KindBoxPlot:
		return BoxPlot{Category: s.Category, Value: s.Value}, nil
	case KindTimeSeries:
		return TimeSeries{TimeColumn: TimeColumn, Value: s.Value}, nil
	case KindStackedBar:
		vals := make([]string, 0, len(s.Values))
		for _, v := range s.Values {
			if v != "" {
				vals = append(vals, v)
			}
		}
		return StackedBar{Category: s.Category, Values: vals}, nil
	}
	return nil, fmt.Errorf("unknown chart kind %q", s.Kind)
}
