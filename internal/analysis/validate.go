package analysis

import (
	"fmt"
	"math"
)

// Result is either Accepted (Request set, Reason empty) or Rejected (Reason set).
type Result struct {
	Request Request
	Reason  string
	kind    Kind
}

// Accepted reports whether the request may be built.
func (r Result) Accepted() bool { return r.Reason == "" && r.Request != nil }

// Err returns nil for accepted results and a *SchemaMismatchError otherwise.
func (r Result) Err() error {
	if r.Accepted() {
		return nil
	}
	return &SchemaMismatchError{Kind: r.kind, Reason: r.Reason}
}

func accept(req Request) Result { return Result{Request: req, kind: req.Kind()} }

func reject(k Kind, format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...), kind: k}
}

// ValidateSelection builds the request for the widget state and validates it.
func ValidateSelection(sel Selection, s *Schema) Result {
	req, err := sel.Request()
	if err != nil {
		return reject(KindUnknown, "%v", err)
	}
	return Validate(req, s)
}

// Validate checks a request against the classified schema. It never panics
// and always returns either an accepted or a rejected result.
func Validate(req Request, s *Schema) Result {
	if req == nil {
		return reject(KindUnknown, "no visualization selected")
	}
	if s == nil {
		return reject(req.Kind(), "no dataset loaded")
	}
	switch r := req.(type) {
	case Distribution:
		if res, ok := requireColumn(s, r.Kind(), r.Column, "column"); !ok {
			return res
		}
		if role, _ := s.Role(r.Column); role != Numeric && role != Categorical {
			return reject(r.Kind(), "selected column %q is not suitable for distribution visualization (role %s)", r.Column, role)
		}
		return accept(r)

	case TopN:
		if res, ok := requirePair(s, r.Kind(), r.Category, r.Value); !ok {
			return res
		}
		if r.N < MinTopN || r.N > MaxTopN {
			return reject(r.Kind(), "n must be between %d and %d, got %d", MinTopN, MaxTopN, r.N)
		}
		return accept(r)

	case Heatmap:
		if nums := s.Names(Numeric); len(nums) < 2 {
			return reject(r.Kind(), "dataset does not have enough numerical columns for a heatmap: found %d, need at least 2", len(nums))
		}
		return accept(r)

	case Outlier:
		if res, ok := requireColumn(s, r.Kind(), r.Column, "numeric column"); !ok {
			return res
		}
		if role, _ := s.Role(r.Column); role != Numeric {
			return reject(r.Kind(), "selected column %q is not numeric; outlier detection needs a numeric column", r.Column)
		}
		if math.IsNaN(r.Threshold) || r.Threshold < MinThreshold || r.Threshold > MaxThreshold {
			return reject(r.Kind(), "z-score threshold must be between %.1f and %.1f, got %g", MinThreshold, MaxThreshold, r.Threshold)
		}
		return accept(r)

	case BoxPlot:
		if res, ok := requirePair(s, r.Kind(), r.Category, r.Value); !ok {
			return res
		}
		return accept(r)

	case TimeSeries:
		if r.TimeColumn != TimeColumn {
			return reject(r.Kind(), "time column must be named %q, got %q", TimeColumn, r.TimeColumn)
		}
		role, ok := s.Role(TimeColumn)
		if !ok {
			return reject(r.Kind(), "the dataset does not have a time column named %q", TimeColumn)
		}
		if role != Temporal {
			return reject(r.Kind(), "column %q cannot be parsed as date-time", TimeColumn)
		}
		if res, ok := requireColumn(s, r.Kind(), r.Value, "value column"); !ok {
			return res
		}
		if role, _ := s.Role(r.Value); role != Numeric {
			return reject(r.Kind(), "value column %q is not numeric", r.Value)
		}
		return accept(r)

	case StackedBar:
		if res, ok := requireColumn(s, r.Kind(), r.Category, "categorical column"); !ok {
			return res
		}
		if role, _ := s.Role(r.Category); role != Categorical {
			return reject(r.Kind(), "category column %q is not categorical; ensure you select one categorical column and multiple numeric columns", r.Category)
		}
		if len(r.Values) < 2 {
			return reject(r.Kind(), "ensure you select one categorical column and multiple numeric columns: %d numeric column(s) selected, need at least 2", len(r.Values))
		}
		seen := make(map[string]bool, len(r.Values))
		for _, v := range r.Values {
			if seen[v] {
				return reject(r.Kind(), "numeric column %q is selected more than once", v)
			}
			seen[v] = true
			if !s.Has(v) {
				return reject(r.Kind(), "column %q does not exist in the dataset", v)
			}
			if role, _ := s.Role(v); role != Numeric {
				return reject(r.Kind(), "selected column %q is not numeric", v)
			}
		}
		return accept(r)
	}
	return reject(req.Kind(), "unsupported visualization %T", req)
}

func requireColumn(s *Schema, k Kind, name, what string) (Result, bool) {
	if name == "" {
		return reject(k, "select a %s", what), false
	}
	if !s.Has(name) {
		return reject(k, "column %q does not exist in the dataset", name), false
	}
	return Result{}, true
}

// requirePair enforces the categorical-by-numeric shape shared by Top-N and box plots.
func requirePair(s *Schema, k Kind, category, value string) (Result, bool) {
	if res, ok := requireColumn(s, k, category, "categorical column"); !ok {
		return res, false
	}
	if res, ok := requireColumn(s, k, value, "numeric column"); !ok {
		return res, false
	}
	if role, _ := s.Role(category); role != Categorical {
		return reject(k, "%q is not a categorical column; ensure you select a categorical column and a numeric column", category), false
	}
	if role, _ := s.Role(value); role != Numeric {
		return reject(k, "%q is not a numeric column; ensure you select a categorical column and a numeric column", value), false
	}
	return Result{}, true
}
