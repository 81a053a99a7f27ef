package analysis

import "fmt"

// SchemaMismatchError is the error form of a rejected request: the selected
// columns or parameters do not satisfy what the chart kind requires.
type SchemaMismatchError struct {
	Kind   Kind
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Label(), e.Reason)
}

// ComputationError indicates a derived dataset could not be computed, such as
// z-scores over a zero-variance column.
type ComputationError struct {
	Kind   Kind
	Column string
	Reason string
}

func (e *ComputationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("cannot compute %s for %q: %s", e.Kind, e.Column, e.Reason)
	}
	return fmt.Sprintf("cannot compute %s: %s", e.Kind, e.Reason)
}
