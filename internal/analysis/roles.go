// Package analysis classifies table columns, validates chart requests against
// the classified schema and computes the derived datasets charts are drawn from.
package analysis

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/KaramelBytes/sheetviz/internal/table"
)

// TimeColumn is the only column name the time series chart accepts.
const TimeColumn = "Time"

// ZScoreColumn is the derived column appended by outlier detection.
const ZScoreColumn = "Z_Score"

// Role is the semantic category of a column.
type Role int

const (
	Unsupported Role = iota
	Numeric
	Categorical
	Temporal
)

func (r Role) String() string {
	switch r {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Temporal:
		return "temporal"
	default:
		return "unsupported"
	}
}

// ColumnRole pairs a column name with its role.
type ColumnRole struct {
	Name string
	Type table.ElemType
	Role Role
}

// Schema is the ordered role mapping of one table version.
type Schema struct {
	Columns []ColumnRole
	index   map[string]int
}

// Classify assigns exactly one role to every column of t.
func Classify(t *table.Table) *Schema {
	s := &Schema{Columns: make([]ColumnRole, 0, len(t.Columns)), index: make(map[string]int, len(t.Columns))}
	for _, c := range t.Columns {
		s.index[c.Name] = len(s.Columns)
		s.Columns = append(s.Columns, ColumnRole{Name: c.Name, Type: c.Type, Role: roleOf(c)})
	}
	return s
}

func roleOf(c *table.Column) Role {
	switch c.Type {
	case table.TypeInteger, table.TypeReal:
		return Numeric
	case table.TypeDateTime:
		return Temporal
	case table.TypeText:
		if c.Name == TimeColumn && parsesAsTime(c) {
			return Temporal
		}
		return Categorical
	default:
		return Unsupported
	}
}

func parsesAsTime(c *table.Column) bool {
	seen := false
	for _, v := range c.Values {
		if v.IsEmpty() {
			continue
		}
		if _, ok := timeOf(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// timeOf reads a date-time out of a Time cell or a parseable Text cell.
func timeOf(v table.Value) (time.Time, bool) {
	switch v.Kind {
	case table.Time:
		return v.T, true
	case table.Text:
		t, err := dateparse.ParseIn(strings.TrimSpace(v.Str), time.UTC)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// Role returns the role of a column and whether the column exists.
func (s *Schema) Role(name string) (Role, bool) {
	i, ok := s.index[name]
	if !ok {
		return Unsupported, false
	}
	return s.Columns[i].Role, true
}

// Has reports whether the column exists.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names lists the columns holding role r, in table order.
func (s *Schema) Names(r Role) []string {
	var out []string
	for _, c := range s.Columns {
		if c.Role == r {
			out = append(out, c.Name)
		}
	}
	return out
}

// All lists every column name in table order.
func (s *Schema) All() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}
