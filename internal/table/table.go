// Package table holds the in-memory tabular model loaded from an uploaded
// workbook sheet.
package table

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ValueKind tags the content of a single cell.
type ValueKind int

const (
	Empty ValueKind = iota
	Number
	Text
	Bool
	Time
)

// Value is one cell of a column.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	T    time.Time
	B    bool
}

// NumberValue returns a numeric cell. NaN is stored as Empty.
func NumberValue(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{Kind: Number, Num: f}
}

// TextValue returns a text cell. The empty string is stored as Empty.
func TextValue(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{Kind: Text, Str: s}
}

// TimeValue returns a date-time cell.
func TimeValue(t time.Time) Value { return Value{Kind: Time, T: t} }

// BoolValue returns a boolean cell.
func BoolValue(b bool) Value { return Value{Kind: Bool, B: b} }

// IsEmpty reports whether the cell is missing.
func (v Value) IsEmpty() bool { return v.Kind == Empty }

// String renders the cell for previews.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return fmt.Sprintf("%d", int64(v.Num))
		}
		return fmt.Sprintf("%g", v.Num)
	case Text:
		return v.Str
	case Bool:
		if v.B {
			return "True"
		}
		return "False"
	case Time:
		if v.T.Hour() == 0 && v.T.Minute() == 0 && v.T.Second() == 0 && v.T.Nanosecond() == 0 {
			return v.T.Format("2006-01-02")
		}
		return v.T.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// ElemType is the uniform declared element type of a column.
type ElemType int

const (
	TypeEmpty ElemType = iota
	TypeInteger
	TypeReal
	TypeText
	TypeDateTime
	TypeBool
	TypeMixed
)

func (t ElemType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeText:
		return "text"
	case TypeDateTime:
		return "datetime"
	case TypeBool:
		return "bool"
	case TypeMixed:
		return "mixed"
	default:
		return "empty"
	}
}

// Column is a named, typed column.
type Column struct {
	Name    string
	Type    ElemType
	Values  []Value
	Derived bool
}

// NewColumn builds a column and declares its element type from the values.
func NewColumn(name string, values []Value) *Column {
	return &Column{Name: name, Type: DeclareType(values), Values: values}
}

// DeclareType decides the uniform element type of a sequence of cells.
// Integer requires every cell to be present and integral; a missing cell
// widens the column to Real.
func DeclareType(values []Value) ElemType {
	var nums, texts, times, bools, empty int
	integral := true
	for _, v := range values {
		switch v.Kind {
		case Empty:
			empty++
		case Number:
			nums++
			if v.Num != math.Trunc(v.Num) || math.IsInf(v.Num, 0) {
				integral = false
			}
		case Text:
			texts++
		case Time:
			times++
		case Bool:
			bools++
		}
	}
	present := len(values) - empty
	switch {
	case present == 0:
		return TypeEmpty
	case nums == present:
		if integral && empty == 0 {
			return TypeInteger
		}
		return TypeReal
	case texts == present:
		return TypeText
	case times == present:
		return TypeDateTime
	case bools == present:
		return TypeBool
	default:
		return TypeMixed
	}
}

// Floats returns the numeric value of each row and whether it is present.
func (c *Column) Floats() ([]float64, []bool) {
	out := make([]float64, len(c.Values))
	ok := make([]bool, len(c.Values))
	for i, v := range c.Values {
		if v.Kind == Number {
			out[i] = v.Num
			ok[i] = true
		}
	}
	return out, ok
}

// Table is an ordered set of equally long columns loaded from one sheet.
type Table struct {
	ID      uuid.UUID
	Name    string
	Sheet   string
	Columns []*Column
	version int
	rows    int
}

// New assembles a table from columns. All columns must have the same length.
func New(name string, cols ...*Column) (*Table, error) {
	t := &Table{ID: uuid.New(), Name: name}
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), t.rows)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
	}
	t.Columns = cols
	return t, nil
}

// Rows returns the fixed row count.
func (t *Table) Rows() int { return t.rows }

// Version increases every time a derived column is set.
func (t *Table) Version() int { return t.version }

// Column looks a column up by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Names lists column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// SetDerived appends a computed column, or overwrites the column of the same
// name in place. It is the only mutation a loaded table accepts.
func (t *Table) SetDerived(name string, values []Value) error {
	if len(values) != t.rows {
		return fmt.Errorf("derived column %q has %d rows, want %d", name, len(values), t.rows)
	}
	col := NewColumn(name, values)
	col.Derived = true
	for i, c := range t.Columns {
		if c.Name == name {
			t.Columns[i] = col
			t.version++
			return nil
		}
	}
	t.Columns = append(t.Columns, col)
	t.version++
	return nil
}

// Clone returns a copy that shares column data with t but has its own column
// list. Derived columns set on the copy never reach t.
func (t *Table) Clone() *Table {
	cp := *t
	cp.Columns = append([]*Column(nil), t.Columns...)
	return &cp
}

// Head returns up to n rows rendered as strings.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = c.Values[i].String()
		}
		out[i] = row
	}
	return out
}
