package table

import (
	"math"
	"testing"
	"time"
)

func TestDeclareType(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		vals []Value
		want ElemType
	}{
		{"integers", []Value{NumberValue(1), NumberValue(2)}, TypeInteger},
		{"integers with gap", []Value{NumberValue(1), {}, NumberValue(2)}, TypeReal},
		{"reals", []Value{NumberValue(1.5), NumberValue(2)}, TypeReal},
		{"text", []Value{TextValue("a"), {}, TextValue("b")}, TypeText},
		{"times", []Value{TimeValue(now)}, TypeDateTime},
		{"bools", []Value{BoolValue(true), BoolValue(false)}, TypeBool},
		{"mixed", []Value{NumberValue(1), TextValue("x")}, TypeMixed},
		{"empty", []Value{{}, {}}, TypeEmpty},
		{"nan is missing", []Value{NumberValue(math.NaN()), NumberValue(3)}, TypeReal},
	}
	for _, tc := range cases {
		if got := DeclareType(tc.vals); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestNewRejectsRaggedAndDuplicateColumns(t *testing.T) {
	a := NewColumn("a", []Value{NumberValue(1), NumberValue(2)})
	b := NewColumn("b", []Value{NumberValue(1)})
	if _, err := New("t", a, b); err == nil {
		t.Fatal("expected ragged column error")
	}
	if _, err := New("t", a, NewColumn("a", []Value{{}, {}})); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestSetDerivedAppendsThenOverwrites(t *testing.T) {
	tb, err := New("t", NewColumn("x", []Value{NumberValue(1), NumberValue(2)}))
	if err != nil {
		t.Fatal(err)
	}
	if err := tb.SetDerived("z", []Value{NumberValue(-1), NumberValue(1)}); err != nil {
		t.Fatal(err)
	}
	if len(tb.Columns) != 2 || tb.Version() != 1 {
		t.Fatalf("after append: cols=%d version=%d", len(tb.Columns), tb.Version())
	}
	if err := tb.SetDerived("z", []Value{NumberValue(5), {}}); err != nil {
		t.Fatal(err)
	}
	z, _ := tb.Column("z")
	if len(tb.Columns) != 2 || tb.Version() != 2 || !z.Derived || z.Values[0].Num != 5 || z.Type != TypeReal {
		t.Fatalf("after overwrite: cols=%d version=%d z=%+v", len(tb.Columns), tb.Version(), z)
	}
	if err := tb.SetDerived("z", []Value{{}}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestCloneKeepsDerivedColumnsLocal(t *testing.T) {
	tb, err := New("t", NewColumn("x", []Value{NumberValue(1), NumberValue(2)}))
	if err != nil {
		t.Fatal(err)
	}
	cp := tb.Clone()
	if err := cp.SetDerived("z", []Value{NumberValue(-1), NumberValue(1)}); err != nil {
		t.Fatal(err)
	}
	if _, ok := tb.Column("z"); ok || len(tb.Columns) != 1 || tb.Version() != 0 {
		t.Fatalf("original changed: cols=%v version=%d", tb.Names(), tb.Version())
	}
	if cp.ID != tb.ID || cp.Rows() != tb.Rows() || len(cp.Columns) != 2 {
		t.Fatalf("clone = %+v", cp)
	}
	if err := cp.SetDerived("x", []Value{{}, {}}); err != nil {
		t.Fatal(err)
	}
	if x, _ := tb.Column("x"); x.Derived || x.Values[0].Num != 1 {
		t.Fatalf("overwrite on clone reached original: %+v", x)
	}
}

func TestHeadFormatsCells(t *testing.T) {
	tb, err := New("t",
		NewColumn("n", []Value{NumberValue(3), NumberValue(2.5), {}}),
		NewColumn("d", []Value{TimeValue(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)), TimeValue(time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC)), {}}),
		NewColumn("b", []Value{BoolValue(true), BoolValue(false), {}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	head := tb.Head(5)
	if len(head) != 3 {
		t.Fatalf("head rows = %d", len(head))
	}
	want := [][]string{
		{"3", "2024-01-02", "True"},
		{"2.5", "2024-01-02 13:04:05", "False"},
		{"", "", ""},
	}
	for i := range want {
		for j := range want[i] {
			if head[i][j] != want[i][j] {
				t.Errorf("head[%d][%d] = %q, want %q", i, j, head[i][j], want[i][j])
			}
		}
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.in); got != tt.want {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsDateFormat(t *testing.T) {
	tests := []struct {
		id   int
		code string
		want bool
	}{
		{14, "", true},
		{22, "", true},
		{0, "", false},
		{164, "yyyy-mm-dd", true},
		{165, `0.00" days"`, false},
		{166, "[Red]#,##0", false},
		{167, "General", false},
	}
	for _, tt := range tests {
		if got := isDateFormat(tt.id, tt.code); got != tt.want {
			t.Errorf("isDateFormat(%d, %q) = %v, want %v", tt.id, tt.code, got, tt.want)
		}
	}
}

func TestExcelTime(t *testing.T) {
	got := excelTime(45292.5, excelEpoch1900)
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("excelTime = %v, want %v", got, want)
	}
}
