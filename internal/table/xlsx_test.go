package table_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/sheetviz/internal/table"
	"github.com/KaramelBytes/sheetviz/internal/testutil"
)

func load(t *testing.T, opt table.Options, sheets ...testutil.Sheet) *table.Table {
	t.Helper()
	b := testutil.XLSX(t, sheets...)
	tb, err := table.LoadXLSX(bytes.NewReader(b), int64(len(b)), "fixture.xlsx", opt)
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	return tb
}

func TestLoadXLSXDeclaresColumnTypes(t *testing.T) {
	tb := load(t, table.DefaultOptions(), testutil.SalesSheet())
	if tb.Sheet != "Sales" || tb.Rows() != 6 {
		t.Fatalf("sheet=%q rows=%d", tb.Sheet, tb.Rows())
	}
	want := map[string]table.ElemType{
		"Region":  table.TypeText,
		"Product": table.TypeText,
		"Sales":   table.TypeReal,
		"Units":   table.TypeInteger,
		"Time":    table.TypeDateTime,
	}
	for name, typ := range want {
		c, ok := tb.Column(name)
		if !ok {
			t.Fatalf("missing column %q in %v", name, tb.Names())
		}
		if c.Type != typ {
			t.Errorf("%s: type %s, want %s", name, c.Type, typ)
		}
	}
	tc, _ := tb.Column("Time")
	if got := tc.Values[0].T; !got.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first Time = %v", got)
	}
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	first := testutil.Sheet{Name: "Summary", Rows: [][]any{{"A"}, {1}}}
	second := testutil.Sheet{Name: "Data", Rows: [][]any{{"B", "C"}, {"x", 2.5}, {"y", 3.5}}}

	byIndex := load(t, table.Options{SheetIndex: 2}, first, second)
	if byIndex.Sheet != "Data" || len(byIndex.Columns) != 2 || byIndex.Rows() != 2 {
		t.Fatalf("by index: sheet=%q cols=%v rows=%d", byIndex.Sheet, byIndex.Names(), byIndex.Rows())
	}
	byName := load(t, table.Options{SheetName: "summary"}, first, second)
	if byName.Sheet != "Summary" {
		t.Fatalf("by name: sheet=%q", byName.Sheet)
	}

	b := testutil.XLSX(t, first, second)
	_, err := table.LoadXLSX(bytes.NewReader(b), int64(len(b)), "f.xlsx", table.Options{SheetName: "Nope"})
	var le *table.LoadError
	if !errors.As(err, &le) || !strings.Contains(err.Error(), "available sheets: Summary, Data") {
		t.Fatalf("missing sheet error: %v", err)
	}
	_, err = table.LoadXLSX(bytes.NewReader(b), int64(len(b)), "f.xlsx", table.Options{SheetIndex: 3})
	if !errors.As(err, &le) {
		t.Fatalf("out of range index: %v", err)
	}
}

func TestLoadXLSXHeaderNamesAndPadding(t *testing.T) {
	tb := load(t, table.DefaultOptions(), testutil.Sheet{Rows: [][]any{
		{"Name", nil, "Name", testutil.InlineString("Flag")},
		{"a", 1, "x", true},
		{"b"},
		{"NA", 3, "z", false, 9},
	}})
	want := []string{"Name", "Unnamed: 1", "Name.1", "Flag", "Unnamed: 4"}
	if got := tb.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names = %v, want %v", got, want)
	}
	name, _ := tb.Column("Name")
	if !name.Values[2].IsEmpty() {
		t.Fatalf("NA token should load as missing, got %v", name.Values[2])
	}
	un, _ := tb.Column("Unnamed: 1")
	if un.Type != table.TypeReal || !un.Values[1].IsEmpty() {
		t.Fatalf("padded numeric column: type=%s row1=%v", un.Type, un.Values[1])
	}
	flag, _ := tb.Column("Flag")
	if flag.Type != table.TypeBool {
		t.Fatalf("Flag type = %s", flag.Type)
	}
}

func TestLoadXLSXMaxRows(t *testing.T) {
	b := testutil.XLSX(t, testutil.SalesSheet())
	_, err := table.LoadXLSX(bytes.NewReader(b), int64(len(b)), "sales.xlsx", table.Options{MaxRows: 3})
	var le *table.LoadError
	if !errors.As(err, &le) || !strings.Contains(err.Error(), "exceeds 3 rows") {
		t.Fatalf("expected row limit LoadError, got %v", err)
	}
}

func TestLoadXLSXRejectsGarbage(t *testing.T) {
	junk := []byte("definitely not a zip archive")
	_, err := table.LoadXLSX(bytes.NewReader(junk), int64(len(junk)), "junk.xlsx", table.DefaultOptions())
	var le *table.LoadError
	if !errors.As(err, &le) || le.Name != "junk.xlsx" {
		t.Fatalf("expected LoadError, got %v", err)
	}

	empty := testutil.XLSX(t, testutil.Sheet{Name: "Empty"})
	_, err = table.LoadXLSX(bytes.NewReader(empty), int64(len(empty)), "empty.xlsx", table.DefaultOptions())
	if !errors.As(err, &le) || !strings.Contains(err.Error(), "no header row") {
		t.Fatalf("expected missing header LoadError, got %v", err)
	}
}

func TestLoadFileExtension(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := table.LoadFile(p, table.DefaultOptions())
	if !errors.Is(err, table.ErrNotSpreadsheet) {
		t.Fatalf("expected ErrNotSpreadsheet, got %v", err)
	}

	good := testutil.WriteXLSX(t, "sales.xlsx", testutil.SalesSheet())
	tb, err := table.LoadFile(good, table.DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if tb.Name != "sales.xlsx" {
		t.Fatalf("name = %q", tb.Name)
	}
}
