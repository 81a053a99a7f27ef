package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// Sheet is one worksheet of a fixture workbook. Rows[0] is usually the header.
// Cells may be string, InlineString, int, float64, bool, time.Time or nil.
type Sheet struct {
	Name string
	Rows [][]any
}

// InlineString is written as an inline string cell instead of a shared string.
type InlineString string

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Style indexes written into xl/styles.xml cellXfs.
const (
	styleGeneral  = 0
	styleDate     = 1
	styleDateTime = 2
)

// XLSX builds an in-memory workbook containing the given sheets in order.
func XLSX(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()
	var shared []string
	sharedIdx := map[string]int{}
	intern := func(s string) int {
		if i, ok := sharedIdx[s]; ok {
			return i
		}
		sharedIdx[s] = len(shared)
		shared = append(shared, s)
		return len(shared) - 1
	}

	files := map[string]string{}
	var order []string
	add := func(name, body string) {
		files[name] = body
		order = append(order, name)
	}

	var wb, rels, types strings.Builder
	wb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`)
	rels.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	types.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>`)

	var sheetBodies []string
	for i, s := range sheets {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		rid := fmt.Sprintf("rId%d", i+1)
		fmt.Fprintf(&wb, `<sheet name="%s" sheetId="%d" r:id="%s"/>`, escape(name), i+1, rid)
		// Absolute targets exercise the path normalization of the reader.
		target := fmt.Sprintf("worksheets/sheet%d.xml", i+1)
		if i%2 == 1 {
			target = "/xl/" + target
		}
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="%s"/>`, rid, target)
		fmt.Fprintf(&types, `<Override PartName="/xl/worksheets/sheet%d.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`, i+1)

		var body strings.Builder
		body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
		for r, row := range s.Rows {
			fmt.Fprintf(&body, `<row r="%d">`, r+1)
			for c, v := range row {
				ref := colName(c) + strconv.Itoa(r+1)
				switch x := v.(type) {
				case nil:
				case string:
					fmt.Fprintf(&body, `<c r="%s" t="s"><v>%d</v></c>`, ref, intern(x))
				case InlineString:
					fmt.Fprintf(&body, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, escape(string(x)))
				case int:
					fmt.Fprintf(&body, `<c r="%s"><v>%d</v></c>`, ref, x)
				case float64:
					fmt.Fprintf(&body, `<c r="%s"><v>%s</v></c>`, ref, strconv.FormatFloat(x, 'g', -1, 64))
				case bool:
					b := 0
					if x {
						b = 1
					}
					fmt.Fprintf(&body, `<c r="%s" t="b"><v>%d</v></c>`, ref, b)
				case time.Time:
					style := styleDate
					if x.Hour() != 0 || x.Minute() != 0 || x.Second() != 0 {
						style = styleDateTime
					}
					serial := x.Sub(excelEpoch).Hours() / 24
					fmt.Fprintf(&body, `<c r="%s" s="%d"><v>%s</v></c>`, ref, style, strconv.FormatFloat(serial, 'f', -1, 64))
				default:
					t.Fatalf("testutil.XLSX: unsupported cell type %T", v)
				}
			}
			body.WriteString(`</row>`)
		}
		body.WriteString(`</sheetData></worksheet>`)
		sheetBodies = append(sheetBodies, body.String())
	}
	wb.WriteString(`</sheets></workbook>`)
	rels.WriteString(`<Relationship Id="rIdStyles" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`<Relationship Id="rIdStrings" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings" Target="sharedStrings.xml"/>` +
		`</Relationships>`)
	types.WriteString(`</Types>`)

	var sst strings.Builder
	fmt.Fprintf(&sst, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="%d" uniqueCount="%d">`, len(shared), len(shared))
	for _, s := range shared {
		fmt.Fprintf(&sst, `<si><t xml:space="preserve">%s</t></si>`, escape(s))
	}
	sst.WriteString(`</sst>`)

	styles := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
		`<cellXfs count="3"><xf numFmtId="0"/><xf numFmtId="14" applyNumberFormat="1"/><xf numFmtId="22" applyNumberFormat="1"/></cellXfs>` +
		`</styleSheet>`

	add("[Content_Types].xml", types.String())
	add("xl/workbook.xml", wb.String())
	add("xl/_rels/workbook.xml.rels", rels.String())
	add("xl/styles.xml", styles)
	add("xl/sharedStrings.xml", sst.String())
	for i, b := range sheetBodies {
		add(fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1), b)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("testutil.XLSX: create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("testutil.XLSX: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("testutil.XLSX: close: %v", err)
	}
	return buf.Bytes()
}

// WriteXLSX writes a fixture workbook into a temp dir and returns its path.
func WriteXLSX(t testing.TB, name string, sheets ...Sheet) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, XLSX(t, sheets...), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

// SalesSheet is a small mixed-role dataset used across tests.
func SalesSheet() Sheet {
	d := func(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }
	return Sheet{Name: "Sales", Rows: [][]any{
		{"Region", "Product", "Sales", "Units", "Time"},
		{"North", "Widget", 120.5, 3, d(2024, 1, 5)},
		{"South", "Gadget", 80.0, 2, d(2024, 1, 20)},
		{"North", "Gadget", 45.25, 1, d(2024, 2, 2)},
		{"East", "Widget", 300.0, 7, d(2024, 2, 14)},
		{"South", "Widget", 99.0, 4, d(2024, 3, 1)},
		{"East", "Gizmo", 12.0, 1, d(2024, 3, 30)},
	}}
}

func colName(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
