package table

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Options controls workbook ingestion.
type Options struct {
	// SheetName selects a sheet by name (case-insensitive). Takes precedence over SheetIndex.
	SheetName string
	// SheetIndex is 1-based; values <= 0 mean the first sheet.
	SheetIndex int
	// MaxRows limits data rows; 0 means unlimited. Exceeding it fails the load.
	MaxRows int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{SheetIndex: 1, MaxRows: 1000000}
}

// LoadError reports a workbook that could not be turned into a table.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("load %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("load: %v", e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNotSpreadsheet is returned for uploads that are not .xlsx workbooks.
var ErrNotSpreadsheet = errors.New("only .xlsx spreadsheets are supported")

// LoadFile reads a workbook from disk.
func LoadFile(p string, opt Options) (*Table, error) {
	name := filepath.Base(p)
	if !IsSpreadsheetName(name) {
		return nil, &LoadError{Name: name, Err: ErrNotSpreadsheet}
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, &LoadError{Name: name, Err: fmt.Errorf("read xlsx: %w", err)}
	}
	return LoadXLSX(bytes.NewReader(b), int64(len(b)), name, opt)
}

// IsSpreadsheetName reports whether a file name carries the accepted extension.
func IsSpreadsheetName(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".xlsx")
}

// LoadXLSX parses a workbook and returns the selected sheet as a Table.
// The first non-blank row is the header.
func LoadXLSX(r io.ReaderAt, size int64, name string, opt Options) (*Table, error) {
	t, err := loadXLSX(r, size, name, opt)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	return t, nil
}

func loadXLSX(r io.ReaderAt, size int64, name string, opt Options) (*Table, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	workbookXML, err := readZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if workbookXML == nil {
		return nil, errors.New("not a workbook: xl/workbook.xml missing")
	}
	relsXML, err := readZipFile(zr, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, err
	}
	wb := parseWorkbook(workbookXML)
	rels := parseRelationships(relsXML)

	sheet, target, err := resolveSheet(wb, rels, opt)
	if err != nil {
		return nil, err
	}
	sheetXML, err := readZipFile(zr, target)
	if err != nil {
		return nil, err
	}
	if sheetXML == nil {
		return nil, fmt.Errorf("sheet %q: %s missing from archive", sheet, target)
	}
	sharedXML, err := readZipFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	stylesXML, err := readZipFile(zr, "xl/styles.xml")
	if err != nil {
		return nil, err
	}

	epoch := excelEpoch1900
	if wb.date1904 {
		epoch = excelEpoch1904
	}
	rr := newSheetRowReader(sheetXML, parseSharedStrings(sharedXML), parseDateStyles(stylesXML), epoch)

	var header []Value
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		if !blankRow(row) {
			header = row
			break
		}
	}
	if rr.err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, rr.err)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q has no header row", sheet)
	}

	var rows [][]Value
	ncol := len(header)
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		if blankRow(row) {
			continue
		}
		if opt.MaxRows > 0 && len(rows) >= opt.MaxRows {
			return nil, fmt.Errorf("sheet %q exceeds %d rows", sheet, opt.MaxRows)
		}
		if len(row) > ncol {
			ncol = len(row)
		}
		rows = append(rows, row)
	}
	if rr.err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, rr.err)
	}

	names := headerNames(header, ncol)
	cols := make([]*Column, ncol)
	for j := 0; j < ncol; j++ {
		vals := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				vals[i] = row[j]
			}
		}
		cols[j] = NewColumn(names[j], vals)
	}
	t, err := New(name, cols...)
	if err != nil {
		return nil, err
	}
	t.Sheet = sheet
	return t, nil
}

func resolveSheet(wb workbook, rels map[string]string, opt Options) (string, string, error) {
	if opt.SheetName != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, opt.SheetName) {
				if rel, ok := rels[s.RID]; ok {
					return s.Name, normalizeRelPath(rel), nil
				}
				break
			}
		}
		available := make([]string, len(wb.sheets))
		for i, s := range wb.sheets {
			available[i] = s.Name
		}
		return "", "", fmt.Errorf("sheet '%s' not found; available sheets: %s", opt.SheetName, strings.Join(available, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	// Workbook order is the tab order the user sees.
	if idx <= len(wb.sheets) {
		s := wb.sheets[idx-1]
		if rel, ok := rels[s.RID]; ok {
			return s.Name, normalizeRelPath(rel), nil
		}
	}
	if len(wb.sheets) == 0 {
		return fmt.Sprintf("Sheet%d", idx), path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
	}
	return "", "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(wb.sheets))
}

func headerNames(header []Value, ncol int) []string {
	names := make([]string, ncol)
	seen := map[string]int{}
	for j := 0; j < ncol; j++ {
		var n string
		if j < len(header) {
			n = strings.TrimSpace(header[j].String())
		}
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", j)
		}
		base := n
		for seen[n] > 0 {
			n = fmt.Sprintf("%s.%d", base, seen[base])
			seen[base]++
		}
		seen[n]++
		names[j] = n
	}
	return names
}

func blankRow(row []Value) bool {
	for _, v := range row {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// naTokens are text cells read as missing values.
var naTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true, "n/a": true,
	"nan": true, "null": true,
}

func textCell(s string) Value {
	if naTokens[s] {
		return Value{}
	}
	return TextValue(s)
}

type workbook struct {
	sheets   []wbSheet
	date1904 bool
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

// parseWorkbook extracts sheet entries with names and relationship ids.
func parseWorkbook(data []byte) workbook {
	var wb workbook
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return wb
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "workbookPr":
			for _, a := range se.Attr {
				if a.Name.Local == "date1904" {
					wb.date1904 = a.Value == "1" || strings.EqualFold(a.Value, "true")
				}
			}
		case "sheet":
			var s wbSheet
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					s.Name = a.Value
				case "sheetId":
					s.SheetID = atoiSafe(a.Value)
				case "id":
					s.RID = a.Value // in r: namespace
				}
			}
			wb.sheets = append(wb.sheets, s)
		}
	}
}

func parseRelationships(data []byte) map[string]string {
	// returns map[r:id]Target
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" && target != "" {
				out[id] = target
			}
		}
	}
}

// readZipFile returns nil, nil when the entry does not exist.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			b, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", name, err)
			}
			return b, nil
		}
	}
	return nil, nil
}

// parseSharedStrings concatenates the text runs of every <si>, skipping phonetic runs.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	var inT, inPh bool
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			case "rPh":
				inPh = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "rPh":
				inPh = false
			case "si":
				out = append(out, buf.String())
				buf.Reset()
			}
		case xml.CharData:
			if inT && !inPh {
				buf.Write(se)
			}
		}
	}
}

// parseDateStyles returns, per cellXfs index, whether the style formats a date or time.
func parseDateStyles(data []byte) []bool {
	if len(data) == 0 {
		return nil
	}
	custom := map[int]string{}
	var out []bool
	var inCellXfs bool
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "numFmt":
				var id int
				var code string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "numFmtId":
						id = atoiSafe(a.Value)
					case "formatCode":
						code = a.Value
					}
				}
				custom[id] = code
			case "cellXfs":
				inCellXfs = true
			case "xf":
				if !inCellXfs {
					continue
				}
				id := 0
				for _, a := range se.Attr {
					if a.Name.Local == "numFmtId" {
						id = atoiSafe(a.Value)
					}
				}
				out = append(out, isDateFormat(id, custom[id]))
			}
		case xml.EndElement:
			if se.Name.Local == "cellXfs" {
				inCellXfs = false
			}
		}
	}
	return out
}

func isDateFormat(id int, code string) bool {
	switch {
	case id >= 14 && id <= 22, id >= 45 && id <= 47, id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	case code == "":
		return false
	}
	// Strip quoted literals, escapes and color/condition sections before looking for date tokens.
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '\\':
			i++
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteByte(c)
		}
	}
	s := strings.ToLower(b.String())
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ContainsAny(s, "ymdhs") && !strings.Contains(s, "general")
}

var (
	excelEpoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	excelEpoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// excelTime converts a serial date. Fractions are rounded to the millisecond.
func excelTime(serial float64, epoch time.Time) time.Time {
	days := math.Floor(serial)
	ms := math.Round((serial - days) * 86400000)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

// sheet row reader
type sheetRowReader struct {
	dec        *xml.Decoder
	shared     []string
	dateStyles []bool
	epoch      time.Time
	inRow      bool
	curRow     []Value
	err        error
}

func newSheetRowReader(data []byte, shared []string, dateStyles []bool, epoch time.Time) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared, dateStyles: dateStyles, epoch: epoch}
}

// Next returns the next <row>. On malformed XML it stops and records err.
func (r *sheetRowReader) Next() ([]Value, bool) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = err
			}
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				r.inRow = true
				r.curRow = nil
			}
			if r.inRow && se.Name.Local == "c" {
				// cell: attributes r (A1), t (type), s (style)
				var rAttr, tAttr string
				style := -1
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						rAttr = a.Value
					case "t":
						tAttr = a.Value
					case "s":
						style = atoiSafe(a.Value)
					}
				}
				colIdx := len(r.curRow)
				if rAttr != "" {
					colIdx = colIndexFromRef(rAttr)
				}
				val, err := r.readCellValue(tAttr, style)
				if err != nil {
					r.err = err
					return nil, false
				}
				if colIdx < 0 {
					continue
				}
				if len(r.curRow) <= colIdx {
					tmp := make([]Value, colIdx+1)
					copy(tmp, r.curRow)
					r.curRow = tmp
				}
				r.curRow[colIdx] = val
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				r.inRow = false
				return r.curRow, true
			}
		}
	}
}

func (r *sheetRowReader) readCellValue(tAttr string, style int) (Value, error) {
	var raw strings.Builder
	// read until end of c; capture <v> or the <t> runs of <is>
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("truncated cell: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				for {
					tk, er := r.dec.Token()
					if er != nil {
						return Value{}, fmt.Errorf("truncated cell: %w", er)
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						raw.Write(ch)
					}
				}
			}
		case xml.EndElement:
			if se.Name.Local == "c" {
				return r.convert(tAttr, style, raw.String()), nil
			}
		}
	}
}

func (r *sheetRowReader) convert(tAttr string, style int, raw string) Value {
	switch tAttr {
	case "s": // shared string
		if raw == "" {
			return Value{}
		}
		idx := atoiSafe(raw)
		if idx >= 0 && idx < len(r.shared) {
			return textCell(r.shared[idx])
		}
		return Value{}
	case "inlineStr", "str":
		return textCell(raw)
	case "b":
		return BoolValue(strings.TrimSpace(raw) == "1")
	case "e":
		return Value{}
	case "d":
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return TimeValue(t.UTC())
		}
		for _, l := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04:05.999", "2006-01-02"} {
			if t, err := time.Parse(l, raw); err == nil {
				return TimeValue(t)
			}
		}
		return textCell(raw)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return textCell(raw)
	}
	if style >= 0 && style < len(r.dateStyles) && r.dateStyles[style] {
		return TimeValue(excelTime(f, r.epoch))
	}
	return NumberValue(f)
}

// helpers for refs like "C12" -> 2 (0-based index)
func colIndexFromRef(ref string) int {
	i := 0
	for i < len(ref) {
		c := ref[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			i++
			continue
		}
		break
	}
	s := strings.ToUpper(ref[:i])
	idx := 0
	for j := 0; j < len(s); j++ {
		idx = idx*26 + int(s[j]-'A'+1)
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
