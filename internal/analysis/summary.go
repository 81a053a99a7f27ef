package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/sheetviz/internal/table"
)

// HeadRows is the number of rows shown in the dataset overview.
const HeadRows = 5

// Summary is a markdown-friendly overview of a loaded table.
type Summary struct {
	Name    string
	Sheet   string
	Rows    int
	Cols    []ColumnSummary
	Head    [][]string
	Headers []string
}

// ColumnSummary captures the declared type, role and basic statistics of a column.
type ColumnSummary struct {
	Name    string
	Type    table.ElemType
	Role    Role
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min, Max, Mean, Std float64
	// Categorical top values
	TopValues []CategoryCount
}

// Summarize profiles every column of t using the roles of s.
func Summarize(t *table.Table, s *Schema) *Summary {
	sum := &Summary{Name: t.Name, Sheet: t.Sheet, Rows: t.Rows(), Headers: t.Names(), Head: t.Head(HeadRows)}
	for _, c := range t.Columns {
		role, _ := s.Role(c.Name)
		cs := ColumnSummary{Name: c.Name, Type: c.Type, Role: role}
		counts := map[string]int{}
		for _, v := range c.Values {
			if v.IsEmpty() {
				cs.Missing++
				continue
			}
			cs.NonNull++
			counts[v.String()]++
		}
		cs.Unique = len(counts)
		switch role {
		case Numeric:
			xs, ok := c.Floats()
			var sample []float64
			for i, x := range xs {
				if ok[i] {
					sample = append(sample, x)
				}
			}
			if len(sample) > 0 {
				cs.Min, _ = stats.Min(sample)
				cs.Max, _ = stats.Max(sample)
				cs.Mean, _ = stats.Mean(sample)
				cs.Std, _ = stats.StandardDeviationPopulation(sample)
			}
		case Categorical:
			for k, n := range counts {
				cs.TopValues = append(cs.TopValues, CategoryCount{Value: k, Count: n})
			}
			sort.Slice(cs.TopValues, func(i, j int) bool {
				if cs.TopValues[i].Count == cs.TopValues[j].Count {
					return cs.TopValues[i].Value < cs.TopValues[j].Value
				}
				return cs.TopValues[i].Count > cs.TopValues[j].Count
			})
			if len(cs.TopValues) > 5 {
				cs.TopValues = cs.TopValues[:5]
			}
		}
		sum.Cols = append(sum.Cols, cs)
	}
	return sum
}

// Markdown renders the summary, the schema and the first rows.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("## Dataset Overview\n\n")
	if s.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", s.Name)
	}
	if s.Sheet != "" {
		fmt.Fprintf(&b, "Sheet: %s\n", s.Sheet)
	}
	fmt.Fprintf(&b, "Rows: %d\n", s.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(s.Cols))

	b.WriteString("### Columns\n\n")
	for _, c := range s.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s, %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Role, c.Type, c.NonNull, missPct)
		switch c.Role {
		case Numeric:
			if c.NonNull > 0 {
				fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			}
		case Categorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
				if c.Unique > len(c.TopValues) {
					fmt.Fprintf(&b, "; unique=%d", c.Unique)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(s.Head) > 0 {
		b.WriteString("\n### First rows\n\n| ")
		for i, h := range s.Headers {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(h)))
		}
		b.WriteString(" |\n|")
		for range s.Headers {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range s.Head {
			b.WriteString("| ")
			for i := range s.Headers {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
