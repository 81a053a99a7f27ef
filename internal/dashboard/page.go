package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type kindOption struct {
	Slug     string
	Label    string
	Selected bool
}

// chartView is the content of #chart-panel.
type chartView struct {
	Figure  template.HTML
	Message string
	Level   string
}

type pageData struct {
	Title    string
	Loaded   bool
	Flashes  []string
	Errors   []string
	Kinds    []kindOption
	Signals  string
	Seq      uint64
	Widgets  WidgetOptions
	Overview *Overview
	Chart    chartView
}

// signals mirrors analysis.Selection on the client.
type signals struct {
	Kind      string   `json:"kind"`
	Column    string   `json:"column"`
	Category  string   `json:"category"`
	Value     string   `json:"value"`
	Values    []string `json:"values"`
	N         int      `json:"n"`
	Threshold float64  `json:"threshold"`
}

func (s signals) selection() analysis.Selection {
	return analysis.Selection(s)
}

// defaultSignals picks the first choice of every picker, the way a fresh
// widget set starts out. The multiselect starts empty.
func defaultSignals(k analysis.Kind, wo WidgetOptions) signals {
	sig := signals{Kind: k.Slug(), Values: []string{}, N: analysis.DefaultTopN, Threshold: analysis.DefaultThreshold}
	for _, p := range wo.Pickers {
		if p.Multi || len(p.Choices) == 0 {
			continue
		}
		switch p.Signal {
		case "column":
			sig.Column = p.Choices[0]
		case "category":
			sig.Category = p.Choices[0]
		case "value":
			sig.Value = p.Choices[0]
		}
	}
	return sig
}

func kindOptions(selected analysis.Kind) []kindOption {
	out := make([]kindOption, len(analysis.Kinds))
	for i, k := range analysis.Kinds {
		out[i] = kindOption{Slug: k.Slug(), Label: k.Label(), Selected: k == selected}
	}
	return out
}

func viewOf(o Outcome) chartView {
	switch o.Kind {
	case OutcomeChart:
		return chartView{Figure: template.HTML(o.Figure)}
	case OutcomePrompt:
		return chartView{Message: o.Message(), Level: "warning"}
	}
	return chartView{Message: o.Message(), Level: "error"}
}

func marshalSignals(s signals) string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// fragment executes one named template into a string.
func fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
