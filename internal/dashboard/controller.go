// Package dashboard serves the single-page spreadsheet dashboard: it holds the
// uploaded table and runs every interaction through classify, validate, build
// and render.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/KaramelBytes/sheetviz/internal/render"
	"github.com/KaramelBytes/sheetviz/internal/table"
)

// PromptText is shown while no dataset is loaded.
const PromptText = "Please upload an Excel file to begin."

// State is the controller state.
type State int

const (
	NoData State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "no-data"
}

// OutcomeKind tags the result of one interaction.
type OutcomeKind int

const (
	OutcomePrompt OutcomeKind = iota
	OutcomeRejected
	OutcomeFailed
	OutcomeChart
)

// Outcome is exactly one of: a prompt (no data), a rejection reason, a failed
// computation or a rendered chart.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
	Spec   *analysis.ChartSpec
	Figure []byte
	Format render.Format
}

// Message is the text shown in place of a chart.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomePrompt:
		return PromptText
	case OutcomeRejected:
		return o.Reason
	case OutcomeFailed:
		if o.Err != nil {
			return o.Err.Error()
		}
	}
	return ""
}

// Overview is the content of the "Dataset Overview" panel.
type Overview struct {
	State    State
	Summary  *analysis.Summary
	LoadedAt time.Time
}

// Picker is one column selection widget.
type Picker struct {
	Signal  string
	Label   string
	Choices []string
	Multi   bool
}

// Slider is one numeric parameter widget.
type Slider struct {
	Signal  string
	Label   string
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// WidgetOptions lists the widgets a chart kind shows and their choices.
type WidgetOptions struct {
	Kind    analysis.Kind
	Pickers []Picker
	Sliders []Slider
	// Note replaces the widgets when the kind cannot be used at all.
	Note string
}

// Config configures a Controller.
type Config struct {
	Table  table.Options
	Render render.Options
	Logger *slog.Logger
}

// Controller owns the loaded table. All passes are serialized.
type Controller struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger

	tbl       *table.Table
	schema    *analysis.Schema
	schemaKey string
	loadedAt  time.Time
}

// NewController returns a controller in the NoData state.
func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Render.Format == "" {
		cfg.Render.Format = render.SVG
	}
	return &Controller{cfg: cfg, logger: cfg.Logger}
}

// State reports whether a dataset is loaded.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tbl == nil {
		return NoData
	}
	return Loaded
}

// Upload ingests one workbook. On success the previous table and every
// cached derivation are discarded. On failure the state is unchanged.
func (c *Controller) Upload(ctx context.Context, name string, r io.Reader) (*table.Table, error) {
	if !table.IsSpreadsheetName(name) {
		return nil, &table.LoadError{Name: name, Err: table.ErrNotSpreadsheet}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &table.LoadError{Name: name, Err: fmt.Errorf("read upload: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := table.LoadXLSX(bytes.NewReader(b), int64(len(b)), name, c.cfg.Table)
	if err != nil {
		c.logger.Warn("upload rejected", "file", name, "error", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tbl = t
	c.schema, c.schemaKey = nil, ""
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("dataset loaded", "file", name, "sheet", t.Sheet, "rows", t.Rows(), "columns", len(t.Columns))
	return t, nil
}

// Evaluate runs one interaction with the configured figure format.
func (c *Controller) Evaluate(ctx context.Context, sel analysis.Selection) Outcome {
	return c.EvaluateAs(ctx, sel, c.cfg.Render.Format)
}

// EvaluateAs runs one interaction and renders the figure in format f.
func (c *Controller) EvaluateAs(ctx context.Context, sel analysis.Selection, f render.Format) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tbl == nil {
		return Outcome{Kind: OutcomePrompt}
	}
	res := analysis.ValidateSelection(sel, c.classify())
	if !res.Accepted() {
		c.logger.Debug("selection rejected", "kind", sel.Kind, "reason", res.Reason)
		return Outcome{Kind: OutcomeRejected, Reason: res.Reason}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	// Derived columns live only for this pass.
	start := time.Now()
	spec, err := analysis.Build(c.tbl.Clone(), res)
	if err != nil {
		var mismatch *analysis.SchemaMismatchError
		if errors.As(err, &mismatch) {
			return Outcome{Kind: OutcomeRejected, Reason: mismatch.Reason}
		}
		c.logger.Warn("chart computation failed", "kind", res.Request.Kind(), "error", err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	opt := c.cfg.Render
	opt.Format = f
	var buf bytes.Buffer
	if err := render.Render(&buf, spec, opt); err != nil {
		c.logger.Error("chart render failed", "kind", spec.Kind, "error", err)
		return Outcome{Kind: OutcomeFailed, Err: err, Spec: spec}
	}
	c.logger.Debug("chart rendered", "kind", spec.Kind, "format", f, "bytes", buf.Len(), "elapsed", time.Since(start))
	return Outcome{Kind: OutcomeChart, Spec: spec, Figure: buf.Bytes(), Format: f}
}

// Overview returns the dataset overview panel content.
func (c *Controller) Overview() *Overview {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tbl == nil {
		return &Overview{State: NoData}
	}
	return &Overview{State: Loaded, Summary: analysis.Summarize(c.tbl, c.classify()), LoadedAt: c.loadedAt}
}

// Options returns the widgets shown for kind k against the loaded table.
func (c *Controller) Options(k analysis.Kind) WidgetOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	var all, nums []string
	if c.tbl != nil {
		s := c.classify()
		all, nums = s.All(), s.Names(analysis.Numeric)
	}
	return widgetsFor(k, all, nums)
}

func widgetsFor(k analysis.Kind, all, nums []string) WidgetOptions {
	wo := WidgetOptions{Kind: k}
	topN := Slider{Signal: "n", Label: "Select Top-N Categories", Min: analysis.MinTopN, Max: analysis.MaxTopN, Step: 1, Default: analysis.DefaultTopN}
	threshold := Slider{Signal: "threshold", Label: "Select Z-Score Threshold", Min: analysis.MinThreshold, Max: analysis.MaxThreshold, Step: 0.1, Default: analysis.DefaultThreshold}
	switch k {
	case analysis.KindDistribution:
		wo.Pickers = []Picker{{Signal: "column", Label: "Select Column for Distribution", Choices: all}}
	case analysis.KindTopN:
		wo.Pickers = []Picker{
			{Signal: "category", Label: "Select Category Column", Choices: all},
			{Signal: "value", Label: "Select Numeric Column", Choices: all},
		}
		wo.Sliders = []Slider{topN}
	case analysis.KindHeatmap:
	case analysis.KindOutlier:
		wo.Pickers = []Picker{{Signal: "column", Label: "Select Numeric Column for Outlier Detection", Choices: nums}}
		wo.Sliders = []Slider{threshold}
	case analysis.KindBoxPlot:
		wo.Pickers = []Picker{
			{Signal: "category", Label: "Select Categorical Column", Choices: all},
			{Signal: "value", Label: "Select Numeric Column", Choices: all},
		}
	case analysis.KindTimeSeries:
		if !contains(all, analysis.TimeColumn) {
			wo.Note = "The dataset does not have a time column."
			return wo
		}
		wo.Pickers = []Picker{{Signal: "value", Label: "Select Value Column", Choices: nums}}
	case analysis.KindStackedBar:
		wo.Pickers = []Picker{
			{Signal: "category", Label: "Select Categorical Column", Choices: all},
			{Signal: "values", Label: "Select Numeric Columns", Choices: nums, Multi: true},
		}
	}
	return wo
}

// classify returns the schema of the current table version. Callers hold mu.
func (c *Controller) classify() *analysis.Schema {
	key := fmt.Sprintf("%s:%d", c.tbl.ID, c.tbl.Version())
	if c.schema == nil || c.schemaKey != key {
		c.schema = analysis.Classify(c.tbl)
		c.schemaKey = key
	}
	return c.schema
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
