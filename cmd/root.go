package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/sheetviz/internal/config"
	"github.com/KaramelBytes/sheetviz/internal/logging"
	"github.com/KaramelBytes/sheetviz/internal/render"
	"github.com/KaramelBytes/sheetviz/internal/table"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile        string
	debug          bool
	flagSheetName  string
	flagSheetIndex int
	flagLogFormat  string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process logger, built from cfg after flags are applied
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "sheetviz",
	Short: "sheetviz: interactive charts for a spreadsheet",
	Long: `sheetviz loads one Excel sheet, classifies its columns and draws canned
visualizations (distribution, top-N, heatmap, outliers, box plot, time series,
stacked bars) in a browser dashboard or as one-shot SVG/PNG files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)

	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.sheetviz/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagSheetName, "sheet-name", "", "sheet to load by name (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagSheetIndex, "sheet-index", 0, "1-based sheet index to load (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("sheet-name") {
		cfg.SheetName = flagSheetName
	}
	if f.Changed("sheet-index") && flagSheetIndex > 0 {
		cfg.SheetIndex = flagSheetIndex
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	l, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using default logger\n", err)
		return
	}
	logger = l
	slog.SetDefault(l)
}

// tableOptions maps the loaded config onto workbook ingestion options.
func tableOptions() table.Options {
	opt := table.DefaultOptions()
	if cfg == nil {
		return opt
	}
	opt.SheetName = cfg.SheetName
	if cfg.SheetIndex > 0 {
		opt.SheetIndex = cfg.SheetIndex
	}
	if cfg.MaxRows > 0 {
		opt.MaxRows = cfg.MaxRows
	}
	return opt
}

// renderOptions maps the loaded config onto figure options.
func renderOptions() render.Options {
	opt := render.DefaultOptions()
	if cfg == nil {
		return opt
	}
	if cfg.ChartWidth > 0 {
		opt.Width = cfg.ChartWidth
	}
	if cfg.ChartHeight > 0 {
		opt.Height = cfg.ChartHeight
	}
	if f, err := render.ParseFormat(cfg.ImageFormat); err == nil {
		opt.Format = f
	}
	return opt
}
