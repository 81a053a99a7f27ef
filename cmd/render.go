package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/KaramelBytes/sheetviz/internal/dashboard"
	"github.com/KaramelBytes/sheetviz/internal/render"
	"github.com/KaramelBytes/sheetviz/internal/utils"
	"github.com/spf13/cobra"
)

var (
	renKind      string
	renColumn    string
	renCategory  string
	renValue     string
	renValues    []string
	renN         int
	renThreshold float64
	renOutput    string
	renFormat    string
)

// errRejected marks a request the dataset cannot satisfy.
var errRejected = errors.New("chart rejected")

var renderCmd = &cobra.Command{
	Use:   "render <file.xlsx>",
	Short: "Render one chart from a workbook to SVG or PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt := renderOptions()
		if cmd.Flags().Changed("format") {
			f, err := render.ParseFormat(renFormat)
			if err != nil {
				return err
			}
			opt.Format = f
		} else if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(renOutput)), "."); ext == "png" || ext == "svg" {
			opt.Format = render.Format(ext)
		}

		ctrl := dashboard.NewController(dashboard.Config{Table: tableOptions(), Render: opt, Logger: logger})
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if _, err := ctrl.Upload(ctx, filepath.Base(path), f); err != nil {
			return err
		}

		sel := analysis.Selection{
			Kind:      renKind,
			Column:    renColumn,
			Category:  renCategory,
			Value:     renValue,
			Values:    renValues,
			N:         renN,
			Threshold: renThreshold,
		}
		out := ctrl.Evaluate(ctx, sel)
		switch out.Kind {
		case dashboard.OutcomeRejected:
			return fmt.Errorf("%w: %s", errRejected, out.Reason)
		case dashboard.OutcomeFailed:
			return out.Err
		case dashboard.OutcomePrompt:
			return fmt.Errorf("no dataset loaded")
		}

		if renOutput == "" || renOutput == "-" {
			_, err := cmd.OutOrStdout().Write(out.Figure)
			return err
		}
		if err := utils.SafeWriteFile(renOutput, out.Figure, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s (%s) to %s\n", out.Spec.Title, opt.Format, renOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renKind, "kind", "k", "", "chart kind (see 'sheetviz charts')")
	renderCmd.Flags().StringVar(&renColumn, "column", "", "column for distribution or outlier charts")
	renderCmd.Flags().StringVar(&renCategory, "category", "", "categorical column for top-n, box-plot and stacked-bar charts")
	renderCmd.Flags().StringVar(&renValue, "value", "", "numeric column for top-n, box-plot and time-series charts")
	renderCmd.Flags().StringSliceVar(&renValues, "values", nil, "numeric columns for stacked-bar charts (comma-separated or repeated)")
	renderCmd.Flags().IntVar(&renN, "n", analysis.DefaultTopN, "number of categories for top-n charts")
	renderCmd.Flags().Float64Var(&renThreshold, "threshold", analysis.DefaultThreshold, "z-score threshold for outlier charts")
	renderCmd.Flags().StringVarP(&renOutput, "output", "o", "", "output file (default stdout)")
	renderCmd.Flags().StringVar(&renFormat, "format", "", "image format: svg or png (default from config or output extension)")
	_ = renderCmd.MarkFlagRequired("kind")
}
