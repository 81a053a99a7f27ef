package cmd

import (
	"fmt"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/KaramelBytes/sheetviz/internal/table"
	"github.com/KaramelBytes/sheetviz/internal/utils"
	"github.com/spf13/cobra"
)

var inspectOutput string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.xlsx>",
	Short: "Print the dataset overview and the role of each column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := table.LoadFile(args[0], tableOptions())
		if err != nil {
			return err
		}
		md := analysis.Summarize(t, analysis.Classify(t)).Markdown()

		if inspectOutput != "" {
			if err := utils.SafeWriteFile(inspectOutput, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote overview to %s\n", inspectOutput)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "write the markdown overview to a file")
}
