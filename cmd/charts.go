package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/KaramelBytes/sheetviz/internal/analysis"
	"github.com/spf13/cobra"
)

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List the available chart kinds and what they need",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tNAME\tNEEDS")
		for _, k := range analysis.Kinds {
			fmt.Fprintf(w, "%s\t%s\t%s\n", k.Slug(), k.Label(), k.Needs())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chartsCmd)
}
