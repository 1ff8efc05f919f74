package cmd

import (
	"fmt"

	"github.com/sarchlab/greenstep/examples"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the bundled demos.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, d := range examples.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", d.Name, d.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
