// Package cmd provides the command-line interface for greenstep.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// version is reported with faults sent to Sentry.
var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "greenstep",
	Short: "Greenstep runs actor worlds step by step.",
	Long: `Greenstep runs actor worlds step by step. It can run the bundled ` +
		`demos, serve a monitoring page while they run, and summarize ` +
		`recorded runs.`,
	SilenceUsage: true,
	Version:      version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Exit handlers registered with atexit run before the
// process exits.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
