package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set by Execute from main's ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return versionRun()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func versionRun() error {
	fmt.Fprintf(ui.Out, "bugless %s (commit %s, built %s)\n", buildVersion, buildCommit, buildDate)
	return nil
}
