package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build information set by -ldflags.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "afm %s\n", buildVersion)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", buildCommit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
