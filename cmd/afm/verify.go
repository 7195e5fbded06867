package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	errFrozenWithPlugins = errors.New("--frozen installs the lockfile as written and takes no plugins")
	errVerifyFailed      = errors.New("verification failed")
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the lockfile and installed plugins",
	Long: `Validate the lockfile against the registry and re-hash every installed
plugin against its recorded checksum. Exits non-zero when anything needs
attention.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove directories left by interrupted operations",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(cleanCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	report, err := m.Verify(ctx)
	if err != nil {
		return err
	}
	renderVerify(cmd.OutOrStdout(), report)
	if !report.OK() {
		return errVerifyFailed
	}
	return nil
}

func runClean(cmd *cobra.Command, _ []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	removed, err := m.Clean(ctx)
	for _, path := range removed {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", removeStyle.Render("removed"), path)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clean.")
	}
	return nil
}
