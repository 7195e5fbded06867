package main

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed plugins",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var remoteListCmd = &cobra.Command{
	Use:   "remote-list [plugin...]",
	Short: "List plugins available in the registry",
	RunE:  runRemoteList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(remoteListCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	rows, err := m.List(ctx)
	if err != nil {
		return err
	}
	return renderInstalled(cmd.OutOrStdout(), rows)
}

func runRemoteList(cmd *cobra.Command, args []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	rows, warnings, err := m.RemoteList(ctx, args...)
	if err != nil {
		return err
	}
	renderWarnings(cmd.ErrOrStderr(), warnings)
	return renderRemote(cmd.OutOrStdout(), rows)
}
