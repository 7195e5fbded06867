package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/afm/internal/app"
	"github.com/felixgeelhaar/afm/internal/domain/version"
)

var (
	installFrozen bool
	updatePin     string
)

var installCmd = &cobra.Command{
	Use:   "install [plugin[@constraint]...]",
	Short: "Resolve, fetch and lock plugins",
	Long: `Add plugins to the request set, resolve it against the registry, install
the resulting plan and rewrite the lockfile.

Without arguments the recorded request set is re-resolved. With --frozen the
lockfile is installed exactly as written, without resolving.

Examples:
  afm install weather
  afm install "weather@^1.2.0" search@2.0.0
  afm install --frozen`,
	RunE: runInstall,
}

var updateCmd = &cobra.Command{
	Use:   "update [plugin]",
	Short: "Re-resolve to the newest allowed versions",
	Long: `Re-resolve the request set without regard to installed versions.

With a plugin name that plugin must be installed; --version pins it exactly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <plugin>...",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove plugins and their unused dependencies",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runUninstall,
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Rewrite the lockfile from the installed plugins",
	Long: `Re-resolve against the installed versions and rewrite the lockfile.
Nothing is fetched or removed.`,
	Args: cobra.NoArgs,
	RunE: runLock,
}

func init() {
	installCmd.Flags().BoolVar(&installFrozen, "frozen", false, "install the lockfile exactly, without resolving")
	updateCmd.Flags().StringVar(&updatePin, "version", "", "pin the plugin to this exact version")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(lockCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}

	var res *app.Result
	if installFrozen {
		if len(args) > 0 {
			return errFrozenWithPlugins
		}
		res, err = m.InstallFrozen(ctx)
	} else {
		reqs, parseErr := app.ParseRequests(args)
		if parseErr != nil {
			return parseErr
		}
		res, err = m.Install(ctx, reqs)
	}
	if err != nil {
		return err
	}
	renderResult(cmd.OutOrStdout(), res, m.Config().LockfilePath())
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	var pin version.Version
	if updatePin != "" {
		pin, err = version.Parse(updatePin)
		if err != nil {
			return err
		}
	}

	res, err := m.Update(ctx, name, pin)
	if err != nil {
		return err
	}
	renderResult(cmd.OutOrStdout(), res, m.Config().LockfilePath())
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	res, err := m.Uninstall(ctx, args...)
	if err != nil {
		return err
	}
	renderResult(cmd.OutOrStdout(), res, m.Config().LockfilePath())
	return nil
}

func runLock(cmd *cobra.Command, _ []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}
	res, err := m.Lock(ctx)
	if err != nil {
		return err
	}
	renderResult(cmd.OutOrStdout(), res, m.Config().LockfilePath())
	return nil
}
