package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/afm/internal/adapters/logging"
	"github.com/felixgeelhaar/afm/internal/app"
	"github.com/felixgeelhaar/afm/internal/config"
	"github.com/felixgeelhaar/afm/internal/domain/integrity"
	"github.com/felixgeelhaar/afm/internal/domain/lock"
	"github.com/felixgeelhaar/afm/internal/domain/solver"
	"github.com/felixgeelhaar/afm/internal/domain/transfer"
	"github.com/felixgeelhaar/afm/internal/domain/version"
	"github.com/felixgeelhaar/afm/internal/ports"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "afm",
	Short: "A plugin manager with reproducible installs",
	Long: `afm installs plugins from a file registry into a local plugin directory.

Requests are resolved to exactly one version per plugin, fetched with
checksum verification and recorded in a lockfile:
  Request → Resolve → Fetch → Verify → Lock`,
	SilenceErrors: true, // Errors are rendered by Execute
	SilenceUsage:  true,
}

// Execute runs the root command and renders any error to stderr.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		printErrorTo(rootCmd.ErrOrStderr(), err)
	}
	return err
}

func init() {
	config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	registerFlagCompletions()
}

// session loads the configuration for one command run and builds the
// manager with a logger attached to the returned context.
func session(cmd *cobra.Command) (context.Context, *app.Manager, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: path, Flags: cmd.Flags()})
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ports.ContextWithLogger(ctx, logger)

	var opts []app.Option
	if verbose {
		opts = append(opts, app.WithPhaseHook(func(name string, v version.Version, phase transfer.Phase) {
			logger.Debug(ctx, "transfer", ports.F("plugin", name+"@"+v.String()), ports.F("phase", string(phase)))
		}))
	}
	m, err := app.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

// Exit codes. Only this package maps errors to process status.
const (
	exitFailure   = 1
	exitConflict  = 2
	exitStaleLock = 3
	exitIntegrity = 4
)

func exitCode(err error) int {
	switch {
	case solver.IsConflictError(err):
		return exitConflict
	case lock.IsStaleLockError(err):
		return exitStaleLock
	case transfer.IsIntegrityError(err), transfer.IsVersionCollisionError(err):
		return exitIntegrity
	default:
		return exitFailure
	}
}

// printErrorTo renders err, expanding conflict and stale lockfile reports.
func printErrorTo(w io.Writer, err error) {
	var conflict *solver.ConflictError
	if errors.As(err, &conflict) {
		renderConflict(w, conflict)
		return
	}
	var stale *lock.StaleLockError
	if errors.As(err, &stale) {
		renderStale(w, stale)
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Error:"), err)
	var ie *transfer.IntegrityError
	if errors.As(err, &ie) {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("The registry artifact does not match its checksum; nothing was installed for it."))
	}
}

// registerFlagCompletions sets up completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "ini"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("channel", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"stable\tReleases only",
			"beta\tReleases plus beta and rc pre-releases",
			"canary\tEvery version",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("algorithm", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return integrity.Algorithms(), cobra.ShellCompDirectiveNoFileComp
	})
}
