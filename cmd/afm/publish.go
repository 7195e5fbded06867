package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/afm/internal/domain/version"
)

var (
	publishName    string
	publishVersion string
)

var publishCmd = &cobra.Command{
	Use:   "publish <dir>",
	Short: "Publish a plugin directory to the registry",
	Long: `Copy a plugin directory into the registry and list it in the index.

The manifest declares the name and version. --name and --version must match
it when given. Republishing identical content is a no-op; different content
under a published version is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishName, "name", "", "expected plugin name")
	publishCmd.Flags().StringVar(&publishVersion, "version", "", "expected plugin version")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, m, err := session(cmd)
	if err != nil {
		return err
	}

	var v version.Version
	if publishVersion != "" {
		v, err = version.Parse(publishVersion)
		if err != nil {
			return err
		}
	}

	res, err := m.Publish(ctx, args[0], publishName, v)
	if err != nil {
		return err
	}
	renderPublish(cmd.OutOrStdout(), res)
	return nil
}
