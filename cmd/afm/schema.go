package main

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/afm/internal/domain/plugin"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the plugin manifest JSON Schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		data, err := plugin.GenerateSchema()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
