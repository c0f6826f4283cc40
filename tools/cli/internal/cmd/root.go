// Package cmd wires the autumndb-types command tree.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "autumndb-types",
		Short: "Generate Go structs from registered contract type schemas",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", ".autumndb.toml", "path to generator config file")
	root.AddCommand(newGenerateCommand())

	return root
}

// Execute runs the command tree, returning any error the selected
// subcommand produced.
func Execute() error {
	return newRootCommand().Execute()
}
