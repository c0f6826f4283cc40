package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autumndb/autumndb/tools/cli/internal/genconfig"
	"github.com/autumndb/autumndb/tools/cli/internal/generator"
)

func newGenerateCommand() *cobra.Command {
	var schemaDir, outDir, pkgName string

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Go structs from a directory of JSON Schema documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := genconfig.Load(cfgFile)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("schema-dir") {
				cfg.Generate.SchemaDir = schemaDir
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.Generate.OutDir = outDir
			}
			if cmd.Flags().Changed("package") {
				cfg.Generate.Package = pkgName
			}

			written, err := generator.Generate(cfg.Generate.SchemaDir, cfg.Generate.OutDir, cfg.Generate.Package)
			if err != nil {
				return err
			}

			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	generateCmd.Flags().StringVar(&schemaDir, "schema-dir", "", "directory of JSON Schema documents (overrides config)")
	generateCmd.Flags().StringVar(&outDir, "out-dir", "", "output directory for generated files (overrides config)")
	generateCmd.Flags().StringVar(&pkgName, "package", "", "Go package name for generated files (overrides config)")

	return generateCmd
}
