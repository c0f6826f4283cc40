// Package genconfig loads the CLI's own .autumndb.toml generator
// configuration, the way smf reads smf.toml.
package genconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level .autumndb.toml document.
type Config struct {
	Generate GenerateConfig `toml:"generate"`
}

// GenerateConfig controls the "generate" subcommand.
type GenerateConfig struct {
	// SchemaDir holds one JSON Schema document per registered contract
	// type, named "<slug>.json".
	SchemaDir string `toml:"schema_dir"`
	// OutDir is where generated "<slug>_gen.go" files are written.
	OutDir string `toml:"out_dir"`
	// Package is the Go package name the generated files declare.
	Package string `toml:"package"`
}

// Default returns the configuration used when no .autumndb.toml is found.
func Default() Config {
	return Config{Generate: GenerateConfig{
		SchemaDir: "./schemas",
		OutDir:    "./generated",
		Package:   "generated",
	}}
}

// Load reads and decodes path. A missing file is not an error — it
// returns Default() so "generate" still works with flag-only input.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("genconfig: decode %q: %w", path, err)
	}
	if cfg.Generate.SchemaDir == "" {
		cfg.Generate.SchemaDir = Default().Generate.SchemaDir
	}
	if cfg.Generate.OutDir == "" {
		cfg.Generate.OutDir = Default().Generate.OutDir
	}
	if cfg.Generate.Package == "" {
		cfg.Generate.Package = Default().Generate.Package
	}
	return cfg, nil
}
