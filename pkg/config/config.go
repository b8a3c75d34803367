// Package config loads optional rkdiff settings from a TOML file. Flags
// take precedence; the file only supplies defaults.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultPath is looked up in the working directory when no --config flag
// is given.
const DefaultPath = ".rkdiff.toml"

// Config holds the tunable report settings.
type Config struct {
	// Color is "auto", "always", or "never".
	Color string `toml:"color"`
	// CheckPaths enables the path existence/hash report.
	CheckPaths bool `toml:"check_paths"`
	// Inline enables character-level rendering of one-for-one replaced
	// values.
	Inline bool `toml:"inline"`
	// DepSuffixes overrides the field-name suffixes treated as dependency
	// lists.
	DepSuffixes []string `toml:"dep_suffixes"`
	// ArgsKey is the invocation-info key compared to warn about logs from
	// different commands.
	ArgsKey string `toml:"args_key"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Color:   "auto",
		ArgsKey: "Args",
	}
}

// Load reads path over the defaults. A missing file at the default path is
// not an error; a missing explicit path or a malformed file is.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Color {
	case "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("color must be auto, always, or never; got %q", c.Color)
	}
}
