// Package config loads the project-level dendrite.yaml and carries the
// editor-level options handed over at initialization.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dendrite-md/dendrite/internal/vfs"
)

// ConfigPath is the vault-relative location of the project config.
const ConfigPath = "dendrite.yaml"

// Config is the parsed dendrite.yaml.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Semantic  SemanticConfig  `yaml:"semantic"`
}

type WorkspaceConfig struct {
	Name           string   `yaml:"name"`
	Vaults         []Vault  `yaml:"vaults"`
	IgnorePatterns []string `yaml:"ignorePatterns"`
}

// Vault names one managed directory. The vault named "main" is the
// default; otherwise the first entry is.
type Vault struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type SemanticConfig struct {
	Model string `yaml:"model"`
}

// Default returns the configuration used when no dendrite.yaml exists.
func Default() *Config {
	return &Config{
		Semantic: SemanticConfig{Model: "Dendron"},
	}
}

// Load reads dendrite.yaml from the vault root. A missing file yields
// the defaults; a malformed one is an error.
func Load(fs vfs.FS) (*Config, error) {
	cfg := Default()
	data, err := fs.Read(ConfigPath)
	if err != nil {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigPath, err)
	}
	if cfg.Semantic.Model == "" {
		cfg.Semantic.Model = "Dendron"
	}
	return cfg, nil
}

// MainVault picks the served vault: the entry named "main", else the
// first entry, else the root itself.
func (c *Config) MainVault() Vault {
	for _, v := range c.Workspace.Vaults {
		if v.Name == "main" {
			return v
		}
	}
	if len(c.Workspace.Vaults) > 0 {
		return c.Workspace.Vaults[0]
	}
	return Vault{Name: "main", Path: "."}
}

// Options are the editor-level knobs consumed through LSP
// initializationOptions.
type Options struct {
	LogLevel             string        `yaml:"logLevel" json:"logLevel"`
	CacheEnabled         bool          `yaml:"cacheEnabled" json:"cacheEnabled"`
	CacheSaveInterval    time.Duration `yaml:"cacheSaveInterval" json:"cacheSaveInterval"`
	MutationHistoryLimit int           `yaml:"mutationHistoryLimit" json:"mutationHistoryLimit"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		LogLevel:             "info",
		CacheEnabled:         true,
		CacheSaveInterval:    5 * time.Second,
		MutationHistoryLimit: 5,
	}
}
