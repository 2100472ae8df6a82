package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "improv.yaml"

// Config holds all improv configuration.
type Config struct {
	// Grammar source
	Grammar GrammarConfig `yaml:"grammar"`

	// Generator behaviour
	Generator GeneratorConfig `yaml:"generator"`

	// Custom template functions
	Funcs FuncsConfig `yaml:"funcs"`

	// Audit persistence
	AuditStore AuditStoreConfig `yaml:"audit_store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GrammarConfig locates the snippet repository.
type GrammarConfig struct {
	// Path is a grammar file or a directory of .json/.yaml/.toml files.
	Path string `yaml:"path"`
}

// FuncsConfig points at a Go script of template functions.
type FuncsConfig struct {
	Script string   `yaml:"script"`
	Names  []string `yaml:"names"` // empty = every exported func(string) string
}

// AuditStoreConfig configures the SQLite audit store.
type AuditStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Grammar: GrammarConfig{
			Path: "grammar",
		},

		Generator: DefaultGeneratorConfig(),

		AuditStore: AuditStoreConfig{
			Enabled: false,
			Path:    "data/audit.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if path := os.Getenv("IMPROV_GRAMMAR"); path != "" {
		c.Grammar.Path = path
	}

	if path := os.Getenv("IMPROV_DB"); path != "" {
		c.AuditStore.Path = path
		c.AuditStore.Enabled = true
	}

	if raw := os.Getenv("IMPROV_SEED"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid IMPROV_SEED %q: %w", raw, err)
		}
		c.Generator.Seed = &seed
	}

	if level := os.Getenv("IMPROV_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
		c.Logging.DebugMode = true
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Grammar.Path == "" {
		return fmt.Errorf("grammar path not configured (set grammar.path or IMPROV_GRAMMAR)")
	}
	if c.AuditStore.Enabled && c.AuditStore.Path == "" {
		return fmt.Errorf("audit store enabled without a path")
	}
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
