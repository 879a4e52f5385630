package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/simonvc/bookledger/internal/ledger"
)

// DefaultPath is where the CLI looks for the config when --config is unset.
const DefaultPath = "bookledger.yaml"

// Config represents the top-level bookledger.yaml configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Numbering NumberingConfig `yaml:"numbering"`
	Posting   PostingConfig   `yaml:"posting"`
	// Accounts maps concept names to account codes.
	Accounts map[string]string `yaml:"accounts,omitempty"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

type NumberingConfig struct {
	Period string `yaml:"period"` // "year" or "month"
	Width  int    `yaml:"width"`
}

// PostingConfig controls how posting rules treat unmapped concepts.
type PostingConfig struct {
	Strict bool `yaml:"strict"`
}

// Load reads a bookledger.yaml file from disk. Missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default() *Config {
	n := ledger.DefaultNumbering()
	return &Config{
		Database: DatabaseConfig{Path: "bookledger.db"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Numbering: NumberingConfig{
			Period: string(n.Period),
			Width:  n.Width,
		},
	}
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path is required")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format must be json or console, got %q", c.Log.Format)
	}
	if err := c.NumberingRules().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for concept := range c.Accounts {
		if _, err := ledger.ParseConcept(concept); err != nil {
			return fmt.Errorf("config: accounts: %w", err)
		}
	}
	return nil
}

// NumberingRules converts the numbering section.
func (c *Config) NumberingRules() ledger.Numbering {
	return ledger.Numbering{
		Period: ledger.PeriodGranularity(c.Numbering.Period),
		Width:  c.Numbering.Width,
	}
}
