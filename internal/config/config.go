// Package config loads the census tool configuration.
//
// Configuration is read from a single YAML file given by:
//   - the --config flag, or
//   - the CENSUS_CONFIG environment variable
//
// Without either, defaults are used. CENSUS_DB_PATH and CENSUS_ALT_DB_PATH
// override the catalog locations after the file is read.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dshills/census-mcp/internal/logging"
)

// Environment variables consulted by Load.
const (
	EnvConfig      = "CENSUS_CONFIG"
	EnvDatabase    = "CENSUS_DB_PATH"
	EnvAltDatabase = "CENSUS_ALT_DB_PATH"
)

// Config is the census tool configuration.
type Config struct {
	// Database is the main catalog file: cusped and closed censuses, link
	// exteriors and census knots.
	// Default: ~/.census/manifolds.sqlite
	Database string `yaml:"database"`

	// AltDatabase is the larger catalog holding the HT link exteriors. It is
	// optional; those censuses are unavailable without it.
	// Default: ~/.census/more_manifolds.sqlite
	AltDatabase string `yaml:"alt_database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// SchemaCacheSize bounds the number of relation schemas kept in memory.
	SchemaCacheSize int `yaml:"schema_cache_size"`
}

// Default returns the configuration used before any file is read.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".census")

	return &Config{
		Database:        filepath.Join(root, "manifolds.sqlite"),
		AltDatabase:     filepath.Join(root, "more_manifolds.sqlite"),
		LogLevel:        "info",
		LogFormat:       "text",
		SchemaCacheSize: 64,
	}
}

// Load reads the file at path, or the one named by CENSUS_CONFIG when path
// is empty, then applies environment overrides. With neither, it returns
// the defaults with overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	cfg.expandVariables()
	return cfg, nil
}

// loadFile merges a YAML file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironment() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvAltDatabase); v != "" {
		c.AltDatabase = v
	}
}

func (c *Config) expandVariables() {
	c.Database = expandVars(c.Database)
	c.AltDatabase = expandVars(c.AltDatabase)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("invalid log_format: %q", c.LogFormat))
	}
	if c.SchemaCacheSize < 0 {
		errs = append(errs, fmt.Errorf("schema_cache_size must not be negative, got %d", c.SchemaCacheSize))
	}

	return errors.Join(errs...)
}
