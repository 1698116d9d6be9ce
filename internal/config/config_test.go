package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvAltDatabase, "")
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "census.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "manifolds.sqlite", filepath.Base(cfg.Database))
	assert.Equal(t, "more_manifolds.sqlite", filepath.Base(cfg.AltDatabase))
	assert.Equal(t, ".census", filepath.Base(filepath.Dir(cfg.Database)))
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("no file gives defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("explicit path", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, `
database: /data/manifolds.sqlite
log_level: debug
log_format: json
schema_cache_size: 8
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/data/manifolds.sqlite", cfg.Database)
		assert.Equal(t, Default().AltDatabase, cfg.AltDatabase)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 8, cfg.SchemaCacheSize)
	})

	t.Run("path from environment", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "alt_database: /data/more.sqlite\n")
		t.Setenv(EnvConfig, path)

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "/data/more.sqlite", cfg.AltDatabase)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		clearEnv(t)
		path := writeConfig(t, "database: /data/manifolds.sqlite\n")
		t.Setenv(EnvDatabase, "/override/main.sqlite")
		t.Setenv(EnvAltDatabase, "/override/alt.sqlite")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/override/main.sqlite", cfg.Database)
		assert.Equal(t, "/override/alt.sqlite", cfg.AltDatabase)
	})

	t.Run("variables are expanded", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CENSUS_TEST_ROOT", "/srv/census")
		path := writeConfig(t, `
database: ${CENSUS_TEST_ROOT}/manifolds.sqlite
alt_database: ${CENSUS_TEST_UNSET:-/fallback}/more.sqlite
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/census/manifolds.sqlite", cfg.Database)
		assert.Equal(t, "/fallback/more.sqlite", cfg.AltDatabase)
	})

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeConfig(t, "database: [unterminated\n"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"no database", func(c *Config) { c.Database = "" }, "database is required"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "invalid log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "invalid log_format"},
		{"negative cache", func(c *Config) { c.SchemaCacheSize = -1 }, "schema_cache_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
