package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// ===== Defaults =====

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "slicer.db", cfg.Database.DSN)
	assert.Equal(t, 4096, cfg.Cache.Entities)
	assert.Equal(t, "none", cfg.Content.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Slice.Timeout)
	assert.Equal(t, ":8080", cfg.Serve.Addr)
}

// ===== Sources =====

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, "slicer.yaml", `
database:
  driver: pgx
  dsn: postgres://localhost/facts
  max_open_conns: 8
  conn_max_idle_time: 30s
content:
  provider: repo
  repo: /srv/checkout
slice:
  timeout: 90s
  workers: 4
  check_syntax: true
log:
  level: debug
  format: json
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, "repo", cfg.Content.Provider)
	assert.Equal(t, "/srv/checkout", cfg.Content.Repo)
	assert.Equal(t, 90*time.Second, cfg.Slice.Timeout)
	assert.Equal(t, 4, cfg.Slice.Workers)
	assert.True(t, cfg.Slice.CheckSyntax)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "slicer.yaml", "database:\n  dsn: from-file.db\n")
	t.Setenv("SLICER_DATABASE_DSN", "from-env.db")
	t.Setenv("SLICER_CACHE_ENTITIES", "16")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.DSN)
	assert.Equal(t, 16, cfg.Cache.Entities)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("SLICER_DATABASE_DSN", "from-env.db")
	t.Chdir(t.TempDir())

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("db", "", "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--db", "from-flag.db"}))

	cfg, err := Load("", map[string]*pflag.Flag{
		"database.dsn": fs.Lookup("db"),
		"log.level":    fs.Lookup("log-level"),
	})
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SLICER_SERVE_ADDR=:9999\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SLICER_SERVE_ADDR") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Serve.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}

// ===== Validation =====

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"unknown provider", func(c *Config) { c.Content.Provider = "ftp" }, "content.provider"},
		{"http without url", func(c *Config) { c.Content.Provider = "http" }, "content.url"},
		{"repo without root", func(c *Config) { c.Content.Provider = "repo" }, "content.repo"},
		{"s3 without bucket", func(c *Config) {
			c.Content.Provider = "s3"
			c.Content.S3 = S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}
		}, "content.s3"},
		{"negative workers", func(c *Config) { c.Slice.Workers = -1 }, "slice.workers"},
		{"http ok", func(c *Config) {
			c.Content.Provider = "http"
			c.Content.URL = "http://files.local/file"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
