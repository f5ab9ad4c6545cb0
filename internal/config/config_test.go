package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "UTC", cfg.DefaultTimezone)
	assert.Equal(t, 10*time.Minute, cfg.InsightsCacheTTL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "chorequest.toml")
	content := `
[server]
port = "9090"

[database]
type = "sqlite-purego"
path = "/var/lib/chorequest/data.db"
max_open_conns = 4

[insights]
default_timezone = "Africa/Nairobi"
cache_ttl = "2m"

[digest]
timeout = "45s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("DEBUG", "true")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, "sqlite-purego", cfg.DatabaseType)
	assert.Equal(t, "/var/lib/chorequest/data.db", cfg.DatabasePath)
	assert.Equal(t, "Africa/Nairobi", cfg.DefaultTimezone)
	assert.Equal(t, 2*time.Minute, cfg.InsightsCacheTTL)
	assert.Equal(t, 45*time.Second, cfg.DigestTimeout)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.Zero(t, cfg.DBMaxIdleConns)
	assert.Equal(t, 90*time.Second, cfg.DBConnMaxLifetime)
	assert.True(t, cfg.Debug)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_ADDR=cache:6379\n"), 0o600))
	t.Setenv("REDIS_ADDR", "")
	os.Unsetenv("REDIS_ADDR")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.DatabaseType = "postgres" }, true},
		{"mysql with url", func(c *Config) { c.DatabaseType = "mysql"; c.DatabaseURL = "u:p@tcp(db)/x" }, false},
		{"unknown database", func(c *Config) { c.DatabaseType = "oracle" }, true},
		{"bad timezone", func(c *Config) { c.DefaultTimezone = "Mars/Base" }, true},
		{"zero digest timeout", func(c *Config) { c.DigestTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
