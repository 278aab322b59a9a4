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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.Equal(t, 5*time.Minute, cfg.SaveInterval)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "jsonl", cfg.Output.Format)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncfstore.yaml")
	content := `data_dir: /var/lib/ncfstore
compression: zstd
save_interval: 30s
log:
  level: debug
server:
  addr: 127.0.0.1:9000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ncfstore", cfg.DataDir)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 30*time.Second, cfg.SaveInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 90, cfg.RetentionDays, "unset keys keep defaults")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncfstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: :7000\n"), 0o644))
	t.Setenv("NCFSTORE_SERVER_ADDR", ":9999")
	t.Setenv("NCFSTORE_RETENTION_DAYS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.RetentionDays)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty data dir", func(c *Config) { c.DataDir = " " }, "data_dir"},
		{"long label", func(c *Config) { c.Compression = "snappy2" }, "compression label"},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }, "retention_days"},
		{"negative interval", func(c *Config) { c.SaveInterval = -time.Second }, "save_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
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

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Log.Development = true
	lc := cfg.Logger()
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "json", lc.Encoding)
	assert.True(t, lc.Development)
}
