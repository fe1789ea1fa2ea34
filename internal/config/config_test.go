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
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, StoreNone, cfg.SnapshotStore)
	assert.Equal(t, "json", cfg.SnapshotFormat)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SNAPSHOT_STORE", "S3")
	t.Setenv("SNAPSHOT_FORMAT", "yaml")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("RETRY_ATTEMPTS", "7")
	t.Setenv("RETRY_INITIAL_WAIT", "250ms")
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")

	cfg, err := Load(writeEnvFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, StoreS3, cfg.SnapshotStore)
	assert.Equal(t, "yaml", cfg.SnapshotFormat)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, 7, cfg.RetryAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInitialWait)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout, "bad values fall back")
}

func TestLoadEnvFileDoesNotOverride(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":7000")
	path := writeEnvFile(t, "LISTEN_ADDR=:6000\nLOCAL_STORAGE_PATH=/srv/memfs\n")
	t.Cleanup(func() { os.Unsetenv("LOCAL_STORAGE_PATH") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "/srv/memfs", cfg.LocalStoragePath)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"postgres without url", func(c *Config) { c.SnapshotStore = StorePostgres }, true},
		{"postgres with url", func(c *Config) {
			c.SnapshotStore = StorePostgres
			c.DatabaseURL = "postgres://localhost/memfs"
		}, false},
		{"unknown store", func(c *Config) { c.SnapshotStore = "ftp" }, true},
		{"unknown format", func(c *Config) { c.SnapshotFormat = "xml" }, true},
		{"s3 without bucket", func(c *Config) {
			c.SnapshotStore = StoreS3
			c.S3Bucket = ""
		}, true},
		{"negative retries", func(c *Config) { c.RetryAttempts = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{SnapshotStore: StoreNone, SnapshotFormat: "json", S3Bucket: "memfs"}
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

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
