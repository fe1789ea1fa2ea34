// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Snapshot store kinds.
const (
	StoreNone     = "none"
	StoreLocal    = "local"
	StoreS3       = "s3"
	StorePostgres = "postgres"
)

// Config holds all memfs configuration.
type Config struct {
	// Server
	ListenAddr      string
	MetricsAddr     string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Snapshots ("none", "local", "s3" or "postgres")
	SnapshotStore    string
	SnapshotFormat   string
	SnapshotKey      string
	LoadOnStart      bool
	SaveOnShutdown   bool
	SnapshotBackup   bool
	LocalStoragePath string

	// S3 storage
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	// Database
	DatabaseURL string

	// Retries for snapshot store calls
	RetryAttempts    int
	RetryInitialWait time.Duration
}

// Load reads configuration from environment variables with defaults. Values
// from envFiles (or ./.env when none are given) fill variables that are not
// already set in the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		ListenAddr:       envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:      envOr("METRICS_ADDR", ":9090"),
		ShutdownTimeout:  envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		SnapshotStore:    strings.ToLower(envOr("SNAPSHOT_STORE", StoreNone)),
		SnapshotFormat:   strings.ToLower(envOr("SNAPSHOT_FORMAT", "json")),
		SnapshotKey:      envOr("SNAPSHOT_KEY", "memfs/snapshot.json"),
		LoadOnStart:      envBool("SNAPSHOT_LOAD_ON_START", false),
		SaveOnShutdown:   envBool("SNAPSHOT_SAVE_ON_SHUTDOWN", false),
		SnapshotBackup:   envBool("SNAPSHOT_BACKUP", false),
		LocalStoragePath: envOr("LOCAL_STORAGE_PATH", "./data"),
		S3Endpoint:       envOr("S3_ENDPOINT", "http://localhost:9000"),
		S3Bucket:         envOr("S3_BUCKET", "memfs"),
		S3AccessKey:      envOr("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      envOr("S3_SECRET_KEY", "minioadmin"),
		S3Region:         envOr("S3_REGION", "us-east-1"),
		S3UseSSL:         envBool("S3_USE_SSL", false),
		DatabaseURL:      envOr("DATABASE_URL", ""),
		RetryAttempts:    envInt("RETRY_ATTEMPTS", 3),
		RetryInitialWait: envDuration("RETRY_INITIAL_WAIT", 100*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values and the requirements of the chosen store.
func (c *Config) Validate() error {
	switch c.SnapshotStore {
	case StoreNone, StoreLocal, StoreS3:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres snapshot store")
		}
	default:
		return fmt.Errorf("unknown SNAPSHOT_STORE %q (want none, local, s3 or postgres)", c.SnapshotStore)
	}

	switch c.SnapshotFormat {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("unknown SNAPSHOT_FORMAT %q (want json or yaml)", c.SnapshotFormat)
	}

	if c.SnapshotStore == StoreS3 && c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required for the s3 snapshot store")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must not be negative")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
