package main

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/config"
	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metadata/postgres"
	"github.com/fruitsalade/memfs/internal/storage"
	"github.com/fruitsalade/memfs/internal/storage/local"
	s3storage "github.com/fruitsalade/memfs/internal/storage/s3"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/retry"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

func noopClose() error { return nil }

// openStore builds the snapshot store selected by cfg. The store is nil for
// config.StoreNone. The returned close func is never nil.
func openStore(ctx context.Context, cfg *config.Config) (namespace.Store, func() error, error) {
	switch cfg.SnapshotStore {
	case config.StoreNone, "":
		return nil, noopClose, nil

	case config.StorePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noopClose, err
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, noopClose, multierr.Append(fmt.Errorf("migrate: %w", err), pg.Close())
		}
		logging.Info("snapshot store ready", zap.String("store", pg.String()))
		return pg, pg.Close, nil

	case config.StoreLocal, config.StoreS3:
		raw, err := backendConfig(cfg)
		if err != nil {
			return nil, noopClose, err
		}
		backend, err := storage.NewBackendFromConfig(ctx, cfg.SnapshotStore, raw)
		if err != nil {
			return nil, noopClose, err
		}
		st, err := newSnapshotStore(backend, cfg)
		if err != nil {
			return nil, noopClose, multierr.Append(err, backend.Close())
		}
		logging.Info("snapshot store ready", zap.String("store", st.String()))
		return st, st.Close, nil

	default:
		return nil, noopClose, fmt.Errorf("unknown snapshot store %q", cfg.SnapshotStore)
	}
}

func backendConfig(cfg *config.Config) (json.RawMessage, error) {
	if cfg.SnapshotStore == config.StoreS3 {
		return json.Marshal(s3storage.BackendConfig{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	return json.Marshal(local.Config{
		RootPath:   cfg.LocalStoragePath,
		CreateDirs: true,
	})
}

// newSnapshotStore wraps backend with the configured codec, key and retry
// policy.
func newSnapshotStore(backend storage.Backend, cfg *config.Config) (*storage.SnapshotStore, error) {
	codec, err := snapshot.CodecFor(cfg.SnapshotFormat)
	if err != nil {
		return nil, err
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RetryAttempts
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if cfg.RetryInitialWait > 0 {
		rc.InitialWait = cfg.RetryInitialWait
	}

	opts := []storage.StoreOption{storage.WithRetry(rc)}
	if cfg.SnapshotBackup {
		opts = append(opts, storage.WithBackup())
	}
	return storage.NewSnapshotStore(backend, codec, cfg.SnapshotKey, opts...), nil
}
