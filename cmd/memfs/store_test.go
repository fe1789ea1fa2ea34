package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/memfs/internal/config"
	"github.com/fruitsalade/memfs/internal/storage"
	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

func TestOpenStoreNone(t *testing.T) {
	store, closeFn, err := openStore(context.Background(), &config.Config{SnapshotStore: config.StoreNone})
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.NoError(t, closeFn())
}

func TestOpenStoreLocal(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		SnapshotStore:    config.StoreLocal,
		SnapshotFormat:   "yaml",
		SnapshotKey:      "snap/memfs.yaml",
		SnapshotBackup:   true,
		LocalStoragePath: t.TempDir(),
		RetryAttempts:    0,
	}

	store, closeFn, err := openStore(ctx, cfg)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &storage.SnapshotStore{}, store)
	assert.Equal(t, "local:snap/memfs.yaml", store.(*storage.SnapshotStore).String())

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)

	ns := namespace.New()
	require.NoError(t, ns.Create(entity.KindDrive, "C", ""))
	require.NoError(t, ns.SaveToDisk(ctx, store))

	restored := namespace.New()
	require.NoError(t, restored.LoadFromDisk(ctx, store))
	assert.Equal(t, 1, restored.Len())
}

func TestOpenStoreRejectsBadFormat(t *testing.T) {
	cfg := &config.Config{
		SnapshotStore:    config.StoreLocal,
		SnapshotFormat:   "toml",
		LocalStoragePath: t.TempDir(),
	}
	_, closeFn, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestOpenStoreUnknown(t *testing.T) {
	_, _, err := openStore(context.Background(), &config.Config{SnapshotStore: "floppy"})
	assert.Error(t, err)
}

func TestLoadOnStart(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{LoadOnStart: true}
	ns := namespace.New()

	// Empty store starts empty.
	assert.NoError(t, loadOnStart(ctx, cfg, ns, &memStore{}))
	assert.Equal(t, 0, ns.Len())

	src := namespace.New()
	require.NoError(t, src.Create(entity.KindDrive, "C", ""))
	store := &memStore{doc: src.Snapshot()}
	require.NoError(t, loadOnStart(ctx, cfg, ns, store))
	assert.Equal(t, 1, ns.Len())

	cfg.LoadOnStart = false
	assert.NoError(t, loadOnStart(ctx, cfg, namespace.New(), nil))
}
