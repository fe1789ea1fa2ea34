package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/retry"
	"github.com/fruitsalade/memfs/pkg/snapshot"
	"github.com/fruitsalade/memfs/pkg/tree"
)

var _ namespace.Store = (*SnapshotStore)(nil)

// SnapshotStore persists namespace snapshots as a single object in a
// Backend. Transient backend failures are retried with backoff.
type SnapshotStore struct {
	backend Backend
	codec   snapshot.Codec
	key     string
	retry   retry.Config
	backup  bool
}

// StoreOption configures a SnapshotStore.
type StoreOption func(*SnapshotStore)

// WithRetry overrides the retry policy for backend calls.
func WithRetry(cfg retry.Config) StoreOption {
	return func(s *SnapshotStore) { s.retry = cfg }
}

// WithBackup keeps the previous snapshot at key+".bak" on every save.
func WithBackup() StoreOption {
	return func(s *SnapshotStore) { s.backup = true }
}

// NewSnapshotStore creates a store writing key through backend with codec.
func NewSnapshotStore(backend Backend, codec snapshot.Codec, key string, opts ...StoreOption) *SnapshotStore {
	s := &SnapshotStore{
		backend: backend,
		codec:   codec,
		key:     key,
		retry:   retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// String describes the store for logs, e.g. "local:memfs/snapshot.json".
func (s *SnapshotStore) String() string {
	return s.backend.Type() + ":" + s.key
}

// Close closes the underlying backend.
func (s *SnapshotStore) Close() error {
	return s.backend.Close()
}

// transient marks backend errors worth retrying. Missing objects and
// cancellation are final.
func transient(err error) error {
	if err == nil || errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return retry.Retryable(err)
}

func (s *SnapshotStore) retryConfig(op string) retry.Config {
	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		metrics.RecordStorageRetry(op)
		logging.Warn("snapshot store call failed, retrying",
			zap.String("store", s.String()),
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return cfg
}

// Save encodes doc and writes it to the store's key.
func (s *SnapshotStore) Save(ctx context.Context, doc *snapshot.Document) error {
	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, doc); err != nil {
		return err
	}
	data := buf.Bytes()

	if s.backup {
		if err := s.backupPrevious(ctx); err != nil {
			return err
		}
	}

	err := retry.Do(ctx, s.retryConfig("put"), func() error {
		return transient(s.backend.PutObject(ctx, s.key, bytes.NewReader(data), int64(len(data))))
	})
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", s, err)
	}

	metrics.RecordSnapshot("save", int64(len(data)), countEntities(doc))
	logging.Debug("snapshot saved",
		zap.String("store", s.String()),
		zap.String("format", s.codec.Name()),
		zap.Int("bytes", len(data)))
	return nil
}

func (s *SnapshotStore) backupPrevious(ctx context.Context) error {
	exists, err := s.backend.ObjectExists(ctx, s.key)
	if err != nil {
		return fmt.Errorf("check snapshot %s: %w", s, err)
	}
	if !exists {
		return nil
	}
	err = retry.Do(ctx, s.retryConfig("copy"), func() error {
		return transient(s.backend.CopyObject(ctx, s.key, s.key+".bak"))
	})
	if err != nil {
		return fmt.Errorf("back up snapshot %s: %w", s, err)
	}
	return nil
}

// Load reads and decodes the snapshot at the store's key. It returns
// snapshot.ErrNoSnapshot when nothing has been saved.
func (s *SnapshotStore) Load(ctx context.Context) (*snapshot.Document, error) {
	data, err := retry.DoWithResult(ctx, s.retryConfig("get"), func() ([]byte, error) {
		rc, _, err := s.backend.GetObject(ctx, s.key)
		if err != nil {
			return nil, transient(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		return b, transient(err)
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", snapshot.ErrNoSnapshot, s)
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s, err)
	}

	doc, err := s.codec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s, err)
	}
	metrics.RecordSnapshot("load", int64(len(data)), countEntities(doc))
	return doc, nil
}

func countEntities(doc *snapshot.Document) int {
	n := 0
	for _, d := range doc.Drives {
		n += tree.CountNodes(d)
	}
	return n
}
