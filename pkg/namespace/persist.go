package namespace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/snapshot"
	"github.com/fruitsalade/memfs/pkg/tree"
)

// Store persists whole-namespace snapshots.
type Store interface {
	Save(ctx context.Context, doc *snapshot.Document) error
	Load(ctx context.Context) (*snapshot.Document, error)
}

var errNilStore = errors.New("no snapshot store configured")

// Snapshot exports the whole namespace.
func (m *Manager) Snapshot() *snapshot.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot.New(m.export())
}

// Restore replaces the namespace with the contents of doc. The document is
// rebuilt and validated in full first; if it is invalid the namespace is left
// unchanged.
func (m *Manager) Restore(doc *snapshot.Document) error {
	start := time.Now()
	n, seq, err := m.restore(doc)
	return m.finish(Event{Op: OpLoad, Size: int64(n), Seq: seq, Entities: m.Len()}, start, opError(OpLoad, "", err))
}

func (m *Manager) restore(doc *snapshot.Document) (int, uint64, error) {
	if doc == nil {
		return 0, 0, errors.New("nil snapshot document")
	}
	if err := doc.Validate(); err != nil {
		return 0, 0, err
	}

	drives := make(map[string]*entity.Drive, len(doc.Drives))
	order := make([]string, 0, len(doc.Drives))
	count := 0
	for _, n := range doc.Drives {
		if n == nil {
			continue
		}
		d, err := entity.ImportDrive(n)
		if err != nil {
			return 0, 0, fmt.Errorf("drive %q: %w", n.Name, err)
		}
		if _, dup := drives[d.Name()]; dup {
			return 0, 0, fmt.Errorf("%w: drive %q", ErrAlreadyExists, d.Name())
		}
		drives[d.Name()] = d
		order = append(order, d.Name())
		count += subtreeSize(d)
	}

	m.mu.Lock()
	m.drives = drives
	m.order = order
	m.count = count
	seq := m.sequence(nil)
	m.mu.Unlock()
	return count, seq, nil
}

// SaveToDisk exports the namespace and hands the snapshot to store. The lock
// is released before the store is called.
func (m *Manager) SaveToDisk(ctx context.Context, store Store) error {
	start := time.Now()
	if store == nil {
		return m.finish(Event{Op: OpSave}, start, opError(OpSave, "", errNilStore))
	}

	doc := m.Snapshot()
	var n int
	for _, d := range doc.Drives {
		n += tree.CountNodes(d)
	}

	err := store.Save(ctx, doc)
	return m.finish(Event{Op: OpSave, Size: int64(n), Entities: m.Len()}, start, opError(OpSave, "", err))
}

// LoadFromDisk reads a snapshot from store and replaces the namespace with
// it. Nothing changes if the store fails or the snapshot is invalid.
func (m *Manager) LoadFromDisk(ctx context.Context, store Store) error {
	start := time.Now()
	if store == nil {
		return m.finish(Event{Op: OpLoad}, start, opError(OpLoad, "", errNilStore))
	}

	doc, err := store.Load(ctx)
	if err != nil {
		return m.finish(Event{Op: OpLoad, Entities: m.Len()}, start, opError(OpLoad, "", fmt.Errorf("load snapshot: %w", err)))
	}
	n, seq, err := m.restore(doc)
	return m.finish(Event{Op: OpLoad, Size: int64(n), Seq: seq, Entities: m.Len()}, start, opError(OpLoad, "", err))
}
