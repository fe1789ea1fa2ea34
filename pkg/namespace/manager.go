// Package namespace implements the namespace manager: the drive registry,
// path resolution and every operation over the entity forest.
//
// Paths are backslash-separated segment lists whose first segment names a
// drive, e.g. `C\Docs\Hello.txt`. A single lock guards the whole registry;
// every operation holds it for its full duration, so callers observe each
// operation as atomic.
package namespace

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/tree"
)

// Manager owns the drive registry and the forest beneath it.
type Manager struct {
	mu     sync.RWMutex
	drives map[string]*entity.Drive
	order  []string // drive names in registration order
	count  int      // entities across all drives
	seq    uint64   // last applied mutation

	log      *zap.Logger
	observer Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for operation tracing.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithObserver registers an observer notified after every operation.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// New creates an empty namespace.
func New(opts ...Option) *Manager {
	m := &Manager{
		drives: make(map[string]*entity.Drive),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// sequence numbers a mutation that completed without err. The caller holds
// the write lock.
func (m *Manager) sequence(err error) uint64 {
	if err != nil {
		return 0
	}
	m.seq++
	return m.seq
}

// finish logs and publishes a completed operation. It must be called after
// the lock is released.
func (m *Manager) finish(ev Event, start time.Time, err error) error {
	ev.Duration = time.Since(start)
	ev.Err = err

	switch {
	case err != nil:
		m.log.Debug("operation failed",
			zap.String("op", string(ev.Op)),
			zap.String("path", ev.Path),
			zap.Error(err))
	case ev.Op.Mutating():
		m.log.Debug("operation applied",
			zap.String("op", string(ev.Op)),
			zap.String("path", ev.Path),
			zap.String("target", ev.Target),
			zap.Int("entities", ev.Entities),
			zap.Duration("duration", ev.Duration))
	}

	if m.observer != nil {
		m.observer.Observe(ev)
	}
	return err
}

func (m *Manager) addDrive(d *entity.Drive) {
	m.drives[d.Name()] = d
	m.order = append(m.order, d.Name())
}

func (m *Manager) removeDrive(name string) {
	delete(m.drives, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Manager) renameDrive(oldName, newName string) {
	d := m.drives[oldName]
	delete(m.drives, oldName)
	m.drives[newName] = d
	for i, n := range m.order {
		if n == oldName {
			m.order[i] = newName
			return
		}
	}
}

func (m *Manager) driveList() []*entity.Drive {
	out := make([]*entity.Drive, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.drives[name])
	}
	return out
}

// resolve walks path from its drive down, failing on the first segment that
// cannot be followed.
func (m *Manager) resolve(path string) (entity.Entity, error) {
	parts := tree.SplitPath(path)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	d, ok := m.drives[parts[0]]
	if !ok {
		return nil, fmt.Errorf("%w: drive %q", ErrNotFound, parts[0])
	}

	var cur entity.Entity = d
	for _, seg := range parts[1:] {
		c, ok := cur.(entity.Container)
		if !ok {
			return nil, fmt.Errorf("%w: cannot traverse %s %s", ErrNotAContainer, cur.Kind(), cur.Path())
		}
		child, ok := c.Child(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, seg, c.Path())
		}
		cur = child
	}
	return cur, nil
}

func (m *Manager) resolveContainer(path string) (entity.Container, error) {
	e, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	c, ok := e.(entity.Container)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAContainer, e.Path(), e.Kind())
	}
	return c, nil
}

// subtreeSize counts e and all of its descendants.
func subtreeSize(e entity.Entity) int {
	n := 1
	if c, ok := e.(entity.Container); ok {
		for _, child := range c.Children() {
			n += subtreeSize(child)
		}
	}
	return n
}
