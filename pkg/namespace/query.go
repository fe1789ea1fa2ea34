package namespace

import (
	"time"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/tree"
)

// Resolve returns the entity at path. The returned entity is live: reading
// it while other goroutines mutate the namespace is the caller's concern.
func (m *Manager) Resolve(path string) (entity.Entity, error) {
	start := time.Now()
	ev := Event{Op: OpResolve, Path: path}

	m.mu.RLock()
	e, err := m.resolve(path)
	if err == nil {
		ev.Kind = e.Kind()
	}
	ev.Entities = m.count
	m.mu.RUnlock()

	return e, m.finish(ev, start, opError(OpResolve, path, err))
}

// List returns the direct children of the container at path in insertion
// order. The slice is not affected by later mutations.
func (m *Manager) List(path string) ([]entity.Entity, error) {
	start := time.Now()
	ev := Event{Op: OpList, Path: path}

	m.mu.RLock()
	var children []entity.Entity
	c, err := m.resolveContainer(path)
	if err == nil {
		children = c.Children()
		ev.Kind = c.Kind()
		ev.Size = int64(len(children))
	}
	ev.Entities = m.count
	m.mu.RUnlock()

	return children, m.finish(ev, start, opError(OpList, path, err))
}

// Stat returns a detached metadata copy of the entity at path.
func (m *Manager) Stat(path string) (*models.EntityNode, error) {
	start := time.Now()
	ev := Event{Op: OpStat, Path: path}

	m.mu.RLock()
	var info *models.EntityNode
	e, err := m.resolve(path)
	if err == nil {
		info = entity.Info(e)
		ev.Kind = e.Kind()
	}
	ev.Entities = m.count
	m.mu.RUnlock()

	return info, m.finish(ev, start, opError(OpStat, path, err))
}

// ReadFile returns the content of the text file at path.
func (m *Manager) ReadFile(path string) (string, error) {
	start := time.Now()
	ev := Event{Op: OpRead, Path: path, Kind: entity.KindTextFile}

	m.mu.RLock()
	var content string
	f, err := m.textFile(path)
	if err == nil {
		content = f.Content()
		ev.Size = f.Size()
	}
	ev.Entities = m.count
	m.mu.RUnlock()

	return content, m.finish(ev, start, opError(OpRead, path, err))
}

// Search returns the path of every entity named exactly name. Drives are
// walked in registration order and each subtree in pre-order. The result is
// empty, never nil, when nothing matches.
func (m *Manager) Search(name string) []string {
	start := time.Now()

	m.mu.RLock()
	matches := []string{}
	for _, d := range m.driveList() {
		matches = search(d, d.Name(), name, matches)
	}
	entities := m.count
	m.mu.RUnlock()

	m.finish(Event{Op: OpSearch, Path: name, Size: int64(len(matches)), Entities: entities}, start, nil)
	return matches
}

func search(e entity.Entity, path, name string, matches []string) []string {
	if e.Name() == name {
		matches = append(matches, path)
	}
	if c, ok := e.(entity.Container); ok {
		for _, child := range c.Children() {
			matches = search(child, tree.BuildChildPath(path, child.Name()), name, matches)
		}
	}
	return matches
}

// Drives returns the registered drives in registration order.
func (m *Manager) Drives() []*entity.Drive {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driveList()
}

// Len returns the number of entities in the namespace, drives included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Tree exports every drive with its subtree.
func (m *Manager) Tree() []*models.EntityNode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.export()
}

func (m *Manager) export() []*models.EntityNode {
	out := make([]*models.EntityNode, 0, len(m.order))
	for _, d := range m.driveList() {
		out = append(out, entity.Export(d))
	}
	return out
}

// ListInfo is List returning detached metadata copies, safe to use after
// the call returns.
func (m *Manager) ListInfo(path string) ([]*models.EntityNode, error) {
	start := time.Now()
	ev := Event{Op: OpList, Path: path}

	m.mu.RLock()
	var infos []*models.EntityNode
	c, err := m.resolveContainer(path)
	if err == nil {
		children := c.Children()
		infos = make([]*models.EntityNode, 0, len(children))
		for _, child := range children {
			infos = append(infos, entity.Info(child))
		}
		ev.Kind = c.Kind()
		ev.Size = int64(len(infos))
	}
	ev.Entities = m.count
	m.mu.RUnlock()

	return infos, m.finish(ev, start, opError(OpList, path, err))
}
