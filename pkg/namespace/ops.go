package namespace

import (
	"fmt"
	"time"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/tree"
)

// Create adds a new entity named name under parentPath. A drive is
// registered at the root and parentPath is ignored.
func (m *Manager) Create(kind entity.Kind, name, parentPath string) error {
	start := time.Now()
	ev := Event{Op: OpCreate, Path: parentPath, Kind: kind}
	if kind == entity.KindDrive {
		ev.Path = name
	}

	m.mu.Lock()
	target, err := m.create(kind, name, parentPath)
	ev.Target = target
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpCreate, tree.BuildChildPath(parentPath, name), err))
}

func (m *Manager) create(kind entity.Kind, name, parentPath string) (string, error) {
	if err := entity.ValidateName(name); err != nil {
		return "", err
	}

	if kind == entity.KindDrive {
		if _, taken := m.drives[name]; taken {
			return "", fmt.Errorf("%w: drive %q", ErrAlreadyExists, name)
		}
		d := entity.NewDrive(name)
		m.addDrive(d)
		m.count++
		return d.Path(), nil
	}

	parent, err := m.resolveContainer(parentPath)
	if err != nil {
		return "", err
	}
	if parent.HasChild(name) {
		return "", fmt.Errorf("%w: %q in %s", ErrAlreadyExists, name, parent.Path())
	}
	e, err := entity.New(kind, name, parent)
	if err != nil {
		return "", err
	}
	if err := parent.AddChild(e); err != nil {
		return "", err
	}
	m.count++
	return e.Path(), nil
}

// Delete removes the entity at path together with its whole subtree.
func (m *Manager) Delete(path string) error {
	start := time.Now()
	ev := Event{Op: OpDelete, Path: path}

	m.mu.Lock()
	kind, err := m.delete(path)
	ev.Kind = kind
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpDelete, path, err))
}

func (m *Manager) delete(path string) (entity.Kind, error) {
	e, err := m.resolve(path)
	if err != nil {
		return 0, err
	}

	if parent := e.Parent(); parent != nil {
		parent.RemoveChild(e.Name())
	} else {
		m.removeDrive(e.Name())
	}
	m.count -= subtreeSize(e)
	return e.Kind(), nil
}

// Move relocates the entity at src into the container at dst, keeping its
// name, identity and subtree. Every precondition is checked before the entity
// is detached.
func (m *Manager) Move(src, dst string) error {
	start := time.Now()
	ev := Event{Op: OpMove, Path: src}

	m.mu.Lock()
	kind, target, err := m.move(src, dst)
	ev.Kind, ev.Target = kind, target
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpMove, src, err))
}

func (m *Manager) move(src, dst string) (entity.Kind, string, error) {
	source, dest, err := m.transferOperands(src, dst)
	if err != nil {
		return 0, "", err
	}
	if entity.IsAncestor(source, dest) {
		return 0, "", fmt.Errorf("%w: cannot move %s into itself", ErrInvalidContainment, source.Path())
	}
	if err := entity.Reparent(source, dest); err != nil {
		return 0, "", err
	}
	return source.Kind(), source.Path(), nil
}

// Copy places an independent deep clone of the entity at src into the
// container at dst. The clone and its descendants get fresh ids and
// timestamps; the source is untouched.
func (m *Manager) Copy(src, dst string) error {
	start := time.Now()
	ev := Event{Op: OpCopy, Path: src}

	m.mu.Lock()
	kind, target, err := m.copy(src, dst)
	ev.Kind, ev.Target = kind, target
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpCopy, src, err))
}

func (m *Manager) copy(src, dst string) (entity.Kind, string, error) {
	source, dest, err := m.transferOperands(src, dst)
	if err != nil {
		return 0, "", err
	}
	// The clone is complete before it is inserted, so copying a container
	// into its own subtree terminates.
	clone, err := deepCopy(source, dest)
	if err != nil {
		return 0, "", err
	}
	if err := dest.AddChild(clone); err != nil {
		return 0, "", err
	}
	m.count += subtreeSize(clone)
	return clone.Kind(), clone.Path(), nil
}

// transferOperands resolves and checks the operands shared by move and copy.
func (m *Manager) transferOperands(src, dst string) (entity.Entity, entity.Container, error) {
	source, err := m.resolve(src)
	if err != nil {
		return nil, nil, err
	}
	dest, err := m.resolveContainer(dst)
	if err != nil {
		return nil, nil, err
	}
	if source.Kind() == entity.KindDrive {
		return nil, nil, fmt.Errorf("%w: drive %s cannot be placed in a container", ErrInvalidType, source.Path())
	}
	if dest.HasChild(source.Name()) {
		return nil, nil, fmt.Errorf("%w: %q in %s", ErrAlreadyExists, source.Name(), dest.Path())
	}
	if !dest.Accepts(source.Kind()) {
		return nil, nil, fmt.Errorf("%w: %s %s cannot contain %s %q",
			ErrInvalidContainment, dest.Kind(), dest.Path(), source.Kind(), source.Name())
	}
	return source, dest, nil
}

// deepCopy clones e and its subtree. The clone is parented to parent but not
// inserted into it.
func deepCopy(e entity.Entity, parent entity.Container) (entity.Entity, error) {
	clone, err := entity.New(e.Kind(), e.Name(), parent)
	if err != nil {
		return nil, err
	}

	switch v := e.(type) {
	case *entity.TextFile:
		clone.(*entity.TextFile).SetContent(v.Content())
	case entity.Container:
		cc := clone.(entity.Container)
		for _, child := range v.Children() {
			cp, err := deepCopy(child, cc)
			if err != nil {
				return nil, err
			}
			if err := cc.AddChild(cp); err != nil {
				return nil, err
			}
		}
	}
	return clone, nil
}

// Rename changes the name of the entity at path. Drives are re-keyed in the
// registry; other entities keep their position among their siblings.
func (m *Manager) Rename(path, newName string) error {
	start := time.Now()
	ev := Event{Op: OpRename, Path: path}

	m.mu.Lock()
	kind, target, err := m.rename(path, newName)
	ev.Kind, ev.Target = kind, target
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpRename, path, err))
}

func (m *Manager) rename(path, newName string) (entity.Kind, string, error) {
	e, err := m.resolve(path)
	if err != nil {
		return 0, "", err
	}
	if err := entity.ValidateName(newName); err != nil {
		return 0, "", err
	}

	parent := e.Parent()
	if parent == nil {
		d := e.(*entity.Drive)
		if _, taken := m.drives[newName]; taken {
			return 0, "", fmt.Errorf("%w: drive %q", ErrAlreadyExists, newName)
		}
		oldName := d.Name()
		if err := d.Rename(newName); err != nil {
			return 0, "", err
		}
		m.renameDrive(oldName, newName)
		return d.Kind(), d.Path(), nil
	}

	if err := parent.RenameChild(e.Name(), newName); err != nil {
		return 0, "", err
	}
	return e.Kind(), e.Path(), nil
}

// WriteToFile replaces the content of the text file at path.
func (m *Manager) WriteToFile(path, content string) error {
	start := time.Now()
	ev := Event{Op: OpWrite, Path: path, Kind: entity.KindTextFile}

	m.mu.Lock()
	f, err := m.textFile(path)
	if err == nil {
		f.SetContent(content)
		ev.Size = f.Size()
	}
	ev.Seq = m.sequence(err)
	ev.Entities = m.count
	m.mu.Unlock()

	return m.finish(ev, start, opError(OpWrite, path, err))
}

func (m *Manager) textFile(path string) (*entity.TextFile, error) {
	e, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	f, ok := e.(*entity.TextFile)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a text file", ErrInvalidType, e.Path(), e.Kind())
	}
	return f, nil
}
