package entity

import (
	"fmt"

	"github.com/fruitsalade/memfs/pkg/models"
	"github.com/fruitsalade/memfs/pkg/tree"
)

// Info returns a detached copy of e's metadata without children.
func Info(e Entity) *models.EntityNode {
	return info(e, e.Path())
}

func info(e Entity, path string) *models.EntityNode {
	n := &models.EntityNode{
		ID:        e.ID(),
		Name:      e.Name(),
		Kind:      e.Kind().String(),
		Path:      path,
		Size:      e.Size(),
		CreatedAt: e.CreatedAt(),
		UpdatedAt: e.UpdatedAt(),
	}
	if f, ok := e.(*TextFile); ok {
		n.Content = f.Content()
	}
	return n
}

// Export returns a detached copy of e and its whole subtree.
func Export(e Entity) *models.EntityNode {
	return export(e, e.Path())
}

func export(e Entity, path string) *models.EntityNode {
	n := info(e, path)
	if c, ok := e.(Container); ok {
		for _, child := range c.Children() {
			n.Children = append(n.Children, export(child, tree.BuildChildPath(path, child.Name())))
		}
	}
	return n
}

// ImportDrive rebuilds a drive and its subtree from an exported node,
// preserving ids and timestamps. The node's paths are ignored.
func ImportDrive(n *models.EntityNode) (*Drive, error) {
	kind, err := ParseKind(n.Kind)
	if err != nil {
		return nil, err
	}
	if kind != KindDrive {
		return nil, fmt.Errorf("%w: root %q is a %s, not a drive", ErrInvalidType, n.Name, kind)
	}
	if err := ValidateName(n.Name); err != nil {
		return nil, err
	}
	d := NewDrive(n.Name)
	if err := importChildren(d, n); err != nil {
		return nil, err
	}
	restore(d, n)
	return d, nil
}

// Import rebuilds a non-drive entity and its subtree from an exported node
// and inserts it into parent. Containment and uniqueness are checked on every
// insertion; on error parent may hold a partial subtree.
func Import(n *models.EntityNode, parent Container) (Entity, error) {
	kind, err := ParseKind(n.Kind)
	if err != nil {
		return nil, err
	}
	e, err := New(kind, n.Name, parent)
	if err != nil {
		return nil, err
	}
	if err := parent.AddChild(e); err != nil {
		return nil, err
	}

	switch v := e.(type) {
	case *TextFile:
		if len(n.Children) > 0 {
			return nil, fmt.Errorf("%w: text file %q has children", ErrNotAContainer, n.Name)
		}
		v.SetContent(n.Content)
	case Container:
		if err := importChildren(v, n); err != nil {
			return nil, err
		}
	}
	restore(e, n)
	return e, nil
}

func importChildren(c Container, n *models.EntityNode) error {
	for _, child := range n.Children {
		if child == nil {
			continue
		}
		if _, err := Import(child, c); err != nil {
			return err
		}
	}
	return nil
}

func restore(e Entity, n *models.EntityNode) {
	b := e.base()
	if n.ID != "" {
		b.id = n.ID
	}
	if !n.CreatedAt.IsZero() {
		b.createdAt = n.CreatedAt
	}
	if !n.UpdatedAt.IsZero() {
		b.updatedAt = n.UpdatedAt
	}
}
