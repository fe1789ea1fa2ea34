// Package entity defines the variants of the in-memory namespace: drives,
// folders, zip files and text files.
//
// Drives, folders and zip files implement Container and own their children.
// Every child keeps a back reference to its container, from which paths are
// derived on demand. Only this package rewires those links, which keeps each
// entity owned by exactly one container.
package entity

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fruitsalade/memfs/pkg/tree"
)

// Entity is any node of the namespace. The set of implementations is closed:
// *Drive, *Folder, *ZipFile and *TextFile.
type Entity interface {
	ID() string
	Name() string
	Kind() Kind
	// Parent returns the owning container, or nil for drives and detached entities.
	Parent() Container
	// Path joins the names from the drive down to this entity.
	Path() string
	Size() int64
	CreatedAt() time.Time
	UpdatedAt() time.Time

	base() *node
}

// Container is an entity that holds uniquely named children in insertion order.
type Container interface {
	Entity

	// Accepts reports whether a child of the given kind may be inserted.
	Accepts(kind Kind) bool
	AddChild(child Entity) error
	RemoveChild(name string) (Entity, bool)
	RenameChild(oldName, newName string) error
	Child(name string) (Entity, bool)
	HasChild(name string) bool
	Children() []Entity
	Len() int
}

type node struct {
	id        string
	name      string
	parent    Container
	size      int64
	createdAt time.Time
	updatedAt time.Time
}

func newNode(name string) node {
	now := time.Now()
	return node{
		id:        uuid.NewString(),
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
}

func (n *node) ID() string           { return n.id }
func (n *node) Name() string         { return n.name }
func (n *node) Parent() Container    { return n.parent }
func (n *node) Size() int64          { return n.size }
func (n *node) CreatedAt() time.Time { return n.createdAt }
func (n *node) UpdatedAt() time.Time { return n.updatedAt }
func (n *node) base() *node          { return n }

func (n *node) Path() string {
	segments := []string{n.name}
	for p := n.parent; p != nil; p = p.Parent() {
		segments = append(segments, p.Name())
	}
	slices.Reverse(segments)
	return tree.JoinPath(segments...)
}

func (n *node) touch() {
	n.updatedAt = time.Now()
}

// ValidateName checks that name can be used as a single path segment.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPath)
	}
	if strings.Contains(name, tree.Separator) {
		return fmt.Errorf("%w: name %q contains %q", ErrInvalidPath, name, tree.Separator)
	}
	return nil
}

// New creates an entity of the requested kind parented to parent. The entity
// is not inserted; callers follow up with parent.AddChild. Drives have no
// parent and are created with NewDrive.
func New(kind Kind, name string, parent Container) (Entity, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var e Entity
	switch kind {
	case KindFolder:
		e = NewFolder(name)
	case KindTextFile:
		e = NewTextFile(name)
	case KindZipFile:
		e = NewZipFile(name)
	case KindDrive:
		return nil, fmt.Errorf("%w: a drive cannot be created inside a container", ErrInvalidType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, kind)
	}
	e.base().parent = parent
	return e, nil
}

// Reparent detaches child from its current container and inserts it into dst.
// dst is checked before anything is detached, so a refused move leaves child
// where it was.
func Reparent(child Entity, dst Container) error {
	if err := checkInsert(dst, child); err != nil {
		return err
	}
	if src := child.Parent(); src != nil {
		src.RemoveChild(child.Name())
	}
	if err := dst.AddChild(child); err != nil {
		return err
	}
	child.base().touch()
	return nil
}

// IsAncestor reports whether a is c or one of c's ancestors.
func IsAncestor(a Entity, c Entity) bool {
	for e := c; e != nil; {
		if e == a {
			return true
		}
		p := e.Parent()
		if p == nil {
			return false
		}
		e = p
	}
	return false
}
