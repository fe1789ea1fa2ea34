package entity

import "fmt"

var (
	_ Container = (*Drive)(nil)
	_ Container = (*Folder)(nil)
	_ Container = (*ZipFile)(nil)
)

// children implements the Container capability shared by drives, folders
// and zip files. owner is the embedding entity; variant policy is asked
// through owner.Accepts.
type children struct {
	owner  Container
	byName map[string]Entity
	order  []string
}

func (c *children) init(owner Container) {
	c.owner = owner
	c.byName = make(map[string]Entity)
}

func checkInsert(c Container, child Entity) error {
	if child.Kind() == KindDrive {
		return fmt.Errorf("%w: drive %q cannot be nested", ErrInvalidContainment, child.Name())
	}
	if !c.Accepts(child.Kind()) {
		return fmt.Errorf("%w: %s %q cannot contain %s %q",
			ErrInvalidContainment, c.Kind(), c.Name(), child.Kind(), child.Name())
	}
	if c.HasChild(child.Name()) {
		return fmt.Errorf("%w: %q in %s", ErrAlreadyExists, child.Name(), c.Path())
	}
	return nil
}

// AddChild inserts child and makes the container its parent. Names are never
// overwritten: a duplicate fails with ErrAlreadyExists.
func (c *children) AddChild(child Entity) error {
	if err := checkInsert(c.owner, child); err != nil {
		return err
	}
	c.byName[child.Name()] = child
	c.order = append(c.order, child.Name())
	child.base().parent = c.owner
	c.owner.base().touch()
	return nil
}

// RemoveChild detaches the named child. The detached entity has no parent.
func (c *children) RemoveChild(name string) (Entity, bool) {
	child, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	delete(c.byName, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	child.base().parent = nil
	c.owner.base().touch()
	return child, true
}

// RenameChild renames a child in place, keeping its position.
func (c *children) RenameChild(oldName, newName string) error {
	if err := ValidateName(newName); err != nil {
		return err
	}
	child, ok := c.byName[oldName]
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrNotFound, oldName, c.owner.Path())
	}
	if _, exists := c.byName[newName]; exists {
		return fmt.Errorf("%w: %q in %s", ErrAlreadyExists, newName, c.owner.Path())
	}
	delete(c.byName, oldName)
	c.byName[newName] = child
	for i, n := range c.order {
		if n == oldName {
			c.order[i] = newName
			break
		}
	}
	b := child.base()
	b.name = newName
	b.touch()
	return nil
}

func (c *children) Child(name string) (Entity, bool) {
	child, ok := c.byName[name]
	return child, ok
}

func (c *children) HasChild(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Children returns the direct children in insertion order. The slice is a
// copy; later mutations of the container do not affect it.
func (c *children) Children() []Entity {
	out := make([]Entity, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

func (c *children) Len() int { return len(c.order) }

// Drive is a root container registered by name.
type Drive struct {
	node
	children
}

// NewDrive creates an unregistered drive.
func NewDrive(name string) *Drive {
	d := &Drive{node: newNode(name)}
	d.children.init(d)
	return d
}

func (d *Drive) Kind() Kind { return KindDrive }

func (d *Drive) Accepts(kind Kind) bool {
	return kind == KindFolder || kind == KindTextFile || kind == KindZipFile
}

// Rename changes the drive's name. Keeping the drive registry keyed by the
// new name is the caller's job.
func (d *Drive) Rename(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	d.name = name
	d.touch()
	return nil
}

// Folder is a general-purpose container.
type Folder struct {
	node
	children
}

// NewFolder creates a detached folder.
func NewFolder(name string) *Folder {
	f := &Folder{node: newNode(name)}
	f.children.init(f)
	return f
}

func (f *Folder) Kind() Kind { return KindFolder }

func (f *Folder) Accepts(kind Kind) bool {
	return kind == KindFolder || kind == KindTextFile || kind == KindZipFile
}

// ZipFile is an archive container. It holds text files only; no compression
// takes place.
type ZipFile struct {
	node
	children
}

// NewZipFile creates a detached zip file.
func NewZipFile(name string) *ZipFile {
	z := &ZipFile{node: newNode(name)}
	z.children.init(z)
	return z
}

func (z *ZipFile) Kind() Kind { return KindZipFile }

func (z *ZipFile) Accepts(kind Kind) bool {
	return kind == KindTextFile
}
