package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/memfs/pkg/models"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"drive", KindDrive},
		{"Folder", KindFolder},
		{"TEXTFILE", KindTextFile},
		{" zipfile ", KindZipFile},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want.String(), kindNames[tt.want])
	}

	_, err := ParseKind("symlink")
	require.ErrorIs(t, err, ErrInvalidType)
	assert.Equal(t, "kind(42)", Kind(42).String())
}

func TestNew(t *testing.T) {
	d := NewDrive("C")

	e, err := New(KindFolder, "Docs", d)
	require.NoError(t, err)
	assert.Equal(t, KindFolder, e.Kind())
	assert.Equal(t, d, e.Parent(), "New parents the entity")
	assert.False(t, d.HasChild("Docs"), "New does not insert")

	_, err = New(KindDrive, "D", d)
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = New(Kind(99), "x", d)
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = New(KindFolder, "", d)
	require.ErrorIs(t, err, ErrInvalidPath)

	_, err = New(KindFolder, `a\b`, d)
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestZipFileContainment(t *testing.T) {
	z := NewZipFile("Archive.zip")

	require.NoError(t, z.AddChild(NewTextFile("readme.txt")))
	require.ErrorIs(t, z.AddChild(NewFolder("sub")), ErrInvalidContainment)
	require.ErrorIs(t, z.AddChild(NewZipFile("inner.zip")), ErrInvalidContainment)
	assert.Equal(t, 1, z.Len())

	assert.True(t, z.Accepts(KindTextFile))
	assert.False(t, z.Accepts(KindFolder))
}

func TestAddChildRejectsDuplicatesAndDrives(t *testing.T) {
	f := NewFolder("f")
	first := NewTextFile("a")
	require.NoError(t, f.AddChild(first))

	require.ErrorIs(t, f.AddChild(NewFolder("a")), ErrAlreadyExists)
	got, ok := f.Child("a")
	require.True(t, ok)
	assert.Same(t, first, got, "existing child must not be overwritten")

	require.ErrorIs(t, f.AddChild(NewDrive("D")), ErrInvalidContainment)
}

func TestPathFollowsParents(t *testing.T) {
	d := NewDrive("C")
	docs := NewFolder("Docs")
	file := NewTextFile("Hello.txt")
	require.NoError(t, d.AddChild(docs))
	require.NoError(t, docs.AddChild(file))

	assert.Equal(t, "C", d.Path())
	assert.Equal(t, `C\Docs\Hello.txt`, file.Path())

	require.NoError(t, d.RenameChild("Docs", "Papers"))
	assert.Equal(t, `C\Papers\Hello.txt`, file.Path())

	require.NoError(t, d.Rename("E"))
	assert.Equal(t, `E\Papers\Hello.txt`, file.Path())
}

func TestChildrenOrderAndSnapshot(t *testing.T) {
	f := NewFolder("f")
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, f.AddChild(NewTextFile(name)))
	}

	snapshot := f.Children()
	names := func(es []Entity) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.Name())
		}
		return out
	}
	assert.Equal(t, []string{"c", "a", "b"}, names(snapshot))

	_, ok := f.RemoveChild("a")
	require.True(t, ok)
	require.NoError(t, f.RenameChild("c", "z"))
	assert.Equal(t, []string{"z", "b"}, names(f.Children()))
	assert.Len(t, snapshot, 3, "earlier snapshot is unaffected")
}

func TestRemoveChildDetaches(t *testing.T) {
	f := NewFolder("f")
	child := NewTextFile("x")
	require.NoError(t, f.AddChild(child))

	removed, ok := f.RemoveChild("x")
	require.True(t, ok)
	assert.Same(t, child, removed)
	assert.Nil(t, child.Parent())
	assert.False(t, f.HasChild("x"))

	_, ok = f.RemoveChild("x")
	assert.False(t, ok)
}

func TestRenameChildErrors(t *testing.T) {
	f := NewFolder("f")
	require.NoError(t, f.AddChild(NewTextFile("a")))
	require.NoError(t, f.AddChild(NewTextFile("b")))

	require.ErrorIs(t, f.RenameChild("missing", "c"), ErrNotFound)
	require.ErrorIs(t, f.RenameChild("a", "b"), ErrAlreadyExists)
	require.ErrorIs(t, f.RenameChild("a", ""), ErrInvalidPath)
}

func TestSetContent(t *testing.T) {
	f := NewTextFile("x")
	before := f.UpdatedAt()
	time.Sleep(time.Millisecond)

	f.SetContent("hello")
	assert.Equal(t, "hello", f.Content())
	assert.EqualValues(t, 5, f.Size())
	assert.True(t, f.UpdatedAt().After(before))
}

func TestReparent(t *testing.T) {
	d := NewDrive("C")
	src := NewFolder("src")
	zip := NewZipFile("a.zip")
	require.NoError(t, d.AddChild(src))
	require.NoError(t, d.AddChild(zip))
	sub := NewFolder("sub")
	require.NoError(t, src.AddChild(sub))

	require.ErrorIs(t, Reparent(sub, zip), ErrInvalidContainment)
	assert.Same(t, src, sub.Parent(), "refused move keeps the source attached")
	assert.True(t, src.HasChild("sub"))

	file := NewTextFile("t.txt")
	require.NoError(t, src.AddChild(file))
	require.NoError(t, Reparent(file, zip))
	assert.Equal(t, `C\a.zip\t.txt`, file.Path())
	assert.False(t, src.HasChild("t.txt"))
}

func TestIsAncestor(t *testing.T) {
	d := NewDrive("C")
	a := NewFolder("a")
	b := NewFolder("b")
	require.NoError(t, d.AddChild(a))
	require.NoError(t, a.AddChild(b))

	assert.True(t, IsAncestor(a, b))
	assert.True(t, IsAncestor(a, a))
	assert.True(t, IsAncestor(d, b))
	assert.False(t, IsAncestor(b, a))
}

func TestExportImportRoundTrip(t *testing.T) {
	d := NewDrive("C")
	docs := NewFolder("Docs")
	zip := NewZipFile("z.zip")
	file := NewTextFile("Hello.txt")
	require.NoError(t, d.AddChild(docs))
	require.NoError(t, d.AddChild(zip))
	require.NoError(t, docs.AddChild(file))
	file.SetContent("hi")
	require.NoError(t, zip.AddChild(NewTextFile("in.txt")))

	exported := Export(d)
	assert.Equal(t, `C\Docs\Hello.txt`, exported.Children[0].Children[0].Path)

	restored, err := ImportDrive(exported)
	require.NoError(t, err)
	assert.Equal(t, d.ID(), restored.ID())
	assert.True(t, d.UpdatedAt().Equal(restored.UpdatedAt()))

	again := Export(restored)
	assert.Equal(t, exported, again)
}

func TestImportValidates(t *testing.T) {
	bad := &models.EntityNode{Name: "C", Kind: "drive", Children: []*models.EntityNode{
		{Name: "z.zip", Kind: "zipfile", Children: []*models.EntityNode{
			{Name: "sub", Kind: "folder"},
		}},
	}}
	_, err := ImportDrive(bad)
	require.ErrorIs(t, err, ErrInvalidContainment)

	dup := &models.EntityNode{Name: "C", Kind: "drive", Children: []*models.EntityNode{
		{Name: "a", Kind: "folder"},
		{Name: "a", Kind: "textfile"},
	}}
	_, err = ImportDrive(dup)
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = ImportDrive(&models.EntityNode{Name: "C", Kind: "folder"})
	require.ErrorIs(t, err, ErrInvalidType)

	leaf := &models.EntityNode{Name: "C", Kind: "drive", Children: []*models.EntityNode{
		{Name: "t", Kind: "textfile", Children: []*models.EntityNode{{Name: "x", Kind: "textfile"}}},
	}}
	_, err = ImportDrive(leaf)
	require.ErrorIs(t, err, ErrNotAContainer)
}
