package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/namespace"
	"github.com/fruitsalade/memfs/pkg/snapshot"
)

type memStore struct {
	mu  sync.Mutex
	doc *snapshot.Document
}

func (s *memStore) Save(_ context.Context, doc *snapshot.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	return nil
}

func (s *memStore) Load(context.Context) (*snapshot.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, snapshot.ErrNoSnapshot
	}
	return s.doc, nil
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"ls", []string{"ls"}},
		{`create textfile a.txt C\Docs`, []string{"create", "textfile", "a.txt", `C\Docs`}},
		{`  mv   C\a   C\b  `, []string{"mv", `C\a`, `C\b`}},
		{`write C\a.txt "hello world"`, []string{"write", `C\a.txt`, "hello world"}},
		{`write C\a.txt "say ""hi"""`, []string{"write", `C\a.txt`, `say "hi"`}},
		{`write C\a.txt ""`, []string{"write", `C\a.txt`, ""}},
	}

	for _, tt := range tests {
		got, err := splitArgs(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := splitArgs(`write C\a.txt "unterminated`)
	assert.Error(t, err)
}

func runScript(t *testing.T, sh *shell, script string) string {
	t.Helper()
	var out bytes.Buffer
	sh.out = &out
	require.NoError(t, sh.Run(context.Background(), strings.NewReader(script)))
	return out.String()
}

func TestShellCommands(t *testing.T) {
	ns := namespace.New()
	sh := newShell(localOps{ns: ns}, nil)

	out := runScript(t, sh, `
create drive C
create folder Docs C
create textfile notes.txt C\Docs
write C\Docs\notes.txt remember the milk
cat C\Docs\notes.txt
find notes.txt
`)
	assert.Contains(t, out, "created drive C\n")
	assert.Contains(t, out, `created textfile C\Docs\notes.txt`)
	assert.Contains(t, out, "remember the milk\n")
	assert.Contains(t, out, `C\Docs\notes.txt`+"\n")
	assert.NotContains(t, out, "error:")

	content, err := ns.ReadFile(`C\Docs\notes.txt`)
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", content)
}

func TestShellReportsErrorsAndContinues(t *testing.T) {
	ns := namespace.New()
	sh := newShell(localOps{ns: ns}, nil)

	out := runScript(t, sh, `
create drive C
create drive C
frobnicate
mv C
create folder Docs C
`)
	assert.Contains(t, out, "already exists")
	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, "usage: mv <source> <destination>")
	assert.Contains(t, out, `created folder C\Docs`)
	assert.Equal(t, 2, ns.Len())
}

func TestShellExitStopsReading(t *testing.T) {
	ns := namespace.New()
	sh := newShell(localOps{ns: ns}, nil)

	runScript(t, sh, "create drive C\nexit\ncreate drive D\n")
	assert.Equal(t, 1, ns.Len())
}

func TestShellListAndTree(t *testing.T) {
	ns := namespace.New()
	require.NoError(t, ns.Create(entity.KindDrive, "C", ""))
	require.NoError(t, ns.Create(entity.KindFolder, "Docs", "C"))
	require.NoError(t, ns.Create(entity.KindZipFile, "a.zip", "C"))
	require.NoError(t, ns.Create(entity.KindTextFile, "r.txt", `C\a.zip`))
	require.NoError(t, ns.WriteToFile(`C\a.zip\r.txt`, "12345"))
	sh := newShell(localOps{ns: ns}, nil)

	out := runScript(t, sh, "ls C\n")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.True(t, strings.HasPrefix(lines[1], "Docs"))
	assert.Contains(t, lines[2], "zipfile")

	out = runScript(t, sh, "ls\n")
	assert.Contains(t, out, "drive")

	out = runScript(t, sh, "ls C\\Docs\n")
	assert.Equal(t, "(empty)\n", out)

	out = runScript(t, sh, "tree\n")
	assert.Equal(t, "C [drive]\n  Docs [folder]\n  a.zip [zipfile]\n    r.txt (5 B)\n", out)

	out = runScript(t, sh, "tree C\\a.zip\\\n")
	assert.Equal(t, "a.zip [zipfile]\n  r.txt (5 B)\n", out)

	out = runScript(t, sh, "stat C\\a.zip\\r.txt\n")
	assert.Contains(t, out, `C\a.zip\r.txt`)
	assert.Contains(t, out, "5 B (5 bytes)")
}

func TestShellSaveLoad(t *testing.T) {
	ns := namespace.New()
	store := &memStore{}
	sh := newShell(localOps{ns: ns, store: store}, nil)

	out := runScript(t, sh, "create drive C\nsave\nrm C\nload\n")
	assert.Contains(t, out, "saved 1 entities")
	assert.Contains(t, out, "loaded 1 entities")
	assert.Equal(t, 1, ns.Len())

	noStore := newShell(localOps{ns: namespace.New()}, nil)
	out = runScript(t, noStore, "save\n")
	assert.Contains(t, out, "error: save: no snapshot store configured")
}

func TestShellHelpListsEveryCommand(t *testing.T) {
	sh := newShell(localOps{ns: namespace.New()}, nil)
	out := runScript(t, sh, "help\n")
	for name := range sh.commands() {
		assert.Contains(t, out, name)
	}
}
