package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/memfs/pkg/namespace"
)

func TestRunDemo(t *testing.T) {
	ns := namespace.New()
	var out bytes.Buffer

	require.NoError(t, runDemo(context.Background(), ns, &memStore{}, &out))

	s := out.String()
	assert.Contains(t, s, "> create folder subfolder C\\Archive.zip\nerror: ")
	assert.Contains(t, s, "invalid containment")
	assert.Contains(t, s, "C\\Docs\\Hello.txt\nC\\desk\\Hello.txt\n")
	assert.Contains(t, s, "Hello from the in-memory file system!\n")

	content, err := ns.ReadFile(`C\Docs\Hi.txt`)
	require.NoError(t, err)
	assert.Equal(t, "Hello from the in-memory file system!", content)

	_, err = ns.Resolve(`C\Archive.zip\Hello.txt`)
	assert.NoError(t, err)
	_, err = ns.Resolve(`C\desk`)
	assert.ErrorIs(t, err, namespace.ErrNotFound)
	// C, Docs, Hi.txt, Archive.zip, readme.txt, Hello.txt
	assert.Equal(t, 6, ns.Len())
}
