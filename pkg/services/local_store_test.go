package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	got, err := SafeJoin(root, "outstatic/content/blogs/a.md")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "outstatic", "content", "blogs", "a.md"), got)

	for _, bad := range []string{"", "/", "../etc/passwd", "blogs/../../x"} {
		_, err := SafeJoin(root, bad)
		assert.Error(t, err, bad)
	}
}

func TestBlobSHA(t *testing.T) {
	// git hash-object of an empty file and of "hello\n"
	assert.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", BlobSHA(nil))
	assert.Equal(t, "ce013625030ba8dba906f756967f9e9ca394464a", BlobSHA([]byte("hello\n")))
}

func TestLocalStore_CreateOnly(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.GetFile(ctx, "blogs/a.md")
	assert.ErrorIs(t, err, ErrFileNotFound)

	res := store.PutFile(ctx, FileWrite{Path: "blogs/a.md", Content: []byte("one")})
	require.Equal(t, WriteCreated, res.Status)
	assert.Equal(t, BlobSHA([]byte("one")), res.Ref.SHA)

	res = store.PutFile(ctx, FileWrite{Path: "blogs/a.md", Content: []byte("two")})
	assert.Equal(t, WriteConflict, res.Status)

	file, err := store.GetFile(ctx, "blogs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "one", string(file.Content))
}

func TestLocalStore_ConditionalUpdate(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.True(t, store.PutFile(ctx, FileWrite{Path: "metadata.json", Content: []byte("v1")}).OK())
	file, err := store.GetFile(ctx, "metadata.json")
	require.NoError(t, err)

	res := store.PutFile(ctx, FileWrite{Path: "metadata.json", Content: []byte("v2"), SHA: file.SHA})
	assert.Equal(t, WriteUpdated, res.Status)

	res = store.PutFile(ctx, FileWrite{Path: "metadata.json", Content: []byte("v3"), SHA: file.SHA})
	assert.Equal(t, WriteConflict, res.Status)

	res = store.PutFile(ctx, FileWrite{Path: "missing.json", Content: []byte("x"), SHA: file.SHA})
	assert.Equal(t, WriteConflict, res.Status)

	data, err := os.ReadFile(filepath.Join(root, "metadata.json"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestLocalStore_RejectsEscapingPath(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	res := store.PutFile(context.Background(), FileWrite{Path: "../outside.md", Content: []byte("x")})
	assert.Equal(t, WriteRejected, res.Status)
}
