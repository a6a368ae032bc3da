package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/bookworm/internal/models"
	"github.com/hyperjump/bookworm/internal/vector"
)

func TestSaveRestore_FileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap", "vectors.zst")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	src, _ := vector.NewMemoryIndex(4)
	require.NoError(t, src.Upsert(ctx, []models.IndexEntry{
		{ID: "1", Values: []float32{1, 0, 0, 0}, Metadata: map[string]any{"title": "Beloved"}},
		{ID: "2", Values: []float32{0, 1, 0, 0}, Metadata: map[string]any{"title": "Jazz"}},
	}))

	n, err := Save(ctx, store, src)
	require.NoError(t, err)
	assert.Positive(t, n)
	_, err = os.Stat(path)
	require.NoError(t, err)

	dst, _ := vector.NewMemoryIndex(4)
	ok, err := Restore(ctx, store, dst)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, dst.Size())

	results, err := dst.Query(ctx, []float32{0, 1, 0, 0}, vector.QueryOptions{TopK: 1, IncludeMetadata: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Jazz", results[0].Metadata["title"])
}

func TestRestore_MissingSnapshot(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "none.zst"))
	require.NoError(t, err)

	dst, _ := vector.NewMemoryIndex(2)
	ok, err := Restore(context.Background(), store, dst)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, dst.Size())
}

func TestRestore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd"), 0644))
	store, _ := NewFileStore(path)

	dst, _ := vector.NewMemoryIndex(2)
	_, err := Restore(context.Background(), store, dst)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(ctx, Config{Backend: BackendFile, Path: filepath.Join(t.TempDir(), "x.zst")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(ctx, Config{Backend: "gcs"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendFile})
	assert.Error(t, err)
}
