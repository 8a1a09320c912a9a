package filesystem_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*filesystem.Store, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = root.Close() })
	return filesystem.NewFileStorage(root), dir
}

func TestStore_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "u1"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "u1", "test.txt"), []byte("test content"), 0o644))

		rc, err := store.Get(context.Background(), "u1/test.txt")
		require.NoError(t, err)
		defer func() { _ = rc.Close() }()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "test content", string(data))
	})

	t.Run("not found", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Get(context.Background(), "u1/missing.txt")
		assert.ErrorIs(t, err, cybervault.ErrNotFound)
	})

	t.Run("directory is not a blob", func(t *testing.T) {
		store, dir := newTestStore(t)
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "u1"), 0o755))

		_, err := store.Get(context.Background(), "u1")
		assert.ErrorIs(t, err, cybervault.ErrNotFound)
	})

	t.Run("context canceled", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rc, err := store.Get(ctx, "test.txt")
		assert.Nil(t, rc)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("escaping the root is rejected", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.Get(context.Background(), "../outside.txt")
		assert.Error(t, err)
	})
}

func TestStore_Put(t *testing.T) {
	t.Run("creates intermediate directories", func(t *testing.T) {
		store, dir := newTestStore(t)

		res, err := store.Put(context.Background(), "u1/docs/report.pdf", strings.NewReader("pdf bytes"))
		require.NoError(t, err)
		assert.Equal(t, "u1/docs/report.pdf", res.Key)
		assert.Equal(t, int64(9), res.BytesWritten)

		data, err := os.ReadFile(filepath.Join(dir, "u1", "docs", "report.pdf"))
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", string(data))
	})

	t.Run("overwrites", func(t *testing.T) {
		store, dir := newTestStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, "u1/a.txt", strings.NewReader("first"))
		require.NoError(t, err)
		_, err = store.Put(ctx, "u1/a.txt", strings.NewReader("second"))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "u1", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("large content", func(t *testing.T) {
		store, _ := newTestStore(t)
		payload := bytes.Repeat([]byte("x"), 10<<20)

		res, err := store.Put(context.Background(), "u1/big.bin", bytes.NewReader(payload))
		require.NoError(t, err)
		assert.Equal(t, int64(len(payload)), res.BytesWritten)
	})

	t.Run("failed read leaves no temp file", func(t *testing.T) {
		store, dir := newTestStore(t)

		_, err := store.Put(context.Background(), "u1/a.txt", io.MultiReader(strings.NewReader("part"), &failingReader{}))
		require.Error(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("context canceled", func(t *testing.T) {
		store, dir := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := store.Put(ctx, "u1/a.txt", strings.NewReader("data"))
		assert.ErrorIs(t, err, context.Canceled)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk unplugged")
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes blobs and empty directories", func(t *testing.T) {
		store, dir := newTestStore(t)
		ctx := context.Background()

		_, err := store.Put(ctx, "u1/a.txt", strings.NewReader("a"))
		require.NoError(t, err)
		_, err = store.Put(ctx, "u2/b.txt", strings.NewReader("b"))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, []string{"u1/a.txt"}))

		_, err = os.Stat(filepath.Join(dir, "u1"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dir, "u2", "b.txt"))
		assert.NoError(t, err)
	})

	t.Run("missing keys are ignored", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx := context.Background()

		assert.NoError(t, store.Delete(ctx, []string{"u1/never.txt"}))

		_, err := store.Put(ctx, "u1/a.txt", strings.NewReader("a"))
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, []string{"u1/a.txt"}))
		assert.NoError(t, store.Delete(ctx, []string{"u1/a.txt"}))
	})

	t.Run("context canceled", func(t *testing.T) {
		store, _ := newTestStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, store.Delete(ctx, []string{"u1/a.txt"}), context.Canceled)
	})
}

func TestStore_List(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "u1/a.txt", strings.NewReader("aa"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "u2/nested/b.txt", strings.NewReader("bbb"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tinflight"), []byte("partial"), 0o644))

	blobs, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []cybervault.BlobInfo{
		{Key: "u1/a.txt", Size: 2},
		{Key: "u2/nested/b.txt", Size: 3},
	}, blobs)
}

func TestStore_ImplementsBlobStore(t *testing.T) {
	var _ cybervault.BlobStore = (*filesystem.Store)(nil)
	var _ cybervault.BlobLister = (*filesystem.Store)(nil)
}
