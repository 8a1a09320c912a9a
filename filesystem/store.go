// Package filesystem stores vault blobs in a local directory.
// Writes are atomic through a temp file and rename, and every path is
// resolved through an os.Root so keys cannot escape the directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
)

const tmpPrefix = ".t"

// Store provides file system storage operations.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a new Store with the given root directory.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens a blob for reading. Returns cybervault.ErrNotFound if the blob does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cybervault.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, cybervault.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename,
// creating intermediate directories as needed. A cancelled context leaves
// no temp file behind.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (cybervault.PutResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cybervault.PutResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return cybervault.PutResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return cybervault.PutResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err = t.Sync(); err != nil {
		return cybervault.PutResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	if err = t.Close(); err != nil {
		return cybervault.PutResult{}, fmt.Errorf("could not close written file: %w", err)
	}

	if destDir := path.Dir(key); destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return cybervault.PutResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return cybervault.PutResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return cybervault.PutResult{Key: key, BytesWritten: written}, nil
}

// Delete removes the blobs stored under keys. Missing blobs are skipped and
// a parent directory left empty is removed.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	var errs []error

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.root.Remove(key)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("could not delete %s: %w", key, err))
			continue
		}

		if dir := path.Dir(key); dir != "." {
			// fails while the directory still has entries
			_ = s.root.Remove(dir)
		}
	}

	return errors.Join(errs...)
}

// List recursively walks the root directory and returns every stored blob.
// Temp files from in-flight writes are skipped.
func (s *Store) List(ctx context.Context) ([]cybervault.BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []cybervault.BlobInfo

	if err := s.walkDir(ctx, ".", &entries); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, dir string, entries *[]cybervault.BlobInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, entries); err != nil {
				return err
			}
			continue
		}

		if strings.HasPrefix(entry.Name(), tmpPrefix) && dir == "." {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		*entries = append(*entries, cybervault.BlobInfo{
			Key:  entryPath,
			Size: info.Size(),
		})
	}

	return nil
}

func tmpFileName() string {
	return tmpPrefix + uuid.New().String()
}
