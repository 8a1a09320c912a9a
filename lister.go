package cybervault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSource lists, opens and deletes an owner's files. Gateway implements it.
type FileSource interface {
	List(ctx context.Context, ownerID string) ([]FileRecord, error)
	Open(ctx context.Context, rec FileRecord) (io.ReadCloser, error)
	Delete(ctx context.Context, rec FileRecord) error
}

// Lister holds the rendered list of the current identity's files.
type Lister struct {
	files    FileSource
	identity IdentitySource
	notifier Notifier

	reloadMu sync.Mutex // serializes reloads
	mu       sync.RWMutex
	records  []FileRecord
	loaded   bool
	loads    int
}

func NewLister(files FileSource, identity IdentitySource, notifier Notifier) *Lister {
	if notifier == nil {
		notifier = Discard
	}
	return &Lister{
		files:    files,
		identity: identity,
		notifier: notifier,
		records:  []FileRecord{},
	}
}

// Reload queries the current identity's records and replaces the list.
//
// A failed query emits one notification and keeps the previous list. Without
// an identity Reload does nothing.
func (l *Lister) Reload(ctx context.Context) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	owner, err := l.identity.Identity(ctx)
	if errors.Is(err, ErrUnauthenticated) {
		return nil
	}
	if err != nil {
		notifyError(l.notifier, MsgListFailed)
		return fmt.Errorf("reload: %w", err)
	}

	records, err := l.files.List(ctx, owner.ID)
	if err != nil {
		slog.Warn("list files failed", "owner", owner.ID, "error", err)
		notifyError(l.notifier, MsgListFailed)
		return fmt.Errorf("reload: %w", err)
	}

	l.mu.Lock()
	l.records = records
	l.loaded = true
	l.loads++
	l.mu.Unlock()
	return nil
}

// Records returns a copy of the rendered list.
func (l *Lister) Records() []FileRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]FileRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Empty reports whether a load completed and returned no records.
func (l *Lister) Empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded && len(l.records) == 0
}

// Loads returns how many reloads have completed successfully.
func (l *Lister) Loads() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loads
}

// Download saves rec's blob into dir under the record's name and returns the
// written path. Content goes to a temporary file first and is renamed into
// place, so a failed download leaves nothing behind.
func (l *Lister) Download(ctx context.Context, rec FileRecord, dir string) (string, error) {
	path, err := l.download(ctx, rec, dir)
	if err != nil {
		slog.Warn("download failed", "key", rec.StorageKey, "error", err)
		notifyError(l.notifier, MsgDownloadFailed)
		return "", err
	}
	return path, nil
}

func (l *Lister) download(ctx context.Context, rec FileRecord, dir string) (string, error) {
	name := filepath.Base(rec.Name)
	if !IsValidFileName(name) {
		return "", fmt.Errorf("download %q: %w: invalid file name", rec.Name, ErrInvalidInput)
	}

	content, err := l.files.Open(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rec.StorageKey, err)
	}
	defer func() { _ = content.Close() }()

	tmp, err := os.CreateTemp(dir, ".cybervault-download-*")
	if err != nil {
		return "", fmt.Errorf("download %s: create temp file: %w", rec.StorageKey, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, &ctxReader{ctx: ctx, r: content}); err != nil {
		return "", fmt.Errorf("download %s: write: %w", rec.StorageKey, err)
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("download %s: close: %w", rec.StorageKey, err)
	}

	dst := filepath.Join(dir, name)
	if err = os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("download %s: rename: %w", rec.StorageKey, err)
	}

	success = true
	return dst, nil
}

// Delete removes rec through the file source and reloads the list.
func (l *Lister) Delete(ctx context.Context, rec FileRecord) error {
	if err := l.files.Delete(ctx, rec); err != nil {
		slog.Warn("delete failed", "key", rec.StorageKey, "error", err)
		notifyError(l.notifier, MsgDeleteFailed)
		return err
	}

	notifySuccess(l.notifier, MsgDeleted)
	// Reload notifies on its own failure; the delete itself succeeded.
	_ = l.Reload(ctx)
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
