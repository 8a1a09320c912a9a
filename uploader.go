package cybervault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FileUploader stores one file for an owner. Gateway implements it.
type FileUploader interface {
	Upload(ctx context.Context, owner Identity, file LocalFile) (FileRecord, error)
}

type UploadResult struct {
	Name   string     `json:"name"`
	Record FileRecord `json:"record"`
	Err    error      `json:"-"`
}

// UploaderConfig holds configuration options for Uploader.
type UploaderConfig struct {
	// MaxSize is the per-file limit in bytes. Zero means DefaultMaxUploadSize,
	// a negative value disables the check.
	MaxSize int64
	// OnComplete runs after each successful file.
	OnComplete func(FileRecord)
}

// Uploader processes a batch of local files strictly one after another. A
// failing file is reported and skipped; it never stops the rest of the batch.
type Uploader struct {
	files      FileUploader
	identity   IdentitySource
	notifier   Notifier
	maxSize    int64
	onComplete func(FileRecord)
}

func NewUploader(files FileUploader, identity IdentitySource, notifier Notifier, cfg UploaderConfig) *Uploader {
	maxSize := cfg.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxUploadSize
	}
	if notifier == nil {
		notifier = Discard
	}
	return &Uploader{
		files:      files,
		identity:   identity,
		notifier:   notifier,
		maxSize:    maxSize,
		onComplete: cfg.OnComplete,
	}
}

// Upload stores every file in batch for the current identity and returns one
// result per file in input order.
//
// Without an identity nothing is attempted: a single notification is emitted
// and the returned error wraps ErrUnauthenticated.
func (u *Uploader) Upload(ctx context.Context, batch []LocalFile) ([]UploadResult, error) {
	owner, err := u.identity.Identity(ctx)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			notifyError(u.notifier, MsgAuthRequired)
		}
		return nil, fmt.Errorf("upload batch: %w", err)
	}

	results := make([]UploadResult, 0, len(batch))
	for _, file := range batch {
		rec, err := u.uploadOne(ctx, owner, file)
		if err != nil {
			slog.Warn("upload failed", "name", file.Name, "owner", owner.ID, "error", err)
			notifyError(u.notifier, uploadFailedMessage(file.Name))
			results = append(results, UploadResult{Name: file.Name, Err: err})
			continue
		}

		slog.Info("upload complete", "name", file.Name, "key", rec.StorageKey, "size", rec.Size)
		notifySuccess(u.notifier, uploadedMessage(file.Name))
		if u.onComplete != nil {
			u.onComplete(rec)
		}
		results = append(results, UploadResult{Name: file.Name, Record: rec})
	}

	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, owner Identity, file LocalFile) (FileRecord, error) {
	if u.maxSize > 0 && file.Size > u.maxSize {
		return FileRecord{}, fmt.Errorf("upload %q: %w: %s exceeds %s",
			file.Name, ErrFileTooLarge, FormatFileSize(file.Size), FormatFileSize(u.maxSize))
	}
	return u.files.Upload(ctx, owner, file)
}
