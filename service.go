package cybervault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MetaDataRepo defines the interface for managing file record persistence.
// Implementations must handle concurrent access safely.
//
// Every owner-scoped method only returns or mutates rows whose owner matches
// the ownerID argument; a row owned by someone else behaves as if it did not exist.
type MetaDataRepo interface {
	// Insert stores a record for a newly stored blob.
	//
	// A record that already exists for the same storage key is replaced: it keeps
	// its ID and takes the new size, type and a fresh CreatedAt, so the blob key
	// stays one-to-one with its record.
	//
	// Returns:
	//   - FileRecord: The stored record with ID and CreatedAt assigned
	//   - error: Any database or validation error
	Insert(ctx context.Context, f NewFile) (FileRecord, error)

	// ListByOwner returns every record owned by ownerID ordered by CreatedAt
	// descending, ties broken by ID descending. An owner without records gets
	// an empty, non-nil slice.
	ListByOwner(ctx context.Context, ownerID string) ([]FileRecord, error)

	// Get returns a single record.
	//
	// Returns:
	//   - error: ErrNotFound if id doesn't exist or belongs to another owner
	Get(ctx context.Context, ownerID string, id uuid.UUID) (FileRecord, error)

	// GetByKey returns the record stored under key.
	//
	// Returns:
	//   - error: ErrNotFound if no record uses key or it belongs to another owner
	GetByKey(ctx context.Context, ownerID, key string) (FileRecord, error)

	// DeleteByID removes a record.
	//
	// Returns:
	//   - error: ErrNotFound if id doesn't exist or belongs to another owner
	DeleteByID(ctx context.Context, ownerID string, id uuid.UUID) error

	// ListAll returns every record regardless of owner. It is meant for
	// operator tooling such as Reconcile, never for user-facing views.
	ListAll(ctx context.Context) ([]FileRecord, error)
}

// BlobStore defines the interface for physical blob storage.
// Implementations can use local filesystem, S3, a remote Stowry server, or any
// other storage backend.
type BlobStore interface {
	// Put stores content under key, overwriting whatever was there.
	//
	// Returns:
	//   - PutResult: The key actually used and the number of bytes written
	//   - error: Any storage or I/O error
	//
	// Implementations should write atomically when possible and leave nothing
	// behind when the context is cancelled mid-write.
	Put(ctx context.Context, key string, content io.Reader) (PutResult, error)

	// Get opens the blob stored under key. The caller closes the reader.
	//
	// Returns:
	//   - error: ErrNotFound if no blob exists under key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blobs stored under keys. Keys without a blob are
	// ignored, so a repeated delete succeeds.
	Delete(ctx context.Context, keys []string) error
}

// BlobLister is implemented by blob stores that can enumerate their keys.
type BlobLister interface {
	List(ctx context.Context) ([]BlobInfo, error)
}

// Gateway keeps the blob store and the metadata store in step.
type Gateway struct {
	repo           MetaDataRepo
	blobs          BlobStore
	consistency    ConsistencyMode
	cleanupTimeout time.Duration
}

// GatewayConfig holds configuration options for Gateway.
type GatewayConfig struct {
	Consistency    ConsistencyMode // default: compensate
	CleanupTimeout time.Duration   // Timeout for compensating deletes (default: 30s)
}

func NewGateway(repo MetaDataRepo, blobs BlobStore, cfg GatewayConfig) (*Gateway, error) {
	mode := cfg.Consistency
	if mode == "" {
		mode = ConsistencyCompensate
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("new gateway: invalid consistency mode: %s", cfg.Consistency)
	}
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &Gateway{
		repo:           repo,
		blobs:          blobs,
		consistency:    mode,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// Upload stores file under {ownerID}/{name} and records it for owner.
//
// The blob is written first and the record inserted second. When the insert
// fails and a record already exists for the key, the blob it points at was
// replaced in place: the blob is kept and the error wraps ErrStaleRecord.
// Otherwise the outcome depends on the consistency mode:
//   - ConsistencyCompensate: the blob is deleted with a background context
//     bounded by the cleanup timeout. If that delete fails as well, or the
//     existing record cannot be looked up, the error wraps ErrOrphanedBlob.
//   - ConsistencyBestEffort: the blob is left in place and the error wraps
//     ErrOrphanedBlob.
//
// Error types returned:
//   - ErrUnauthenticated: owner has no ID
//   - ErrInvalidInput: the file name cannot be used as a key segment
//   - context.Canceled or context.DeadlineExceeded: Context was cancelled
//   - Wrapped storage errors and metadata errors
func (g *Gateway) Upload(ctx context.Context, owner Identity, file LocalFile) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("upload: %w", err)
	}

	if owner.ID == "" {
		return FileRecord{}, fmt.Errorf("upload: %w", ErrUnauthenticated)
	}

	if !IsValidFileName(file.Name) {
		return FileRecord{}, fmt.Errorf("upload %q: %w: invalid file name", file.Name, ErrInvalidInput)
	}

	if file.Open == nil {
		return FileRecord{}, fmt.Errorf("upload %q: %w: no content", file.Name, ErrInvalidInput)
	}

	key := StorageKey(owner.ID, file.Name)
	if !IsValidPath(key) {
		return FileRecord{}, fmt.Errorf("upload %s: %w", key, ErrInvalidInput)
	}

	content, err := file.Open()
	if err != nil {
		return FileRecord{}, fmt.Errorf("upload %s: open: %w", key, err)
	}
	defer func() { _ = content.Close() }()

	put, err := g.blobs.Put(ctx, key, content)
	if err != nil {
		return FileRecord{}, fmt.Errorf("upload %s: store failed: %w", key, err)
	}
	if put.Key == "" {
		put.Key = key
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, insertErr := g.repo.Insert(ctx, NewFile{
		Name:       file.Name,
		Size:       put.BytesWritten,
		MimeType:   contentType,
		StorageKey: put.Key,
		OwnerID:    owner.ID,
	})
	if insertErr != nil {
		return FileRecord{}, g.recoverInsert(owner.ID, put.Key, insertErr)
	}

	return rec, nil
}

func (g *Gateway) recoverInsert(ownerID, key string, insertErr error) error {
	// the caller's context may already be cancelled
	cleanupCtx, cancel := context.WithTimeout(context.Background(), g.cleanupTimeout)
	defer cancel()

	// A re-upload overwrote a blob that an existing record still points at.
	// Deleting it would leave that record without content.
	existing, lookupErr := g.repo.GetByKey(cleanupCtx, ownerID, key)
	switch {
	case lookupErr == nil:
		slog.Warn("record update failed, blob kept for existing record", "key", key, "id", existing.ID, "error", insertErr)
		return fmt.Errorf("upload %s: %w: record update failed: %w", key, ErrStaleRecord, insertErr)
	case !errors.Is(lookupErr, ErrNotFound):
		slog.Error("record lookup failed, blob left in place", "key", key, "error", lookupErr)
		return fmt.Errorf("upload %s: %w: record insert failed (%w) and lookup failed: %w", key, ErrOrphanedBlob, insertErr, lookupErr)
	}

	if g.consistency == ConsistencyBestEffort {
		slog.Warn("record insert failed, blob left in place", "key", key, "error", insertErr)
		return fmt.Errorf("upload %s: %w: record insert failed: %w", key, ErrOrphanedBlob, insertErr)
	}

	if delErr := g.blobs.Delete(cleanupCtx, []string{key}); delErr != nil {
		slog.Error("compensating delete failed", "key", key, "error", delErr)
		return fmt.Errorf("upload %s: %w: record insert failed (%w) and cleanup failed: %w", key, ErrOrphanedBlob, insertErr, delErr)
	}
	return fmt.Errorf("upload %s: record insert failed: %w", key, insertErr)
}

// List returns ownerID's records newest first.
func (g *Gateway) List(ctx context.Context, ownerID string) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	if ownerID == "" {
		return nil, fmt.Errorf("list files: %w", ErrUnauthenticated)
	}

	records, err := g.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return records, nil
}

func (g *Gateway) Get(ctx context.Context, ownerID string, id uuid.UUID) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("get file: %w", err)
	}

	if ownerID == "" {
		return FileRecord{}, fmt.Errorf("get file: %w", ErrUnauthenticated)
	}

	rec, err := g.repo.Get(ctx, ownerID, id)
	if err != nil {
		return FileRecord{}, fmt.Errorf("get file: %w", err)
	}

	return rec, nil
}

// Open returns the blob behind rec. The caller closes the reader.
func (g *Gateway) Open(ctx context.Context, rec FileRecord) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	if rec.StorageKey == "" {
		return nil, fmt.Errorf("open file: %w: storage key cannot be empty", ErrInvalidInput)
	}

	rc, err := g.blobs.Get(ctx, rec.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", rec.StorageKey, err)
	}

	return rc, nil
}

// Delete removes the blob behind rec and then the record itself.
//
// When the blob removal fails the record is left untouched. When the record
// deletion fails after the blob is gone, the returned error wraps
// ErrDanglingRecord and the record stays visible to List.
func (g *Gateway) Delete(ctx context.Context, rec FileRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if rec.StorageKey == "" || rec.OwnerID == "" {
		return fmt.Errorf("delete file: %w: storage key and owner are required", ErrInvalidInput)
	}

	if err := g.blobs.Delete(ctx, []string{rec.StorageKey}); err != nil {
		return fmt.Errorf("delete file %s: remove blob: %w", rec.StorageKey, err)
	}

	if err := g.repo.DeleteByID(ctx, rec.OwnerID, rec.ID); err != nil {
		slog.Error("record delete failed after blob removal", "key", rec.StorageKey, "id", rec.ID, "error", err)
		return fmt.Errorf("delete file %s: %w: %w", rec.StorageKey, ErrDanglingRecord, err)
	}

	return nil
}

// ReconcileReport pairs blobs with records.
type ReconcileReport struct {
	// Orphans are blobs without a record.
	Orphans []BlobInfo `json:"orphans"`
	// Dangling are records without a blob.
	Dangling []FileRecord `json:"dangling"`
	// Fixed is true when Orphans were deleted and Dangling records removed.
	Fixed bool `json:"fixed"`
}

// Reconcile compares every blob with every record and reports the ones
// without a counterpart. With fix set, orphaned blobs are deleted and
// dangling records removed.
//
// Returns ErrUnsupported when the blob store cannot enumerate its keys.
//
// Note: This operation is not atomic. Uploads running concurrently may show up
// as orphans for the instant between their blob write and record insert, so it
// should be run while the vault is quiet.
func (g *Gateway) Reconcile(ctx context.Context, fix bool) (ReconcileReport, error) {
	if err := ctx.Err(); err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w", err)
	}

	lister, ok := g.blobs.(BlobLister)
	if !ok {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w: blob store cannot list keys", ErrUnsupported)
	}

	blobs, err := lister.List(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: list blobs: %w", err)
	}

	records, err := g.repo.ListAll(ctx)
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: list records: %w", err)
	}

	blobKeys := make(map[string]struct{}, len(blobs))
	for _, b := range blobs {
		blobKeys[b.Key] = struct{}{}
	}
	recordKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		recordKeys[r.StorageKey] = struct{}{}
	}

	report := ReconcileReport{Orphans: []BlobInfo{}, Dangling: []FileRecord{}}
	for _, b := range blobs {
		if _, ok := recordKeys[b.Key]; !ok {
			report.Orphans = append(report.Orphans, b)
		}
	}
	for _, r := range records {
		if _, ok := blobKeys[r.StorageKey]; !ok {
			report.Dangling = append(report.Dangling, r)
		}
	}
	sort.Slice(report.Orphans, func(i, j int) bool { return report.Orphans[i].Key < report.Orphans[j].Key })
	sort.Slice(report.Dangling, func(i, j int) bool { return report.Dangling[i].StorageKey < report.Dangling[j].StorageKey })

	if !fix {
		return report, nil
	}

	if len(report.Orphans) > 0 {
		keys := make([]string, 0, len(report.Orphans))
		for _, b := range report.Orphans {
			keys = append(keys, b.Key)
		}
		if err := g.blobs.Delete(ctx, keys); err != nil {
			return report, fmt.Errorf("reconcile: delete orphans: %w", err)
		}
	}

	for _, r := range report.Dangling {
		err := g.repo.DeleteByID(ctx, r.OwnerID, r.ID)
		// a concurrent delete may have removed it already
		if err != nil && !errors.Is(err, ErrNotFound) {
			return report, fmt.Errorf("reconcile '%s': %w", r.StorageKey, err)
		}
	}

	report.Fixed = true
	return report, nil
}
