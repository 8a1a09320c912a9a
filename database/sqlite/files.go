package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

const fileColumns = `id, name, size, mime_type, storage_key, owner_id, created_at`

type fileRepo struct {
	db        *sql.DB
	tableName string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (cybervault.FileRecord, error) {
	var f cybervault.FileRecord
	var idStr, createdAt string

	if err := row.Scan(&idStr, &f.Name, &f.Size, &f.MimeType, &f.StorageKey, &f.OwnerID, &createdAt); err != nil {
		return cybervault.FileRecord{}, err
	}

	var err error
	f.ID, err = uuid.Parse(idStr)
	if err != nil {
		return cybervault.FileRecord{}, fmt.Errorf("parse uuid: %w", err)
	}

	f.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return cybervault.FileRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	return f, nil
}

func (r *fileRepo) Insert(ctx context.Context, f cybervault.NewFile) (cybervault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (storage_key) DO UPDATE
		SET name = excluded.name,
			size = excluded.size,
			mime_type = excluded.mime_type,
			created_at = excluded.created_at
		RETURNING %s`, r.tableName, fileColumns, fileColumns)

	now := formatTime(time.Now())
	row := r.db.QueryRowContext(ctx, query,
		uuid.NewString(), f.Name, f.Size, f.MimeType, f.StorageKey, f.OwnerID, now,
	)

	rec, err := scanFile(row)
	if err != nil {
		return cybervault.FileRecord{}, fmt.Errorf("insert: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) ListByOwner(ctx context.Context, ownerID string) ([]cybervault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s
		FROM %s
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC`, fileColumns, r.tableName)

	return r.list(ctx, "list by owner", query, ownerID)
}

func (r *fileRepo) ListAll(ctx context.Context) ([]cybervault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC`, fileColumns, r.tableName)

	return r.list(ctx, "list all", query)
}

func (r *fileRepo) list(ctx context.Context, opName, query string, args ...any) ([]cybervault.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]cybervault.FileRecord, 0)
	for rows.Next() {
		rec, scanErr := scanFile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%s: scan: %w", opName, scanErr)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", opName, err)
	}

	return records, nil
}

func (r *fileRepo) Get(ctx context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s
		FROM %s
		WHERE id = ? AND owner_id = ?`, fileColumns, r.tableName)

	rec, err := scanFile(r.db.QueryRowContext(ctx, query, id.String(), ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cybervault.FileRecord{}, cybervault.ErrNotFound
		}
		return cybervault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) GetByKey(ctx context.Context, ownerID, key string) (cybervault.FileRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s
		FROM %s
		WHERE storage_key = ? AND owner_id = ?`, fileColumns, r.tableName)

	rec, err := scanFile(r.db.QueryRowContext(ctx, query, key, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cybervault.FileRecord{}, cybervault.ErrNotFound
		}
		return cybervault.FileRecord{}, fmt.Errorf("get by key: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) DeleteByID(ctx context.Context, ownerID string, id uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`DELETE FROM %s WHERE id = ? AND owner_id = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query, id.String(), ownerID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", cybervault.ErrNotFound)
	}

	return nil
}
