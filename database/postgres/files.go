package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cybervault"
)

const fileColumns = `id, name, size, mime_type, storage_key, owner_id, created_at`

type fileRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func scanFile(row pgx.Row) (cybervault.FileRecord, error) {
	var f cybervault.FileRecord
	err := row.Scan(&f.ID, &f.Name, &f.Size, &f.MimeType, &f.StorageKey, &f.OwnerID, &f.CreatedAt)
	return f, err
}

func (r *fileRepo) Insert(ctx context.Context, f cybervault.NewFile) (cybervault.FileRecord, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, size, mime_type, storage_key, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (storage_key) DO UPDATE
		SET name = EXCLUDED.name,
			size = EXCLUDED.size,
			mime_type = EXCLUDED.mime_type,
			created_at = clock_timestamp()
		RETURNING %s
	`, r.tableName, fileColumns)

	rec, err := scanFile(r.pool.QueryRow(ctx, query, f.Name, f.Size, f.MimeType, f.StorageKey, f.OwnerID))
	if err != nil {
		return cybervault.FileRecord{}, fmt.Errorf("insert: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) ListByOwner(ctx context.Context, ownerID string) ([]cybervault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
	`, fileColumns, r.tableName)

	return r.list(ctx, "list by owner", query, ownerID)
}

func (r *fileRepo) ListAll(ctx context.Context) ([]cybervault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at DESC, id DESC
	`, fileColumns, r.tableName)

	return r.list(ctx, "list all", query)
}

func (r *fileRepo) list(ctx context.Context, opName, query string, args ...any) ([]cybervault.FileRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opName, err)
	}
	defer rows.Close()

	records := make([]cybervault.FileRecord, 0)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", opName, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", opName, err)
	}

	return records, nil
}

func (r *fileRepo) Get(ctx context.Context, ownerID string, id uuid.UUID) (cybervault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND owner_id = $2
	`, fileColumns, r.tableName)

	rec, err := scanFile(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cybervault.FileRecord{}, cybervault.ErrNotFound
		}
		return cybervault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) GetByKey(ctx context.Context, ownerID, key string) (cybervault.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE storage_key = $1 AND owner_id = $2
	`, fileColumns, r.tableName)

	rec, err := scanFile(r.pool.QueryRow(ctx, query, key, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cybervault.FileRecord{}, cybervault.ErrNotFound
		}
		return cybervault.FileRecord{}, fmt.Errorf("get by key: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) DeleteByID(ctx context.Context, ownerID string, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND owner_id = $2`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", cybervault.ErrNotFound)
	}

	return nil
}
