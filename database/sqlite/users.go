package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type userRepo struct {
	db        *sql.DB
	tableName string
}

func (r *userRepo) Create(ctx context.Context, email, passwordHash string) (identity.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`, r.tableName)

	now := time.Now().UTC()
	u := identity.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}

	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return identity.User{}, fmt.Errorf("create user: %w", identity.ErrUserExists)
		}
		return identity.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, email, password_hash, created_at
		FROM %s
		WHERE email = ?`, r.tableName)

	var u identity.User
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.User{}, cybervault.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("get user: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return identity.User{}, fmt.Errorf("get user: parse created_at: %w", err)
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
