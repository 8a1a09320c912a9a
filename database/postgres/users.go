package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"
)

const uniqueViolation = "23505"

type userRepo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *userRepo) Create(ctx context.Context, email, passwordHash string) (identity.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, password_hash, created_at
	`, r.tableName)

	u, err := scanUser(r.pool.QueryRow(ctx, query, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.User{}, fmt.Errorf("create user: %w", identity.ErrUserExists)
		}
		return identity.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, password_hash, created_at
		FROM %s
		WHERE email = $1
	`, r.tableName)

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.User{}, cybervault.ErrNotFound
		}
		return identity.User{}, fmt.Errorf("get user: %w", err)
	}

	return u, nil
}

func scanUser(row pgx.Row) (identity.User, error) {
	var u identity.User
	var id uuid.UUID

	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return identity.User{}, err
	}

	u.ID = id.String()
	return u, nil
}
