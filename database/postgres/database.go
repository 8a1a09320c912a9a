// Package postgres implements the file record and account repositories on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"
)

type database struct {
	pool   *pgxpool.Pool
	tables cybervault.Tables
}

// Connect establishes a connection pool to PostgreSQL.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables cybervault.Tables) (*database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &database{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the files and users tables when they are missing.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.pool, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// Files returns the file record repository.
func (d *database) Files() cybervault.MetaDataRepo {
	return &fileRepo{pool: d.pool, tableName: d.tables.Files}
}

// Users returns the account repository.
func (d *database) Users() identity.UserRepo {
	return &userRepo{pool: d.pool, tableName: d.tables.Users}
}

// DropTables removes every table created by Migrate.
func (d *database) DropTables(ctx context.Context) error {
	return DropTables(ctx, d.pool, d.tables)
}

// Close closes the database connection pool.
func (d *database) Close() error {
	d.pool.Close()
	return nil
}
