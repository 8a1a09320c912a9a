// Package sqlite implements the file record and account repositories on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/identity"

	_ "modernc.org/sqlite" // SQLite driver
)

// database provides SQLite database operations.
type database struct {
	db     *sql.DB
	tables cybervault.Tables
}

// Connect opens a SQLite database.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables cybervault.Tables) (*database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// An in-memory database lives only as long as its connection.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the files and users tables when they are missing.
func (d *database) Migrate(ctx context.Context) error {
	if err := Migrate(ctx, d.db, d.tables); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the database schema matches expected structure.
func (d *database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Files returns the file record repository.
func (d *database) Files() cybervault.MetaDataRepo {
	return &fileRepo{db: d.db, tableName: d.tables.Files}
}

// Users returns the account repository.
func (d *database) Users() identity.UserRepo {
	return &userRepo{db: d.db, tableName: d.tables.Users}
}

// DropTables removes every table created by Migrate.
func (d *database) DropTables(ctx context.Context) error {
	return DropTables(ctx, d.db, d.tables)
}

// Close closes the database connection.
func (d *database) Close() error {
	return d.db.Close()
}
