// Package database connects CyberVault to its metadata backend.
//
// Two backends are supported, each in its own subpackage:
//
//   - database/postgres: PostgreSQL through a pgx connection pool
//   - database/sqlite: SQLite through modernc.org/sqlite, for single-node use
//
// Both store file records and accounts in two configurable tables.
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "cybervault.db",
//	    Tables: cybervault.Tables{Files: "vault_files", Users: "vault_users"},
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	gateway, err := cybervault.NewGateway(db.Files(), blobs, cybervault.GatewayConfig{})
//
// Open pings the backend, runs migrations when asked and validates the
// schema. Connect only opens the connection.
package database
