// Package config provides configuration loading and validation for CyberVault.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (CYBERVAULT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with CYBERVAULT_ prefix:
//   - server.port → CYBERVAULT_SERVER_PORT
//   - auth.secret → CYBERVAULT_AUTH_SECRET
//   - storage.s3.bucket → CYBERVAULT_STORAGE_S3_BUCKET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Env: dev or prod, selects the log handler
//   - Server: port, request size limit, shutdown timeout, metrics toggle
//   - Vault: consistency mode, cleanup timeout, per-file upload limit
//   - Database: type (sqlite/postgres), DSN, table names, auto_migrate
//   - Storage: backend (filesystem/s3/stowry) and its settings
//   - Auth: token secret and TTL, revocation backend (memory/redis)
//   - Session: CLI session file path
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// The auth secret has no default. Commands that issue or verify tokens fail
// without one.
package config
