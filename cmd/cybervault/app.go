package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/cybervault"
	"github.com/sagarc03/cybervault/config"
	"github.com/sagarc03/cybervault/database"
	"github.com/sagarc03/cybervault/filesystem"
	"github.com/sagarc03/cybervault/identity"
	"github.com/sagarc03/cybervault/s3store"
	"github.com/sagarc03/cybervault/stowrystore"
)

// app holds the collaborators opened for one command run.
type app struct {
	cfg     *config.Config
	db      database.Database
	blobs   cybervault.BlobStore
	gateway *cybervault.Gateway

	auth    *identity.Authority
	closers []func() error
}

// openApp connects the metadata store and the blob store and builds the Gateway.
func openApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	a := &app{cfg: cfg}

	db, err := database.Open(ctx, cfg.Database, migrate)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	slog.Debug("connected to database", "type", cfg.Database.Type)

	blobs, closeBlobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blobs
	if closeBlobs != nil {
		a.closers = append(a.closers, closeBlobs)
	}

	gateway, err := cybervault.NewGateway(db.Files(), blobs, cybervault.GatewayConfig{
		Consistency:    cfg.Vault.ConsistencyMode(),
		CleanupTimeout: cfg.Vault.CleanupTimeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create gateway: %w", err)
	}
	a.gateway = gateway

	return a, nil
}

// Close releases everything in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close resource", "err", err)
		}
	}
	a.closers = nil
}

// authority builds the token authority on first use.
func (a *app) authority(ctx context.Context) (*identity.Authority, error) {
	if a.auth != nil {
		return a.auth, nil
	}

	if a.cfg.Auth.Secret == "" {
		return nil, errors.New("auth.secret is not set (env: CYBERVAULT_AUTH_SECRET)")
	}

	revoker, closeRevoker, err := openRevoker(ctx, a.cfg.Auth)
	if err != nil {
		return nil, err
	}
	if closeRevoker != nil {
		a.closers = append(a.closers, closeRevoker)
	}

	auth, err := identity.NewAuthority(a.db.Users(), revoker, identity.AuthorityConfig{
		Secret:   []byte(a.cfg.Auth.Secret),
		TokenTTL: a.cfg.Auth.TokenTTL,
	})
	if err != nil {
		return nil, err
	}
	a.auth = auth
	return auth, nil
}

// client returns an identity client that persists its session to the session file.
func (a *app) client(ctx context.Context) (*identity.Client, error) {
	auth, err := a.authority(ctx)
	if err != nil {
		return nil, err
	}

	path := a.cfg.Session.Path
	if path == "" {
		path, err = identity.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
	}

	return identity.NewClient(auth, identity.NewFileStorage(path)), nil
}

func openBlobStore(ctx context.Context, cfg config.StorageConfig) (cybervault.BlobStore, func() error, error) {
	switch cfg.Backend {
	case "filesystem":
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create storage directory: %w", err)
		}
		root, err := os.OpenRoot(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}
		return filesystem.NewFileStorage(root), root.Close, nil

	case "s3":
		store, err := s3store.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case "stowry":
		store, err := stowrystore.New(cfg.Stowry)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func openRevoker(ctx context.Context, cfg config.AuthConfig) (identity.Revoker, func() error, error) {
	switch cfg.Revocation {
	case "redis":
		client, err := identity.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return identity.NewRedisRevoker(client), client.Close, nil
	default:
		return identity.NewMemoryRevoker(), nil, nil
	}
}
