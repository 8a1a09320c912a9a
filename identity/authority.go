package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sagarc03/cybervault"
)

// Authenticator is the server side of the identity collaborator.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*cybervault.Session, error)
	SignIn(ctx context.Context, email, password string) (*cybervault.Session, error)
	// Verify returns the session an access token stands for.
	Verify(ctx context.Context, token string) (*cybervault.Session, error)
	// Revoke invalidates an access token before its expiry.
	Revoke(ctx context.Context, token string) error
}

type AuthorityConfig struct {
	Secret   []byte
	TokenTTL time.Duration // default: 1h
}

// Authority is a local Authenticator backed by a UserRepo.
type Authority struct {
	users    UserRepo
	revoker  Revoker
	secret   []byte
	ttl      time.Duration
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthority(users UserRepo, revoker Revoker, cfg AuthorityConfig) (*Authority, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("new authority: secret must be at least 32 bytes")
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Authority{
		users:    users,
		revoker:  revoker,
		secret:   cfg.Secret,
		ttl:      ttl,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Authority) SignUp(ctx context.Context, email, password string) (*cybervault.Session, error) {
	email = normalizeEmail(email)
	if err := a.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return a.issue(user)
}

func (a *Authority) SignIn(ctx context.Context, email, password string) (*cybervault.Session, error) {
	user, err := a.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, cybervault.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.issue(user)
}

func (a *Authority) issue(user User) (*cybervault.Session, error) {
	token, claims, err := issueToken(a.secret, user, a.ttl, a.now())
	if err != nil {
		return nil, err
	}
	return &cybervault.Session{
		AccessToken: token,
		Identity:    cybervault.Identity{ID: user.ID, Email: user.Email},
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (a *Authority) Verify(ctx context.Context, token string) (*cybervault.Session, error) {
	claims, err := parseToken(a.secret, token, a.now())
	if err != nil {
		return nil, err
	}

	revoked, err := a.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	return &cybervault.Session{
		AccessToken: token,
		Identity:    cybervault.Identity{ID: claims.Subject, Email: claims.Email},
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Revoke remembers the token's ID until the token would have expired anyway.
// Revoking an expired token is a no-op.
func (a *Authority) Revoke(ctx context.Context, token string) error {
	claims, err := parseToken(a.secret, token, a.now())
	if err != nil {
		if isExpired(err) {
			return nil
		}
		return err
	}

	ttl := claims.ExpiresAt.Sub(a.now())
	if err := a.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
