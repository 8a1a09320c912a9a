package identity

import (
	"context"
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepo persists accounts. Emails are stored lower-cased and are unique.
type UserRepo interface {
	// Create returns ErrUserExists when the email is taken.
	Create(ctx context.Context, email, passwordHash string) (User, error)
	// GetByEmail returns cybervault.ErrNotFound when no account matches.
	GetByEmail(ctx context.Context, email string) (User, error)
}
