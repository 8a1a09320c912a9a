package identity

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUserExists         = errors.New("user already registered")
	ErrInvalidEmail       = errors.New("unable to validate email address: invalid format")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrPasswordTooLong    = errors.New("password should be at most 72 bytes")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionRevoked     = errors.New("session has been revoked")
)
