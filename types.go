package cybervault

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxUploadSize is the per-file upload limit used when none is configured.
const DefaultMaxUploadSize int64 = 100 << 20

// Identity is an authenticated user as reported by the identity collaborator.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the identity collaborator's proof of authentication.
type Session struct {
	AccessToken string    `json:"access_token"`
	Identity    Identity  `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry. A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type FileRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"type"`
	StorageKey string    `json:"storage_key"`
	OwnerID    string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewFile carries the fields of a FileRecord the caller controls. ID and
// CreatedAt are assigned by the metadata store.
type NewFile struct {
	Name       string
	Size       int64
	MimeType   string
	StorageKey string
	OwnerID    string
}

type PutResult struct {
	Key          string
	BytesWritten int64
}

type BlobInfo struct {
	Key  string
	Size int64
}

// LocalFile is a file selected for upload. Open is called once, right before
// the blob is stored.
type LocalFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// StorageKey returns the blob key for a file owned by ownerID.
func StorageKey(ownerID, name string) string {
	return ownerID + "/" + name
}

// ConsistencyMode selects how the Gateway reacts when the record insert fails
// after the blob was stored.
type ConsistencyMode string

const (
	ConsistencyCompensate ConsistencyMode = "compensate"
	ConsistencyBestEffort ConsistencyMode = "best_effort"
)

func (m ConsistencyMode) IsValid() bool {
	switch m {
	case ConsistencyCompensate, ConsistencyBestEffort:
		return true
	default:
		return false
	}
}

func ParseConsistencyMode(s string) (ConsistencyMode, error) {
	mode := ConsistencyMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid consistency mode: %s (valid modes: compensate, best_effort)", s)
	}
	return mode, nil
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Files string `mapstructure:"files"`
	Users string `mapstructure:"users"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set, valid and distinct.
func (t Tables) Validate() error {
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}

	if t.Users == "" {
		return errors.New("validate tables: users table name cannot be empty")
	}

	if !IsValidTableName(t.Files) {
		return fmt.Errorf("validate tables: invalid files table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Files)
	}

	if !IsValidTableName(t.Users) {
		return fmt.Errorf("validate tables: invalid users table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Users)
	}

	if t.Files == t.Users {
		return fmt.Errorf("validate tables: files and users tables must differ: %s", t.Files)
	}

	return nil
}
