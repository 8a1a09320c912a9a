package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sagarc03/cybervault"
	"gopkg.in/yaml.v3"
)

// SessionStorage persists the client's active session between runs.
type SessionStorage interface {
	// Load returns nil without error when nothing is stored.
	Load() (*cybervault.Session, error)
	Save(s *cybervault.Session) error
	Clear() error
}

type MemoryStorage struct {
	mu      sync.Mutex
	session *cybervault.Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*cybervault.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil
	}
	cp := *m.session
	return &cp, nil
}

func (m *MemoryStorage) Save(s *cybervault.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.session = &cp
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// FileStorage keeps the session in a YAML file readable only by its owner.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultSessionPath returns ~/.cybervault/session.yaml.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".cybervault", "session.yaml"), nil
}

type sessionFile struct {
	AccessToken string    `yaml:"access_token"`
	UserID      string    `yaml:"user_id"`
	Email       string    `yaml:"email"`
	ExpiresAt   time.Time `yaml:"expires_at"`
}

func (f *FileStorage) Load() (*cybervault.Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}

	if sf.AccessToken == "" {
		return nil, nil
	}

	return &cybervault.Session{
		AccessToken: sf.AccessToken,
		Identity:    cybervault.Identity{ID: sf.UserID, Email: sf.Email},
		ExpiresAt:   sf.ExpiresAt,
	}, nil
}

func (f *FileStorage) Save(s *cybervault.Session) error {
	data, err := yaml.Marshal(sessionFile{
		AccessToken: s.AccessToken,
		UserID:      s.Identity.ID,
		Email:       s.Identity.Email,
		ExpiresAt:   s.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStorage) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
