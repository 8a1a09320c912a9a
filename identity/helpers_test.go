package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/cybervault"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type memUsers struct {
	mu    sync.Mutex
	users map[string]User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]User)}
}

func (m *memUsers) Create(_ context.Context, email, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.users[key]; ok {
		return User{}, ErrUserExists
	}
	u := User{ID: uuid.NewString(), Email: key, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[key] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return User{}, cybervault.ErrNotFound
	}
	return u, nil
}
