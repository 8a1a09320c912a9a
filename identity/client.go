package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sagarc03/cybervault"
)

// Client is a single-user cybervault.IdentityProvider. It signs in through an
// Authenticator, keeps the session in a SessionStorage and tells subscribers
// about every change.
type Client struct {
	auth    Authenticator
	storage SessionStorage
	now     func() time.Time

	mu        sync.Mutex
	next      int
	listeners map[int]func(cybervault.SessionEvent, *cybervault.Session)
}

func NewClient(auth Authenticator, storage SessionStorage) *Client {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Client{
		auth:      auth,
		storage:   storage,
		now:       time.Now,
		listeners: make(map[int]func(cybervault.SessionEvent, *cybervault.Session)),
	}
}

type subscription struct {
	once sync.Once
	fn   func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.fn) }

func (c *Client) OnSessionChange(fn func(cybervault.SessionEvent, *cybervault.Session)) cybervault.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.listeners[id] = fn

	return &subscription{fn: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}}
}

func (c *Client) emit(event cybervault.SessionEvent, s *cybervault.Session) {
	c.mu.Lock()
	fns := make([]func(cybervault.SessionEvent, *cybervault.Session), 0, len(c.listeners))
	for i := 0; i < c.next; i++ {
		if fn, ok := c.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(event, s)
	}
}

// CurrentSession returns the stored session after checking it with the
// Authenticator. A stored session that expired or was revoked is cleared and
// reported as absent.
func (c *Client) CurrentSession(ctx context.Context) (*cybervault.Session, error) {
	stored, err := c.storage.Load()
	if err != nil {
		return nil, fmt.Errorf("current session: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	if stored.Expired(c.now()) {
		c.discard()
		return nil, nil
	}

	verified, err := c.auth.Verify(ctx, stored.AccessToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrSessionRevoked) {
			c.discard()
			return nil, nil
		}
		return nil, fmt.Errorf("current session: %w", err)
	}

	return verified, nil
}

func (c *Client) discard() {
	if err := c.storage.Clear(); err != nil {
		slog.Warn("clear stale session failed", "error", err)
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*cybervault.Session, error) {
	s, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.establish(s)
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*cybervault.Session, error) {
	s, err := c.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.establish(s)
}

func (c *Client) establish(s *cybervault.Session) (*cybervault.Session, error) {
	if err := c.storage.Save(s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.emit(cybervault.EventSignedIn, s)
	return s, nil
}

// SignOut revokes the stored token and forgets the session. The local session
// is cleared even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	stored, err := c.storage.Load()
	if err != nil {
		slog.Warn("load session for sign-out failed", "error", err)
	}

	if stored != nil {
		if err := c.auth.Revoke(ctx, stored.AccessToken); err != nil {
			slog.Warn("revoke token failed", "error", err)
		}
	}

	if err := c.storage.Clear(); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	c.emit(cybervault.EventSignedOut, nil)
	return nil
}
