package cybervault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type SessionEvent string

const (
	EventSignedIn       SessionEvent = "SIGNED_IN"
	EventSignedOut      SessionEvent = "SIGNED_OUT"
	EventTokenRefreshed SessionEvent = "TOKEN_REFRESHED"
)

// Subscription cancels a session-change registration.
type Subscription interface {
	Unsubscribe()
}

// IdentityProvider is the identity collaborator. Errors returned by SignIn,
// SignUp and SignOut carry messages meant to be shown to the user as they are.
type IdentityProvider interface {
	// CurrentSession returns the active session, or nil when signed out.
	CurrentSession(ctx context.Context) (*Session, error)
	// OnSessionChange registers fn to run after every session change.
	OnSessionChange(fn func(event SessionEvent, session *Session)) Subscription
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}

// IdentitySource resolves the identity an operation acts for.
type IdentitySource interface {
	// Identity returns ErrUnauthenticated when no identity is present.
	Identity(ctx context.Context) (Identity, error)
}

// StaticIdentity is an IdentitySource that always reports the same identity.
type StaticIdentity Identity

func (s StaticIdentity) Identity(context.Context) (Identity, error) {
	if s.ID == "" {
		return Identity{}, ErrUnauthenticated
	}
	return Identity(s), nil
}

// SessionStore holds the current session as reported by an IdentityProvider.
//
// Start fetches the session once and subscribes to changes; Stop unsubscribes.
// Nothing is retried: a failed fetch leaves the session absent until the
// provider reports a change.
type SessionStore struct {
	provider IdentityProvider
	now      func() time.Time

	mu        sync.RWMutex
	session   *Session
	sub       Subscription
	listeners []func(*Session)
}

func NewSessionStore(provider IdentityProvider) *SessionStore {
	return &SessionStore{
		provider: provider,
		now:      time.Now,
	}
}

// OnChange registers fn to run after the session changes through a provider
// event. Listeners run outside the store's lock.
func (s *SessionStore) OnChange(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start subscribes to session changes and fetches the current session.
// A fetch error is returned after the subscription is in place.
func (s *SessionStore) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.sub == nil {
		s.sub = s.provider.OnSessionChange(s.handleChange)
	}
	s.mu.Unlock()

	session, err := s.provider.CurrentSession(ctx)
	if err != nil {
		slog.Warn("fetch session failed", "error", err)
		s.set(nil)
		return fmt.Errorf("start session store: %w", err)
	}

	s.set(session)
	return nil
}

// Stop cancels the subscription taken by Start.
func (s *SessionStore) Stop() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *SessionStore) handleChange(event SessionEvent, session *Session) {
	slog.Debug("session changed", "event", event)
	if event == EventSignedOut {
		session = nil
	}
	s.set(session)

	s.mu.RLock()
	listeners := make([]func(*Session), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	current := s.Session()
	for _, fn := range listeners {
		fn(current)
	}
}

func (s *SessionStore) set(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// Session returns the current session, or nil when absent or expired.
func (s *SessionStore) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Expired(s.now()) {
		return nil
	}
	cp := *s.session
	return &cp
}

// Current returns the current identity and whether one is present.
func (s *SessionStore) Current() (Identity, bool) {
	session := s.Session()
	if session == nil {
		return Identity{}, false
	}
	return session.Identity, true
}

func (s *SessionStore) Identity(context.Context) (Identity, error) {
	id, ok := s.Current()
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
