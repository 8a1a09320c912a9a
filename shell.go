package cybervault

import (
	"context"
	"log/slog"
	"sync"
)

type View int

const (
	ViewSignIn View = iota
	ViewWorkspace
)

func (v View) String() string {
	if v == ViewWorkspace {
		return "workspace"
	}
	return "sign-in"
}

// VaultFiles is everything the workspace needs from the vault. Gateway implements it.
type VaultFiles interface {
	FileUploader
	FileSource
}

// Workspace is the signed-in part of the Shell. It exists only while an
// identity is present.
type Workspace struct {
	Identity Identity
	Uploader *Uploader
	Lister   *Lister
	Counter  *RefreshCounter

	unsubscribe func()
}

type ShellConfig struct {
	MaxUploadSize int64
}

// Shell gates the workspace on the session: while no identity is present it
// offers the sign-in flow, once one is present it mounts an Uploader and a
// Lister and keeps them until the session goes away.
type Shell struct {
	provider IdentityProvider
	files    VaultFiles
	notifier Notifier
	cfg      ShellConfig
	session  *SessionStore

	mu        sync.Mutex
	ctx       context.Context
	mounted   bool
	workspace *Workspace
	auth      *AuthForm
}

func NewShell(provider IdentityProvider, files VaultFiles, notifier Notifier, cfg ShellConfig) *Shell {
	if notifier == nil {
		notifier = Discard
	}
	s := &Shell{
		provider: provider,
		files:    files,
		notifier: notifier,
		cfg:      cfg,
		session:  NewSessionStore(provider),
	}
	s.session.OnChange(func(*Session) { s.sync() })
	return s
}

// Mount starts the session store and renders the view for the current
// session. ctx is kept for reloads triggered by later events. A session
// fetch failure is returned but leaves the Shell mounted on the sign-in view.
func (s *Shell) Mount(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mounted = true
	s.mu.Unlock()

	err := s.session.Start(ctx)
	s.sync()
	return err
}

// Unmount stops the session store and tears the workspace down.
func (s *Shell) Unmount() {
	s.session.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
	s.unmountWorkspaceLocked()
	s.auth = nil
}

func (s *Shell) Session() *SessionStore { return s.session }

func (s *Shell) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspace != nil {
		return ViewWorkspace
	}
	return ViewSignIn
}

// Workspace returns the mounted workspace, or nil on the sign-in view.
func (s *Shell) Workspace() *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Auth returns the sign-in form, or nil while the workspace is mounted.
func (s *Shell) Auth() *AuthForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// SignOut asks the provider to end the session. The view flips when the
// provider's change event arrives, not here.
func (s *Shell) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		notifyError(s.notifier, err.Error())
		return err
	}
	notifySuccess(s.notifier, MsgSignedOut)
	return nil
}

func (s *Shell) sync() {
	id, present := s.session.Current()

	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}

	if s.workspace != nil && (!present || s.workspace.Identity.ID != id.ID) {
		s.unmountWorkspaceLocked()
	}

	if !present {
		if s.auth == nil {
			s.auth = NewAuthForm(s.provider, s.notifier, nil)
		}
		s.mu.Unlock()
		return
	}

	if s.workspace != nil {
		s.mu.Unlock()
		return
	}

	ws := s.mountWorkspaceLocked(id)
	ctx := s.ctx
	s.mu.Unlock()

	if err := ws.Lister.Reload(ctx); err != nil {
		slog.Warn("initial load failed", "error", err)
	}
}

func (s *Shell) mountWorkspaceLocked(id Identity) *Workspace {
	counter := NewRefreshCounter()
	lister := NewLister(s.files, s.session, s.notifier)
	uploader := NewUploader(s.files, s.session, s.notifier, UploaderConfig{
		MaxSize: s.cfg.MaxUploadSize,
		OnComplete: func(FileRecord) {
			counter.Increment()
		},
	})

	ctx := s.ctx
	unsubscribe := counter.Subscribe(func(uint64) {
		if err := lister.Reload(ctx); err != nil {
			slog.Warn("reload failed", "error", err)
		}
	})

	ws := &Workspace{
		Identity:    id,
		Uploader:    uploader,
		Lister:      lister,
		Counter:     counter,
		unsubscribe: unsubscribe,
	}
	s.workspace = ws
	s.auth = nil
	slog.Debug("workspace mounted", "owner", id.ID)
	return ws
}

func (s *Shell) unmountWorkspaceLocked() {
	if s.workspace == nil {
		return
	}
	s.workspace.unsubscribe()
	slog.Debug("workspace unmounted", "owner", s.workspace.Identity.ID)
	s.workspace = nil
}
