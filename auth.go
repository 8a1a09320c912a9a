package cybervault

import (
	"context"
	"log/slog"
	"sync"
)

type AuthMode int

const (
	AuthModeSignIn AuthMode = iota
	AuthModeSignUp
)

func (m AuthMode) String() string {
	if m == AuthModeSignUp {
		return "sign-up"
	}
	return "sign-in"
}

// SubmitLabel is the text of the submit action for the mode.
func (m AuthMode) SubmitLabel() string {
	if m == AuthModeSignUp {
		return "Create Identity"
	}
	return "Access CyberVault"
}

// ToggleLabel is the text of the action that switches to the other mode.
func (m AuthMode) ToggleLabel() string {
	if m == AuthModeSignUp {
		return "Already have an identity? Sign in"
	}
	return "Need an identity? Sign up"
}

// AuthForm is the sign-in/sign-up flow. It validates nothing beyond
// non-empty fields; the identity provider owns every other rule.
type AuthForm struct {
	provider  IdentityProvider
	notifier  Notifier
	onSuccess func(*Session)

	mu       sync.Mutex
	mode     AuthMode
	email    string
	password string
	inFlight bool
}

func NewAuthForm(provider IdentityProvider, notifier Notifier, onSuccess func(*Session)) *AuthForm {
	if notifier == nil {
		notifier = Discard
	}
	return &AuthForm{
		provider:  provider,
		notifier:  notifier,
		onSuccess: onSuccess,
	}
}

func (f *AuthForm) Mode() AuthMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Toggle switches between sign-in and sign-up. Entered fields are kept.
func (f *AuthForm) Toggle() AuthMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == AuthModeSignIn {
		f.mode = AuthModeSignUp
	} else {
		f.mode = AuthModeSignIn
	}
	return f.mode
}

func (f *AuthForm) SetEmail(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email = email
}

func (f *AuthForm) SetPassword(password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = password
}

// CanSubmit reports whether both fields are filled and no request is in flight.
func (f *AuthForm) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *AuthForm) canSubmitLocked() bool {
	return !f.inFlight && f.email != "" && f.password != ""
}

// Submit signs in or signs up depending on the mode.
//
// On success a notification is emitted and the success callback runs; the
// session itself reaches the rest of the app through the provider's change
// event. On failure the provider's error message is emitted verbatim and the
// form stays editable. Returns ErrSubmitDisabled when CanSubmit is false.
func (f *AuthForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.canSubmitLocked() {
		f.mu.Unlock()
		return ErrSubmitDisabled
	}
	f.inFlight = true
	mode, email, password := f.mode, f.email, f.password
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	var (
		session *Session
		err     error
		msg     string
	)
	switch mode {
	case AuthModeSignUp:
		session, err = f.provider.SignUp(ctx, email, password)
		msg = MsgSignedUp
	default:
		session, err = f.provider.SignIn(ctx, email, password)
		msg = MsgSignedIn
	}

	if err != nil {
		slog.Info("authentication failed", "mode", mode, "error", err)
		notifyError(f.notifier, err.Error())
		return err
	}

	notifySuccess(f.notifier, msg)
	if f.onSuccess != nil {
		f.onSuccess(session)
	}
	return nil
}
