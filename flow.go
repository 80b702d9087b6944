package ayurauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// State is the flow controller's position for the current principal.
type State int

const (
	StateAnonymous State = iota
	StateAwaitingVerification
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAwaitingVerification:
		return "awaiting_verification"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// PendingRegistration links an email awaiting verification to the role
// chosen at sign-up. The identity provider carries no role metadata
// before verification, so this lives in the session store until the
// code is confirmed.
type PendingRegistration struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// MinPasswordLength is enforced locally before any provider or code
// store is touched.
const MinPasswordLength = 6

// Flow orchestrates the sign-in / sign-up / verify / logout state
// machine. The backend and code channel are injected once at
// construction; demo and provider wirings go through identical
// transitions.
//
// The controller itself holds no principal state: the current identity
// and the pending registration both live in the SessionStore, which is
// scoped per principal (per request context under scs). One Flow can
// therefore serve every client of a process without leaking identity
// between sessions.
type Flow struct {
	Backend  IdentityBackend
	Codes    CodeChannel
	Sessions SessionStore

	// DefaultLanding is where a successful sign-in navigates when the
	// request carries no redirect target.
	DefaultLanding string
}

// NewFlow wires a flow controller. All three collaborators are
// required.
func NewFlow(backend IdentityBackend, codes CodeChannel, sessions SessionStore) *Flow {
	return &Flow{
		Backend:        backend,
		Codes:          codes,
		Sessions:       sessions,
		DefaultLanding: "/dashboard",
	}
}

// Start checks for an existing session and discards half-authenticated
// leftovers. Safe to call on every request.
func (f *Flow) Start(ctx context.Context) error {
	user, err := f.Backend.CurrentSession(ctx)
	if err != nil {
		slog.Warn("session check failed", "err", err)
		return nil
	}
	if user != nil && !user.Trusted() {
		// Half-authenticated leftovers never restore a session.
		if err := f.Backend.SignOut(ctx); err != nil {
			slog.Warn("error discarding unverified session", "err", err)
		}
	}
	return nil
}

// State reports the flow's position for the calling principal. Both
// branches are derived from the session store, so the answer survives
// process restarts and never crosses sessions.
func (f *Flow) State(ctx context.Context) State {
	if f.Current(ctx) != nil {
		return StateAuthenticated
	}
	if _, ok := f.Sessions.Get(ctx, SessionKeyPending); ok {
		return StateAwaitingVerification
	}
	return StateAnonymous
}

// Current returns the calling principal's signed-in identity, or nil
// when Anonymous. The identity comes from the backend's session for
// this context; untrusted sessions never surface here.
func (f *Flow) Current(ctx context.Context) *UserIdentity {
	user, err := f.Backend.CurrentSession(ctx)
	if err != nil {
		slog.Warn("session lookup failed", "err", err)
		return nil
	}
	if user == nil || !user.Trusted() {
		return nil
	}
	if role, ok := f.Sessions.Get(ctx, SessionKeyUserType); ok {
		user.Role = ParseRole(role)
	}
	return user
}

// SignInWithPassword authenticates email/password and attaches the
// chosen role. A valid-but-unverified account is signed straight back
// out so no half-authenticated session survives the call.
func (f *Flow) SignInWithPassword(ctx context.Context, email, password string, role Role) (*UserIdentity, error) {
	email = NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Email and password are required", "")
	}

	user, err := f.Backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, AsAuthError(err)
	}
	if !user.Trusted() {
		// Reverse the sign-in the provider just completed.
		if err := f.Backend.SignOut(ctx); err != nil {
			slog.Warn("error reversing unverified sign-in", "err", err)
		}
		return nil, NewAuthError(ErrCodeUnverifiedEmail,
			"Please verify your email before signing in. Check your inbox for the verification code.", "email")
	}

	user.Role = role
	f.establish(ctx, user)
	return user, nil
}

// SignInWithProvider completes a trusted social sign-in. In provider
// mode userInfo comes from the OAuth callback; demo mode passes nil.
func (f *Flow) SignInWithProvider(ctx context.Context, userInfo map[string]any) (*UserIdentity, error) {
	user, err := f.Backend.SignInWithProvider(ctx, userInfo)
	if err != nil {
		return nil, AsAuthError(err)
	}
	if role, ok := f.Sessions.Get(ctx, SessionKeyUserType); ok {
		user.Role = ParseRole(role)
	}
	f.establish(ctx, user)
	return user, nil
}

// SignUpWithPassword creates the account, records the pending
// registration and dispatches a verification code. The new account is
// never left signed in; verification is mandatory before access.
func (f *Flow) SignUpWithPassword(ctx context.Context, email, password, confirm string, role Role) error {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return NewAuthError(ErrCodeMissingField, "Email and password are required", "")
	}
	if !ValidEmail(email) {
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	}
	if password != confirm {
		return NewAuthError(ErrCodePasswordMismatch, "Please make sure your passwords match.", "confirm_password")
	}
	if len(password) < MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 6 characters", "password")
	}

	if _, err := f.Backend.SignUp(ctx, email, password); err != nil {
		return AsAuthError(err)
	}
	// The provider may have opened a session for the fresh account;
	// drop it before anything can observe it.
	if err := f.Backend.SignOut(ctx); err != nil {
		slog.Warn("error signing out fresh account", "err", err)
	}

	pending, _ := json.Marshal(PendingRegistration{Email: email, Role: role})
	f.Sessions.Put(ctx, SessionKeyPending, string(pending))

	if err := f.Codes.Issue(ctx, email); err != nil {
		return AsAuthError(err)
	}
	return nil
}

// Verify submits a code for the pending registration. On success the
// registration is consumed, the backend marks the email verified and
// the principal lands in Authenticated with the role chosen at
// sign-up. Failures leave the flow in AwaitingVerification.
func (f *Flow) Verify(ctx context.Context, code string) (*UserIdentity, error) {
	pending, ok := f.pending(ctx)
	if !ok {
		return nil, NewAuthError(ErrCodeNoPendingCode, "No verification is pending. Sign up first.", "")
	}

	if err := f.Codes.Validate(ctx, pending.Email, code); err != nil {
		return nil, AsAuthError(err)
	}

	user, err := f.Backend.CompleteVerification(ctx, pending.Email, pending.Role)
	if err != nil {
		return nil, AsAuthError(err)
	}
	user.Role = pending.Role

	f.Sessions.Delete(ctx, SessionKeyPending)
	f.establish(ctx, user)
	return user, nil
}

// ResendCode reissues the code for the pending registration,
// superseding the previous one.
func (f *Flow) ResendCode(ctx context.Context) error {
	pending, ok := f.pending(ctx)
	if !ok {
		return NewAuthError(ErrCodeNoPendingCode, "No verification is pending. Sign up first.", "")
	}
	if err := f.Codes.Issue(ctx, pending.Email); err != nil {
		return AsAuthError(err)
	}
	return nil
}

// Logout tears down the session. Calling it while Anonymous is a
// no-op.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.Backend.SignOut(ctx); err != nil {
		slog.Warn("error signing out", "err", err)
	}
	f.Sessions.Delete(ctx, SessionKeyUser)
	f.Sessions.Delete(ctx, SessionKeyUserType)
	return nil
}

// establish records the identity in the session store. The marker
// cookie is written by the HTTP layer in the same response that
// carries this state change.
func (f *Flow) establish(ctx context.Context, user *UserIdentity) {
	data, _ := json.Marshal(user)
	f.Sessions.Put(ctx, SessionKeyUser, string(data))
	f.Sessions.Put(ctx, SessionKeyUserType, string(user.Role))
}

func (f *Flow) pending(ctx context.Context) (PendingRegistration, bool) {
	raw, ok := f.Sessions.Get(ctx, SessionKeyPending)
	if !ok {
		return PendingRegistration{}, false
	}
	var p PendingRegistration
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Email == "" {
		return PendingRegistration{}, false
	}
	return p, true
}
