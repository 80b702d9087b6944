package ayurauth

import (
	"context"
	"regexp"
	"strings"
)

// Role distinguishes the two kinds of principals the booking app knows
// about.
type Role string

const (
	RolePatient   Role = "patient"
	RoleTherapist Role = "therapist"
)

// ParseRole normalizes a role string, defaulting to patient.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleTherapist)) {
		return RoleTherapist
	}
	return RolePatient
}

// UserIdentity is the signed-in principal as seen by the rest of the
// app. Provider records which channel produced it ("password",
// "google.com", "demo").
type UserIdentity struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	PhotoURL      string `json:"photo_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Role          Role   `json:"role"`
	Provider      string `json:"provider"`

	// Token is the session token the marker cookie carries: the
	// provider-issued token in provider mode, a locally signed JWT in
	// demo mode. Never serialized to clients.
	Token string `json:"-"`
}

// Trusted reports whether this identity may be treated as
// authenticated for routing purposes: either the email is verified or
// it came from a trusted social provider.
func (u *UserIdentity) Trusted() bool {
	if u == nil {
		return false
	}
	return u.EmailVerified || u.Provider == "google.com"
}

// IdentityBackend is the capability interface over the identity
// provider. One implementation talks to the real provider over REST,
// the other simulates it locally; the Flow never branches on which one
// it holds.
type IdentityBackend interface {
	// SignIn authenticates an email/password pair. The returned
	// identity may be unverified; the Flow decides what to do then.
	SignIn(ctx context.Context, email, password string) (*UserIdentity, error)

	// SignInWithProvider completes a social sign-in. In provider mode
	// userInfo is the OAuth userinfo payload from the callback; the
	// demo implementation ignores it and returns its canned identity.
	SignInWithProvider(ctx context.Context, userInfo map[string]any) (*UserIdentity, error)

	// SignUp creates the account and leaves it signed out. Verification
	// is mandatory before any session exists for it.
	SignUp(ctx context.Context, email, password string) (*UserIdentity, error)

	// CompleteVerification marks the email verified, persists the role
	// chosen at sign-up where the backend can hold it, and establishes
	// a session, returning the now-verified identity.
	CompleteVerification(ctx context.Context, email string, role Role) (*UserIdentity, error)

	// SignOut tears down the current session. Calling it with no
	// session is a no-op.
	SignOut(ctx context.Context) error

	// CurrentSession returns the live session's identity, or nil when
	// there is none.
	CurrentSession(ctx context.Context) (*UserIdentity, error)

	// Configured reports whether a real provider is wired up.
	Configured() bool
}

// SessionStore is the local session-state abstraction: a small string
// keyed table scoped to one principal. Implementations back it with
// process memory, a JSON file, or a server-side session manager.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// Session store keys used by the Flow and the backends.
const (
	SessionKeyUser     = "demo-user"
	SessionKeyUserType = "user-type"
	SessionKeyPending  = "pending-verification"
	SessionKeyToken    = "provider-token"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// NormalizeEmail lower-cases and trims an email address so map keys and
// provider calls agree on the same spelling.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayNameFromEmail derives the default display name the way the
// app shows it before a profile exists.
func DisplayNameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
