package ayurauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Canned identity used for demo social sign-in, mirroring the marketing
// site's demo account.
var demoSocialIdentity = UserIdentity{
	ID:            "demo-user-123",
	DisplayName:   "Demo User (Google)",
	Email:         "demo@ayursutra.com",
	PhotoURL:      "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face",
	EmailVerified: true,
	Provider:      "google.com",
}

// DemoBackend simulates the identity provider locally: accounts in an
// AccountStore, the live session in the SessionStore. It must be
// observationally identical to the REST backend - same transitions,
// same error categories - so the flow tests run unchanged against
// both.
//
// The backend keeps no principal state of its own. The session lives
// entirely in the SessionStore, whose context scoping decides whose
// session a call sees; a single backend instance serves every client.
type DemoBackend struct {
	Accounts AccountStore
	Sessions SessionStore

	// JWTSecretKey signs the local session token so the marker cookie
	// carries a non-empty, verifiable value even without a provider.
	JWTSecretKey string
	JwtIssuer    string
}

func NewDemoBackend(accounts AccountStore, sessions SessionStore, jwtSecret string) *DemoBackend {
	if jwtSecret == "" {
		jwtSecret = "ayursutra-demo-secret"
	}
	return &DemoBackend{
		Accounts:     accounts,
		Sessions:     sessions,
		JWTSecretKey: jwtSecret,
		JwtIssuer:    "AyurSutra-Demo",
	}
}

func (b *DemoBackend) Configured() bool { return false }

func (b *DemoBackend) SignIn(ctx context.Context, email, password string) (*UserIdentity, error) {
	account, err := b.Accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, NewAuthError(ErrCodeInvalidCreds, "Invalid email or password. Please try again.", "password")
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, NewAuthError(ErrCodeInvalidCreds, "Invalid email or password. Please try again.", "password")
	}

	user := account.Identity()
	user.Token = b.mintToken(user)
	b.setCurrent(ctx, user)
	return user, nil
}

func (b *DemoBackend) SignInWithProvider(ctx context.Context, _ map[string]any) (*UserIdentity, error) {
	user := demoSocialIdentity
	user.Token = b.mintToken(&user)
	b.setCurrent(ctx, &user)
	return &user, nil
}

func (b *DemoBackend) SignUp(ctx context.Context, email, password string) (*UserIdentity, error) {
	email = NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  DisplayNameFromEmail(email),
		PasswordHash: string(hash),
		Verified:     false,
		Role:         RolePatient,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := b.Accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, NewAuthError(ErrCodeEmailExists, "An account with this email already exists.", "email")
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}
	// No session: the account stays signed out until verification.
	return account.Identity(), nil
}

func (b *DemoBackend) CompleteVerification(ctx context.Context, email string, role Role) (*UserIdentity, error) {
	email = NormalizeEmail(email)
	if err := b.Accounts.MarkVerified(ctx, email); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, NewAuthError(ErrCodeNoPendingCode, "No account found for this email.", "email")
		}
		return nil, fmt.Errorf("marking verified: %w", err)
	}
	if err := b.Accounts.SetRole(ctx, email, role); err != nil {
		slog.Warn("error persisting role", "err", err)
	}
	account, err := b.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("reloading account: %w", err)
	}

	user := account.Identity()
	user.Token = b.mintToken(user)
	b.setCurrent(ctx, user)
	return user, nil
}

func (b *DemoBackend) SignOut(ctx context.Context) error {
	b.Sessions.Delete(ctx, SessionKeyUser)
	return nil
}

func (b *DemoBackend) CurrentSession(ctx context.Context) (*UserIdentity, error) {
	// The persisted session is authoritative, the way the browser app
	// restores its demo user from local storage.
	raw, ok := b.Sessions.Get(ctx, SessionKeyUser)
	if !ok {
		return nil, nil
	}
	var user UserIdentity
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		slog.Warn("discarding unreadable persisted session", "err", err)
		b.Sessions.Delete(ctx, SessionKeyUser)
		return nil, nil
	}
	if user.Provider == "password" {
		// Re-check against the account table; a stale session for a
		// deleted or unverified account never restores.
		account, err := b.Accounts.GetByEmail(ctx, user.Email)
		if err != nil || !account.Verified {
			b.Sessions.Delete(ctx, SessionKeyUser)
			return nil, nil
		}
	}
	user.Token = b.mintToken(&user)
	return &user, nil
}

// VerifyToken checks a marker token minted by this backend. Installed
// as the RouteGuard hook in demo deployments that want more than the
// presence check.
func (b *DemoBackend) VerifyToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(b.JWTSecretKey), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

func (b *DemoBackend) setCurrent(ctx context.Context, user *UserIdentity) {
	data, _ := json.Marshal(user)
	b.Sessions.Put(ctx, SessionKeyUser, string(data))
}

func (b *DemoBackend) mintToken(user *UserIdentity) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"iss": b.JwtIssuer,
		"aud": string(user.Role),
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(b.JWTSecretKey))
	if err != nil {
		slog.Warn("error signing demo token", "err", err)
		return "demo-token"
	}
	return signed
}
