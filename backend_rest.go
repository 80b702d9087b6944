package ayurauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RESTBackend adapts the hosted identity provider's accounts API. It
// is a thin pass-through: the provider owns credentials, verification
// flags and tokens; this adapter only maps requests and error strings.
//
// The provider-issued token and the signed-in identity live in the
// SessionStore under the caller's context, never on the backend
// itself, so one instance serves every client of the process.
type RESTBackend struct {
	// BaseURL is the provider's API root, e.g.
	// https://identity.example.com/v1.
	BaseURL string

	// APIKey authenticates this app to the provider.
	APIKey string

	// Sessions carries the per-principal token and identity.
	Sessions SessionStore

	Client *http.Client
}

func NewRESTBackend(baseURL, apiKey string, sessions SessionStore) *RESTBackend {
	return &RESTBackend{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		APIKey:   apiKey,
		Sessions: sessions,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *RESTBackend) Configured() bool {
	return b.BaseURL != "" && b.APIKey != ""
}

// accountPayload is the provider's account representation, shared by
// the sign-in, sign-up and lookup responses.
type accountPayload struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
}

func (b *RESTBackend) SignIn(ctx context.Context, email, password string) (*UserIdentity, error) {
	var out accountPayload
	err := b.call(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             NormalizeEmail(email),
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}

	// The sign-in response does not carry the verified flag reliably;
	// look the account up with the fresh token.
	var lookup struct {
		Users []accountPayload `json:"users"`
	}
	if err := b.call(ctx, "accounts:lookup", map[string]any{"idToken": out.IDToken}, &lookup); err != nil {
		return nil, err
	}
	if len(lookup.Users) > 0 {
		out.EmailVerified = lookup.Users[0].EmailVerified
		if out.DisplayName == "" {
			out.DisplayName = lookup.Users[0].DisplayName
		}
		if out.PhotoURL == "" {
			out.PhotoURL = lookup.Users[0].PhotoURL
		}
	}

	user := b.identityFrom(&out, "password")
	b.setCurrent(ctx, user, out.IDToken)
	return user, nil
}

func (b *RESTBackend) SignInWithProvider(ctx context.Context, userInfo map[string]any) (*UserIdentity, error) {
	if userInfo == nil {
		return nil, NewAuthError(ErrCodeProviderUnavailable, "Social sign-in requires the OAuth redirect flow.", "")
	}
	user := &UserIdentity{
		ID:            str(userInfo["sub"]),
		DisplayName:   str(userInfo["name"]),
		Email:         NormalizeEmail(str(userInfo["email"])),
		PhotoURL:      str(userInfo["picture"]),
		EmailVerified: true,
		Provider:      "google.com",
		Token:         str(userInfo["id_token"]),
	}
	if user.ID == "" {
		user.ID = str(userInfo["id"])
	}
	if user.DisplayName == "" {
		user.DisplayName = DisplayNameFromEmail(user.Email)
	}
	b.setCurrent(ctx, user, user.Token)
	return user, nil
}

func (b *RESTBackend) SignUp(ctx context.Context, email, password string) (*UserIdentity, error) {
	var out accountPayload
	err := b.call(ctx, "accounts:signUp", map[string]any{
		"email":             NormalizeEmail(email),
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	// No setCurrent here: the fresh account must not hold a session
	// until its email is verified.
	return b.identityFrom(&out, "password"), nil
}

func (b *RESTBackend) CompleteVerification(ctx context.Context, email string, _ Role) (*UserIdentity, error) {
	// Role metadata stays client-side; the provider has no field for
	// it pre- or post-verification.
	var out accountPayload
	err := b.call(ctx, "accounts:update", map[string]any{
		"email":             NormalizeEmail(email),
		"emailVerified":     true,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	out.EmailVerified = true
	user := b.identityFrom(&out, "password")
	b.setCurrent(ctx, user, out.IDToken)
	return user, nil
}

func (b *RESTBackend) SignOut(ctx context.Context) error {
	token, _ := b.Sessions.Get(ctx, SessionKeyToken)
	b.Sessions.Delete(ctx, SessionKeyToken)
	b.Sessions.Delete(ctx, SessionKeyUser)
	if token == "" {
		return nil
	}
	// Best effort: the provider invalidates the token server-side.
	var out struct{}
	if err := b.call(ctx, "accounts:signOut", map[string]any{"idToken": token}, &out); err != nil {
		slog.Warn("provider sign-out failed", "err", err)
	}
	return nil
}

func (b *RESTBackend) CurrentSession(ctx context.Context) (*UserIdentity, error) {
	persisted := b.persistedUser(ctx)

	// Social identities are vouched for by the OAuth redirect; their
	// token is not an accounts-API token and cannot be looked up.
	if persisted != nil && persisted.Provider != "password" {
		persisted.Token, _ = b.Sessions.Get(ctx, SessionKeyToken)
		return persisted, nil
	}

	token, _ := b.Sessions.Get(ctx, SessionKeyToken)
	if token == "" {
		return nil, nil
	}
	var lookup struct {
		Users []accountPayload `json:"users"`
	}
	if err := b.call(ctx, "accounts:lookup", map[string]any{"idToken": token}, &lookup); err != nil {
		return nil, err
	}
	if len(lookup.Users) == 0 {
		return nil, nil
	}
	u := lookup.Users[0]
	u.IDToken = token
	return b.identityFrom(&u, "password"), nil
}

func (b *RESTBackend) persistedUser(ctx context.Context) *UserIdentity {
	raw, ok := b.Sessions.Get(ctx, SessionKeyUser)
	if !ok {
		return nil
	}
	var user UserIdentity
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}

func (b *RESTBackend) identityFrom(p *accountPayload, provider string) *UserIdentity {
	name := p.DisplayName
	if name == "" {
		name = DisplayNameFromEmail(p.Email)
	}
	return &UserIdentity{
		ID:            p.LocalID,
		DisplayName:   name,
		Email:         p.Email,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
		Role:          RolePatient,
		Provider:      provider,
		Token:         p.IDToken,
	}
}

func (b *RESTBackend) setCurrent(ctx context.Context, user *UserIdentity, token string) {
	data, _ := json.Marshal(user)
	b.Sessions.Put(ctx, SessionKeyUser, string(data))
	b.Sessions.Put(ctx, SessionKeyToken, token)
}

// call posts a JSON body to a provider endpoint and decodes the
// response, translating provider error strings into the local
// taxonomy.
func (b *RESTBackend) call(ctx context.Context, endpoint string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	url := fmt.Sprintf("%s/%s?key=%s", b.BaseURL, endpoint, b.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return NewAuthError(ErrCodeProviderUnavailable, "Authentication service unreachable. Please try again.", "")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return NewAuthError(ErrCodeProviderUnavailable, "Unexpected response from authentication service.", "")
		}
		return providerError(apiErr.Error.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAuthError(ErrCodeProviderUnavailable, "Unexpected response from authentication service.", "")
	}
	return nil
}

// providerError maps the provider's error strings to error categories.
// Raw provider messages never propagate to callers.
func providerError(message string) *AuthError {
	code := message
	if i := strings.IndexByte(code, ' '); i > 0 {
		code = code[:i]
	}
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return NewAuthError(ErrCodeInvalidCreds, "Invalid email or password. Please try again.", "password")
	case "EMAIL_EXISTS":
		return NewAuthError(ErrCodeEmailExists, "An account with this email already exists.", "email")
	case "INVALID_EMAIL":
		return NewAuthError(ErrCodeInvalidEmail, "Invalid email format", "email")
	case "WEAK_PASSWORD":
		return NewAuthError(ErrCodeWeakPassword, "Password must be at least 6 characters", "password")
	default:
		return NewAuthError(ErrCodeProviderUnavailable, "Authentication service failed. Please try again.", "")
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
