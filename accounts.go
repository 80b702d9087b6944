package ayurauth

import (
	"context"
	"errors"
	"time"
)

// Account is a demo-mode user record. In provider mode accounts live
// with the identity provider and this store is not consulted.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	PasswordHash string    `json:"-"`
	Verified     bool      `json:"verified"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity converts the stored account to the principal shape the flow
// hands out.
func (a *Account) Identity() *UserIdentity {
	return &UserIdentity{
		ID:            a.ID,
		DisplayName:   a.DisplayName,
		Email:         a.Email,
		PhotoURL:      a.PhotoURL,
		EmailVerified: a.Verified,
		Role:          a.Role,
		Provider:      "password",
	}
}

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("email already registered")
)

// AccountStore persists demo-mode accounts. Implementations exist in
// memory and on GORM/SQLite.
type AccountStore interface {
	// Create inserts a new account. Returns ErrAccountExists when the
	// email is taken.
	Create(ctx context.Context, account *Account) error

	// GetByEmail returns the account for email, or ErrAccountNotFound.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// MarkVerified flips the verified flag for email.
	MarkVerified(ctx context.Context, email string) error

	// SetRole persists the role chosen during registration.
	SetRole(ctx context.Context, email string, role Role) error
}
