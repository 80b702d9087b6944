package ayurauth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeLength is the fixed width of a verification code.
const CodeLength = 6

// CodeTTL is how long an issued code stays valid.
const CodeTTL = 10 * time.Minute

// VerificationRecord is one pending email-verification challenge. At
// most one live record exists per email; issuing again supersedes it.
type VerificationRecord struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record's expiry has passed at t.
func (r *VerificationRecord) Expired(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// CodeChannel issues and validates verification codes. The local
// implementation keeps codes in a CodeStore and surfaces them on the
// console; the remote one calls the verification endpoint service.
type CodeChannel interface {
	// Issue generates, stores and dispatches a fresh code for email,
	// superseding any earlier unconsumed code.
	Issue(ctx context.Context, email string) error

	// Validate checks a submitted code. It returns nil on success (the
	// record is consumed), or an *AuthError with one of
	// ErrCodeInvalidCode, ErrCodeExpiredCode, ErrCodeNoPendingCode.
	// An expired record is deleted as a side effect of the check.
	Validate(ctx context.Context, email, code string) error
}

// GenerateCode returns a uniformly random six-digit decimal string.
// Leading zeros are preserved; comparison is always exact string
// equality.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidCodeFormat reports whether code is exactly six ASCII digits.
func ValidCodeFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CodeStore is the storage half of a code channel: it owns the
// per-email record table. Implementations exist in memory and on
// Redis; both check expiry lazily at validation time.
type CodeStore interface {
	// Issue generates and stores a fresh record for email, superseding
	// any previous one, and returns it so the caller can dispatch the
	// code.
	Issue(ctx context.Context, email string) (*VerificationRecord, error)

	// Validate has the CodeChannel.Validate contract: nil on success
	// with the record consumed, otherwise a categorized *AuthError.
	Validate(ctx context.Context, email, code string) error
}

// CodeSender dispatches an issued code to its owner. Real delivery is
// email; the console sender makes codes discoverable when no mail
// service is configured.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
}
