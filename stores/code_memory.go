package stores

import (
	"context"
	"sync"
	"time"

	oa "github.com/ayursutra/ayurauth"
)

// MemoryCodeStore keeps verification records in a process-local map.
// Each email's slot is overwritten wholesale on issue, so no record is
// ever merged; expiry is checked lazily at validation time only.
type MemoryCodeStore struct {
	mu      sync.Mutex
	records map[string]*oa.VerificationRecord

	// now is overridable in tests.
	now func() time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{
		records: make(map[string]*oa.VerificationRecord),
		now:     time.Now,
	}
}

func (s *MemoryCodeStore) Issue(_ context.Context, email string) (*oa.VerificationRecord, error) {
	code, err := oa.GenerateCode()
	if err != nil {
		return nil, err
	}
	rec := &oa.VerificationRecord{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(oa.CodeTTL),
	}
	s.mu.Lock()
	s.records[email] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *MemoryCodeStore) Validate(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return oa.NewAuthError(oa.ErrCodeNoPendingCode, "No verification code found for this email", "email")
	}
	if rec.Expired(s.now()) {
		delete(s.records, email)
		return oa.NewAuthError(oa.ErrCodeExpiredCode, "Verification code has expired. Please request a new one.", "code")
	}
	if rec.Code != code {
		return oa.NewAuthError(oa.ErrCodeInvalidCode, "Invalid verification code. Please try again.", "code")
	}
	delete(s.records, email)
	return nil
}

// Pending returns the live record for email, if any.
func (s *MemoryCodeStore) Pending(email string) (*oa.VerificationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	return rec, ok
}
