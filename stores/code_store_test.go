package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	oa "github.com/ayursutra/ayurauth"
)

func wantAuthCode(t *testing.T, err error, want string) {
	t.Helper()
	var ae *oa.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if ae.Code != want {
		t.Errorf("error code = %s, want %s", ae.Code, want)
	}
}

func TestMemoryCodeStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()

	// Nothing issued yet.
	err := store.Validate(ctx, "a@example.com", "123456")
	wantAuthCode(t, err, oa.ErrCodeNoPendingCode)

	rec, err := store.Issue(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !oa.ValidCodeFormat(rec.Code) {
		t.Fatalf("issued code %q is not six digits", rec.Code)
	}

	wrong := "000000"
	if wrong == rec.Code {
		wrong = "000001"
	}
	wantAuthCode(t, store.Validate(ctx, "a@example.com", wrong), oa.ErrCodeInvalidCode)

	// A failed attempt does not consume the record.
	if err := store.Validate(ctx, "a@example.com", rec.Code); err != nil {
		t.Fatalf("validate after failed attempt: %v", err)
	}

	// A successful one does.
	err = store.Validate(ctx, "a@example.com", rec.Code)
	wantAuthCode(t, err, oa.ErrCodeNoPendingCode)
}

func TestMemoryCodeStoreSupersede(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()

	first, err := store.Issue(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := store.Issue(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}

	if first.Code != second.Code {
		wantAuthCode(t, store.Validate(ctx, "b@example.com", first.Code), oa.ErrCodeInvalidCode)
	}
	if err := store.Validate(ctx, "b@example.com", second.Code); err != nil {
		t.Fatalf("validate current code: %v", err)
	}
}

func TestMemoryCodeStoreLazyExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec, err := store.Issue(ctx, "c@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Just inside the TTL the code is still good, but do not consume
	// it: advance past expiry instead.
	now = now.Add(oa.CodeTTL + time.Minute)
	err = store.Validate(ctx, "c@example.com", rec.Code)
	wantAuthCode(t, err, oa.ErrCodeExpiredCode)

	// The expired record was deleted during the check.
	err = store.Validate(ctx, "c@example.com", rec.Code)
	wantAuthCode(t, err, oa.ErrCodeNoPendingCode)
	if _, ok := store.Pending("c@example.com"); ok {
		t.Error("expired record still present")
	}
}

func TestMemoryCodeStoreIsolatesEmails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCodeStore()

	recA, _ := store.Issue(ctx, "a@example.com")
	recB, _ := store.Issue(ctx, "b@example.com")

	if err := store.Validate(ctx, "a@example.com", recA.Code); err != nil {
		t.Fatalf("validate a: %v", err)
	}
	// Consuming a's record leaves b's intact.
	if err := store.Validate(ctx, "b@example.com", recB.Code); err != nil {
		t.Fatalf("validate b: %v", err)
	}
}
