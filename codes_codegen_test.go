package ayurauth_test

import (
	"testing"
	"time"

	oa "github.com/ayursutra/ayurauth"
)

func TestGenerateCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := oa.GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !oa.ValidCodeFormat(code) {
			t.Fatalf("generated code %q is not six ASCII digits", code)
		}
		seen[code] = true
	}
	// Uniform six-digit codes should not collapse to a handful of
	// values.
	if len(seen) < 150 {
		t.Errorf("only %d distinct codes in 200 draws", len(seen))
	}
}

func TestValidCodeFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"12 456", false},
		{"", false},
		{"１２３４５６", false}, // full-width digits are not ASCII digits
		{"٠١٢", false},      // three Arabic-Indic digits, six bytes
	}
	for _, tt := range tests {
		if got := oa.ValidCodeFormat(tt.code); got != tt.want {
			t.Errorf("ValidCodeFormat(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestVerificationRecordExpiry(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &oa.VerificationRecord{
		Email:     "a@example.com",
		Code:      "123456",
		ExpiresAt: issued.Add(oa.CodeTTL),
	}
	if rec.Expired(issued) {
		t.Error("fresh record reported expired")
	}
	if rec.Expired(issued.Add(oa.CodeTTL)) {
		t.Error("record expired exactly at the boundary")
	}
	if !rec.Expired(issued.Add(oa.CodeTTL + time.Second)) {
		t.Error("record not expired past TTL")
	}
}
