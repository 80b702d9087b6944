package ayurauth

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the auth flow. Every error a handler returns
// to the UI carries one of these so clients can branch on category
// rather than on message text.
const (
	ErrCodeInvalidCreds        = "invalid_credentials"
	ErrCodeUnverifiedEmail     = "unverified_email"
	ErrCodePasswordMismatch    = "password_mismatch"
	ErrCodeWeakPassword        = "weak_password"
	ErrCodeInvalidCode         = "invalid_code"
	ErrCodeExpiredCode         = "expired_code"
	ErrCodeNoPendingCode       = "no_pending_verification"
	ErrCodeProviderUnavailable = "provider_unavailable"
	ErrCodeMissingField        = "missing_field"
	ErrCodeInvalidEmail        = "invalid_email"
	ErrCodeEmailExists         = "email_exists"
)

// AuthError is the single error type that crosses the controller
// boundary. Title/Description are the user-facing pair; Code is the
// stable category; Field names the offending input when known.
type AuthError struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Field       string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return e.Title
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

// NewAuthError builds an AuthError with a default title derived from
// the code.
func NewAuthError(code, description, field string) *AuthError {
	return &AuthError{
		Code:        code,
		Title:       titleForCode(code),
		Description: description,
		Field:       field,
	}
}

func titleForCode(code string) string {
	switch code {
	case ErrCodeInvalidCreds:
		return "Sign in failed"
	case ErrCodeUnverifiedEmail:
		return "Email not verified"
	case ErrCodePasswordMismatch:
		return "Passwords don't match"
	case ErrCodeWeakPassword:
		return "Password too short"
	case ErrCodeInvalidCode:
		return "Invalid verification code"
	case ErrCodeExpiredCode:
		return "Verification code expired"
	case ErrCodeNoPendingCode:
		return "No pending verification"
	case ErrCodeProviderUnavailable:
		return "Service unavailable"
	case ErrCodeEmailExists:
		return "Email already registered"
	case ErrCodeInvalidEmail:
		return "Invalid email"
	case ErrCodeMissingField:
		return "Missing field"
	default:
		return "Authentication error"
	}
}

// AsAuthError returns err as an *AuthError, wrapping unknown errors as
// provider failures so raw provider errors never reach the UI layer.
func AsAuthError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAuthError(ErrCodeProviderUnavailable, "Something went wrong. Please try again.", "")
}

// ErrorStatusCode maps an error category to the HTTP status the
// handlers respond with.
func ErrorStatusCode(code string) int {
	switch code {
	case ErrCodeInvalidCreds, ErrCodeUnverifiedEmail:
		return http.StatusUnauthorized
	case ErrCodeNoPendingCode:
		return http.StatusNotFound
	case ErrCodeProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
