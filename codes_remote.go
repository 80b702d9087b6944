package ayurauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Wire error codes spoken by the verification endpoint service.
const (
	WireCodeInvalidArgument   = "invalid-argument"
	WireCodeNotFound          = "not-found"
	WireCodeDeadlineExceeded  = "deadline-exceeded"
	WireCodeResourceExhausted = "resource-exhausted"
	WireCodeInternal          = "internal"
)

// RemoteCodeChannel talks to the verification dispatch/confirm
// endpoints (provider mode). Wire error codes are translated back into
// the local taxonomy so both channel implementations fail identically.
type RemoteCodeChannel struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteCodeChannel(baseURL string) *RemoteCodeChannel {
	return &RemoteCodeChannel{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *RemoteCodeChannel) Issue(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	return c.post(ctx, "/verification/send", map[string]string{"email": email}, true)
}

func (c *RemoteCodeChannel) Validate(ctx context.Context, email, code string) error {
	return c.post(ctx, "/verification/confirm", map[string]string{
		"email": NormalizeEmail(email),
		"code":  code,
	}, false)
}

// issuing distinguishes send failures from confirm failures: on send
// there is no code yet, so an invalid-argument rejection is about the
// email, not the code.
func (c *RemoteCodeChannel) post(ctx context.Context, path string, payload map[string]string, issuing bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return NewAuthError(ErrCodeProviderUnavailable, "Verification service unreachable. Please try again.", "")
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return NewAuthError(ErrCodeProviderUnavailable, "Unexpected response from verification service.", "")
	}
	if resp.StatusCode == http.StatusOK && result.Success {
		return nil
	}
	return wireToAuthError(result.Code, result.Error, issuing)
}

func wireToAuthError(wireCode, message string, issuing bool) *AuthError {
	switch wireCode {
	case WireCodeInvalidArgument:
		if issuing {
			if message == "" {
				message = "Invalid email address."
			}
			return NewAuthError(ErrCodeInvalidEmail, message, "email")
		}
		if message == "" {
			message = "Invalid verification code. Please try again."
		}
		return NewAuthError(ErrCodeInvalidCode, message, "code")
	case WireCodeNotFound:
		return NewAuthError(ErrCodeNoPendingCode, "No verification code found for this email", "email")
	case WireCodeDeadlineExceeded:
		return NewAuthError(ErrCodeExpiredCode, "Verification code has expired. Please request a new one.", "code")
	default:
		// internal, resource-exhausted and anything unrecognized are
		// retry-safe failures, distinct from invalid input.
		return NewAuthError(ErrCodeProviderUnavailable, "Verification service failed. Please try again.", "")
	}
}
