package ayurauth

import (
	"context"
	"fmt"
)

// LocalCodeChannel is the demo-mode code channel: codes live in a
// CodeStore owned by this process and dispatch goes through the
// configured sender (console by default, so the code is observable).
type LocalCodeChannel struct {
	Store  CodeStore
	Sender CodeSender
}

func NewLocalCodeChannel(store CodeStore, sender CodeSender) *LocalCodeChannel {
	if sender == nil {
		sender = &ConsoleCodeSender{}
	}
	return &LocalCodeChannel{Store: store, Sender: sender}
}

func (c *LocalCodeChannel) Issue(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}
	rec, err := c.Store.Issue(ctx, email)
	if err != nil {
		return fmt.Errorf("issuing verification code: %w", err)
	}
	if err := c.Sender.SendVerificationCode(ctx, email, rec.Code, rec.ExpiresAt); err != nil {
		return NewAuthError(ErrCodeProviderUnavailable, "Failed to send verification code. Please try again.", "")
	}
	return nil
}

func (c *LocalCodeChannel) Validate(ctx context.Context, email, code string) error {
	return c.Store.Validate(ctx, NormalizeEmail(email), code)
}
