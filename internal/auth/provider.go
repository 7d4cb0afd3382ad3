// Package auth owns the authentication lifecycle: the credential provider
// contract, the session state machine, and a bcrypt-backed in-memory
// provider for tests and single-box deployments.
package auth

import (
	"context"
	"strings"
)

// User is the signed-in identity handle returned by a provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider abstracts the external authentication service. Subscribe fires
// the callback with the current user (nil when signed out) immediately and
// again on every session change; the subscription stays active until the
// returned cancel function runs.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (User, error)
	SignIn(ctx context.Context, email, password string) (User, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(user *User)) (cancel func())
}

// CleanMessage strips a provider's known message prefix so the remaining
// text reads as a plain sentence. The error text is otherwise passed through
// untouched.
func CleanMessage(err error, prefix string) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if prefix != "" {
		msg = strings.TrimPrefix(msg, prefix)
	}
	return msg
}
