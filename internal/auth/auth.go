// Package auth delegates sign-in and token verification to an external
// identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no usable token.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthError is a rejection reported by the identity provider, such as
// EMAIL_NOT_FOUND or INVALID_PASSWORD.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" || e.Message == e.Code {
		return "auth: " + e.Code
	}
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Message)
}

// Principal is a signed-in user.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	IDToken     string `json:"idToken,omitempty"`
}

// Authenticator turns a bearer token into a Principal.
type Authenticator interface {
	Verify(ctx context.Context, idToken string) (*Principal, error)
}

// Provider is the full identity-provider surface used by the HTTP layer.
type Provider interface {
	Authenticator
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SignUp(ctx context.Context, email, password string) (*Principal, error)
	SignInWithIdP(ctx context.Context, providerID, credential string) (*Principal, error)
}

// Admins is the set of administrator e-mail addresses.
type Admins map[string]struct{}

// ParseAdmins reads a comma-separated list of e-mail addresses.
func ParseAdmins(list string) Admins {
	admins := Admins{}
	for _, email := range strings.Split(list, ",") {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	return admins
}

func (a Admins) IsAdmin(p *Principal) bool {
	if p == nil {
		return false
	}
	_, ok := a[strings.ToLower(p.Email)]
	return ok
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
