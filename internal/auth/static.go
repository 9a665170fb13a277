package auth

import (
	"context"
	"strings"
)

// Static is a development Provider that trusts whatever it is given. A
// token is the user's e-mail address and sign-in never fails.
type Static struct{}

func (Static) Verify(_ context.Context, idToken string) (*Principal, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrUnauthenticated
	}
	return principalFor(idToken), nil
}

func (Static) SignIn(_ context.Context, email, _ string) (*Principal, error) {
	return principalFor(email), nil
}

func (Static) SignUp(_ context.Context, email, _ string) (*Principal, error) {
	return principalFor(email), nil
}

func (Static) SignInWithIdP(_ context.Context, providerID, credential string) (*Principal, error) {
	return principalFor(credential), nil
}

func principalFor(email string) *Principal {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = "dev@localhost"
	}
	return &Principal{UID: email, Email: email, IDToken: email}
}
