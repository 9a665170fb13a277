package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultRequestURI = "http://localhost"

// Client talks to an Identity Toolkit style REST API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetQueryParam("key", apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: http, logger: logger}
}

type credentialsRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

type signInResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"users"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Principal, error) {
	return c.signIn(ctx, "/v1/accounts:signInWithPassword", credentialsRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	})
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Principal, error) {
	return c.signIn(ctx, "/v1/accounts:signUp", credentialsRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	})
}

// SignInWithIdP exchanges a federated provider's ID token (for example a
// Google ID token with providerID "google.com") for a session.
func (c *Client) SignInWithIdP(ctx context.Context, providerID, credential string) (*Principal, error) {
	postBody := url.Values{"id_token": {credential}, "providerId": {providerID}}.Encode()
	return c.signIn(ctx, "/v1/accounts:signInWithIdp", idpRequest{
		PostBody:            postBody,
		RequestURI:          defaultRequestURI,
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	})
}

func (c *Client) Verify(ctx context.Context, idToken string) (*Principal, error) {
	if idToken == "" {
		return nil, ErrUnauthenticated
	}

	var out lookupResponse
	if err := c.post(ctx, "/v1/accounts:lookup", map[string]string{"idToken": idToken}, &out); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return nil, ErrUnauthenticated
	}

	u := out.Users[0]
	return &Principal{UID: u.LocalID, Email: u.Email, DisplayName: u.DisplayName, IDToken: idToken}, nil
}

func (c *Client) signIn(ctx context.Context, endpoint string, body any) (*Principal, error) {
	var out signInResponse
	if err := c.post(ctx, endpoint, body, &out); err != nil {
		return nil, err
	}
	return &Principal{UID: out.LocalID, Email: out.Email, DisplayName: out.DisplayName, IDToken: out.IDToken}, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, result any) error {
	var failure errorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&failure).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("failed to call identity provider: %w", err)
	}

	if resp.IsError() {
		if failure.Error.Message == "" {
			c.logger.Error("identity provider returned unexpected error", "status", resp.StatusCode(), "endpoint", endpoint)
			return fmt.Errorf("identity provider returned status %d", resp.StatusCode())
		}
		return parseAuthError(failure.Error.Message)
	}
	return nil
}

// parseAuthError splits provider messages of the form "CODE : detail".
func parseAuthError(message string) *AuthError {
	code, detail, found := strings.Cut(message, " : ")
	if !found {
		return &AuthError{Code: strings.TrimSpace(message), Message: strings.TrimSpace(message)}
	}
	return &AuthError{Code: strings.TrimSpace(code), Message: strings.TrimSpace(detail)}
}
