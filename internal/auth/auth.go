// Package auth authenticates dashboard users against Supabase GoTrue.
//
// Sign-in, sign-out and sign-up go through a Provider (the hosted GoTrue
// API behind a circuit breaker). Bearer tokens on API requests are checked
// by a Verifier: locally with the project's JWT secret when one is
// configured, otherwise by asking GoTrue for the token's user.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing authentication token")
	// ErrInvalidToken means the token is malformed, forged or revoked.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the token was valid but has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidCredentials means GoTrue rejected an email/password pair.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrUnavailable means the auth backend is unreachable or the breaker
	// is open.
	ErrUnavailable = errors.New("auth service unavailable")
)

// User is the authenticated principal.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// Session is the result of a successful password sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Provider is the remote identity backend.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*User, error)
	SignUp(ctx context.Context, email, password string, data map[string]any) (*User, error)
}

// Verifier resolves a bearer token to its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// RemoteVerifier verifies tokens by asking the Provider for their user.
type RemoteVerifier struct {
	Provider Provider
}

// Verify implements Verifier.
func (v RemoteVerifier) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	return v.Provider.User(ctx, token)
}

// Unconfigured is the Provider used when no GoTrue project is configured
// (local JWT verification only, or auth disabled). Every call fails with
// ErrUnavailable.
type Unconfigured struct{}

func (Unconfigured) SignIn(context.Context, string, string) (*Session, error) {
	return nil, ErrUnavailable
}

func (Unconfigured) SignOut(context.Context, string) error { return ErrUnavailable }

func (Unconfigured) User(context.Context, string) (*User, error) { return nil, ErrUnavailable }

func (Unconfigured) SignUp(context.Context, string, string, map[string]any) (*User, error) {
	return nil, ErrUnavailable
}

// isClientError reports whether err is the caller's fault rather than a
// backend failure; such errors must not trip the breaker.
func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, context.Canceled)
}
