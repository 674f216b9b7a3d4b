package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/CachoMX/vhlabs/internal/auth"
)

// minPasswordLen matches GoTrue's default password policy.
const minPasswordLen = 6

// AuthService signs dashboard users in and out through the identity
// provider.
type AuthService struct {
	Provider auth.Provider
}

// Login exchanges an email and password for a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	return s.Provider.SignIn(ctx, email, password)
}

// Logout revokes the session behind accessToken.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Logout")
	defer span.End()

	if accessToken == "" {
		return auth.ErrMissingToken
	}
	return s.Provider.SignOut(ctx, accessToken)
}

// User returns the user that owns accessToken.
func (s *AuthService) User(ctx context.Context, accessToken string) (*auth.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "User")
	defer span.End()

	if accessToken == "" {
		return nil, auth.ErrMissingToken
	}
	return s.Provider.User(ctx, accessToken)
}

// SignUp registers a user with role stored in the user metadata.
func (s *AuthService) SignUp(ctx context.Context, email, password, role string) (*auth.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "SignUp",
		trace.WithAttributes(attribute.String("user.role", role)),
	)
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = "admin"
	}
	return s.Provider.SignUp(ctx, email, password, map[string]any{"role": role})
}
