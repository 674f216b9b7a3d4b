package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// Supabase is a Provider backed by the hosted GoTrue API.
type Supabase struct {
	auth gotrue.Client
}

// NewSupabase builds a client for the project at url using its anon key.
func NewSupabase(url, anonKey string) (*Supabase, error) {
	client, err := supabase.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase client: %w", err)
	}
	return &Supabase{auth: client.Auth}, nil
}

// SignIn implements Provider using the password grant.
func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, classify(err, ErrInvalidCredentials)
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		User:         fromGoTrue(resp.User),
	}, nil
}

// SignOut implements Provider by revoking the session behind accessToken.
func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.auth.WithToken(accessToken).Logout(); err != nil {
		return classify(err, ErrInvalidToken)
	}
	return nil
}

// User implements Provider.
func (s *Supabase) User(ctx context.Context, accessToken string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.auth.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, classify(err, ErrInvalidToken)
	}
	u := fromGoTrue(resp.User)
	return &u, nil
}

// SignUp implements Provider. data becomes the user's metadata (the
// dashboard stores the operator role there).
func (s *Supabase) SignUp(ctx context.Context, email, password string, data map[string]any) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data:     data,
	})
	if err != nil {
		return nil, classify(err, ErrInvalidCredentials)
	}
	u := fromGoTrue(resp.User)
	return &u, nil
}

func fromGoTrue(u types.User) User {
	return User{
		ID:       u.ID.String(),
		Email:    u.Email,
		Role:     u.Role,
		Metadata: u.UserMetadata,
	}
}

// classify maps GoTrue's "response status code N: body" errors onto our
// sentinels while keeping the backend message. 4xx responses become
// clientErr; everything else is treated as the service being unavailable.
func classify(err error, clientErr error) error {
	msg := err.Error()
	for _, code := range []string{"400", "401", "403", "404", "422"} {
		if strings.Contains(msg, "status code "+code) {
			return fmt.Errorf("%w: %s", clientErr, msg)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, msg)
}
