package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		Email: "ops@vhlabs.io",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "3f8b6c1e-0000-4000-8000-000000000001",
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier(testSecret, "authenticated")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid with bearer prefix", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())
		u, err := v.Verify(ctx, "Bearer "+tok)
		require.NoError(t, err)
		assert.Equal(t, "3f8b6c1e-0000-4000-8000-000000000001", u.ID)
		assert.Equal(t, "ops@vhlabs.io", u.Email)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte("another-secret-of-sufficient-length!!"), validClaims()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none rejected", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())
		_, err := v.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := validClaims()
		c.Audience = jwt.ClaimStrings{"anon"}
		_, err := v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := validClaims()
		c.Subject = ""
		_, err := v.Verify(ctx, sign(t, jwt.SigningMethodHS256, []byte(testSecret), c))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.Verify(ctx, "  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	_, err = NewJWTVerifier("", "")
	assert.Error(t, err)
}

// fakeProvider returns err from every call and counts calls.
type fakeProvider struct {
	err   error
	calls int
}

func (f *fakeProvider) SignIn(context.Context, string, string) (*Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Session{AccessToken: "at", User: User{ID: "u1"}}, nil
}

func (f *fakeProvider) SignOut(context.Context, string) error {
	f.calls++
	return f.err
}

func (f *fakeProvider) User(_ context.Context, tok string) (*User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &User{ID: "u-" + tok}, nil
}

func (f *fakeProvider) SignUp(_ context.Context, email, _ string, _ map[string]any) (*User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &User{ID: "new", Email: email}, nil
}

func testBreakerConfig() BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	fp := &fakeProvider{err: ErrInvalidCredentials}
	b := NewBreaker(fp, testBreakerConfig(), zerolog.Nop())

	for i := 0; i < 10; i++ {
		_, err := b.SignIn(context.Background(), "a@b.co", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 10, fp.calls)
}

func TestBreaker_BackendFailuresTrip(t *testing.T) {
	fp := &fakeProvider{err: errors.New("dial tcp: connection refused")}
	b := NewBreaker(fp, testBreakerConfig(), zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.User(ctx, "tok")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.User(ctx, "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, fp.calls, "open breaker must not reach the provider")
}

func TestBreaker_PassesThroughResults(t *testing.T) {
	fp := &fakeProvider{}
	b := NewBreaker(fp, testBreakerConfig(), zerolog.Nop())
	ctx := context.Background()

	s, err := b.SignIn(ctx, "a@b.co", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)

	u, err := b.SignUp(ctx, "new@b.co", "pw", map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, "new@b.co", u.Email)

	require.NoError(t, b.SignOut(ctx, "at"))

	u, err = RemoteVerifier{Provider: b}.Verify(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u-abc", u.ID)

	_, err = RemoteVerifier{Provider: b}.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestClassify(t *testing.T) {
	err := classify(errors.New(`response status code 400: {"error":"invalid_grant","error_description":"Invalid login credentials"}`), ErrInvalidCredentials)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid login credentials")

	err = classify(errors.New("response status code 503: upstream"), ErrInvalidToken)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUnconfigured(t *testing.T) {
	var p Provider = Unconfigured{}
	ctx := context.Background()

	_, err := p.SignIn(ctx, "ops@vhlabs.io", "pw")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, p.SignOut(ctx, "tok"), ErrUnavailable)
	_, err = p.User(ctx, "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = p.SignUp(ctx, "ops@vhlabs.io", "pw", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}
