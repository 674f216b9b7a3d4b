package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/auth"
)

type stubVerifier struct {
	user *auth.User
	err  error
	seen string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*auth.User, error) {
	s.seen = token
	return s.user, s.err
}

func authRouter(opts AuthOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(Authenticate(opts))
	r.GET("/me", func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": u.Role})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		verifier *stubVerifier
		disabled bool
		status   int
		code     string
		userID   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "unauthorized", verifier: &stubVerifier{}},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, code: "unauthorized", verifier: &stubVerifier{}},
		{name: "expired", header: "Bearer t", verifier: &stubVerifier{err: auth.ErrExpiredToken}, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "backend down", header: "Bearer t", verifier: &stubVerifier{err: fmt.Errorf("verify: %w", auth.ErrUnavailable)}, status: http.StatusServiceUnavailable, code: "auth_unavailable"},
		{name: "valid", header: "bearer  tok-1 ", verifier: &stubVerifier{user: &auth.User{ID: "u1", Role: "editor"}}, status: http.StatusOK, userID: "u1"},
		{name: "disabled", disabled: true, status: http.StatusOK, userID: DevUserID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := AuthOptions{Disabled: tc.disabled}
			if tc.verifier != nil {
				opts.Verifier = tc.verifier
			}
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			authRouter(opts).ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if tc.code != "" {
				if body["code"] != tc.code {
					t.Fatalf("code = %v; want %s", body["code"], tc.code)
				}
				if body["request_id"] == "" {
					t.Fatalf("request_id missing")
				}
				return
			}
			if body["id"] != tc.userID {
				t.Fatalf("id = %v; want %s", body["id"], tc.userID)
			}
			if tc.verifier != nil && tc.verifier.seen != "tok-1" {
				t.Fatalf("verifier saw %q", tc.verifier.seen)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := [][2]string{
		{"", ""},
		{"Bearer", ""},
		{"Bearer abc", "abc"},
		{"BEARER abc ", "abc"},
		{"Token abc", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tc[0])
		if got := BearerToken(c); got != tc[1] {
			t.Errorf("BearerToken(%q) = %q; want %q", tc[0], got, tc[1])
		}
	}
}

func TestUserID_AndCurrentUser_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if UserID(c) != "" || CurrentUser(c) != nil {
		t.Fatalf("expected no user before Authenticate")
	}
	c.Set(userKey, "not-a-user")
	if CurrentUser(c) != nil {
		t.Fatalf("wrong type must read as nil")
	}
}
