package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/auth"
)

const (
	userIDKey = "userID"
	userKey   = "user"

	// DevUserID is the identity used for every request when authentication
	// is disabled.
	DevUserID = "dev-user"
)

// AuthOptions configures Authenticate.
type AuthOptions struct {
	Verifier auth.Verifier
	// Disabled lets every request through as DevUserID. Development only.
	Disabled bool
}

// Authenticate requires a valid "Authorization: Bearer <jwt>" header and
// stores the user and its id in the Gin context.
//
// Missing, malformed or expired tokens yield 401; an unreachable auth
// backend yields 503.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Disabled {
			c.Set(userIDKey, DevUserID)
			c.Set(userKey, &auth.User{ID: DevUserID, Role: "admin"})
			c.Next()
			return
		}

		token := BearerToken(c)
		if token == "" {
			abortAuth(c, http.StatusUnauthorized, "unauthorized", auth.ErrMissingToken.Error())
			return
		}
		u, err := opts.Verifier.Verify(c.Request.Context(), token)
		switch {
		case errors.Is(err, auth.ErrUnavailable):
			LoggerFrom(c).Warn().Err(err).Msg("token verification unavailable")
			abortAuth(c, http.StatusServiceUnavailable, "auth_unavailable", err.Error())
			return
		case err != nil:
			abortAuth(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		c.Set(userIDKey, u.ID)
		c.Set(userKey, u)
		c.Next()
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID returns the authenticated user's id, or "" before Authenticate ran.
func UserID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	return asString(v)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c *gin.Context) *auth.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*auth.User); ok {
			return u
		}
	}
	return nil
}

func abortAuth(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": RequestIDFrom(c),
		"code":       code,
		"message":    msg,
	})
}
