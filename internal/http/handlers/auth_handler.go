package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/http/middleware"
)

// LoginRequest is the email/password sign-in payload.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email,max=254" example:"ops@vhlabs.io"`
	Password string `json:"password" binding:"required,max=128"`
}

// Login godoc
// @ID          login
// @Summary     Sign in
// @Description Exchanges an email and password for an access and refresh token.
// @Tags        Auth
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
// @Success     200  {object}  auth.Session
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     503  {object}  handlers.ErrorResponse  "Auth backend unavailable"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sess)
}

// Logout godoc
// @ID          logout
// @Summary     Sign out
// @Description Revokes the session behind the bearer token.
// @Tags        Auth
// @Security    BearerAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// Me godoc
// @ID          me
// @Summary     Current user
// @Description Returns the signed-in user as the auth backend knows it, including role metadata.
// @Tags        Auth
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  auth.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /auth/me [get]
func (h *Handlers) Me(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		// Authentication is disabled; the middleware's identity is all there is.
		if u := middleware.CurrentUser(c); u != nil {
			ok(c, http.StatusOK, u)
			return
		}
	}
	u, err := h.auth.User(c.Request.Context(), token)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}
