package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/services"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er), w.Body.String())
	return er
}

func TestFail_ServerErrorsAreLogged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/dashboard/kpis", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "kpi query failed")
	})
	r.GET("/contacts/:id", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "contact not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard/kpis", nil)
	req.Header.Set("X-Request-ID", "rid-kpi")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ErrorResponse{RequestID: "rid-kpi", Code: ErrCodeListFailed, Message: "kpi query failed"}, decodeError(t, w))
	assert.Contains(t, buf.String(), `"level":"error"`)

	buf.Reset()
	req = httptest.NewRequest(http.MethodGet, "/contacts/c-404", nil)
	req.Header.Set("X-Request-ID", "rid-404")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrorResponse{RequestID: "rid-404", Code: ErrCodeNotFound, Message: "contact not found"}, decodeError(t, w))
	assert.NotContains(t, buf.String(), `"level":"error"`, "client errors stay out of the error log")
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/contents", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"id": "ct-1", "hooks": 2}) })
	r.DELETE("/contents/:id", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/contents", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"ct-1","hooks":2}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/contents/ct-1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestFailService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrContactNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrContentNotFound, http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("get: %w", services.ErrPromptNotFound), http.StatusNotFound, ErrCodeNotFound},
		{fmt.Errorf("%w: raw_text is required", services.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrNoContacts, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrInvalidChannel, http.StatusBadRequest, ErrCodeBadRequest},
		{fmt.Errorf("%w: welcome_v1 v3", services.ErrVersionConflict), http.StatusConflict, ErrCodeConflict},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
		{auth.ErrMissingToken, http.StatusUnauthorized, ErrCodeUnauthorized},
		{auth.ErrExpiredToken, http.StatusUnauthorized, ErrCodeUnauthorized},
		{fmt.Errorf("breaker open: %w", auth.ErrUnavailable), http.StatusServiceUnavailable, ErrCodeAuthUnavailable},
		{errors.New("relation \"contacts\" does not exist"), http.StatusInternalServerError, ErrCodeListFailed},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/contacts", func(c *gin.Context) { failService(c, tt.err, ErrCodeListFailed) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/contacts", nil))

			require.Equal(t, tt.status, w.Code)
			er := decodeError(t, w)
			assert.Equal(t, tt.code, er.Code)
			assert.Equal(t, tt.err.Error(), er.Message)
		})
	}
}
