package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/services"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// ErrorResponse is the error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"content not found"`
}

// ListResponse wraps one page of a list endpoint.
type ListResponse[T any] struct {
	Data       []T            `json:"data"`
	Pagination utils.PageMeta `json:"pagination"`
}

// DataResponse wraps a non-paginated collection.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}

// fail aborts the request with a structured error. Server errors are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router for 404/405.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failService maps a service error onto the error envelope. Sentinels get
// their own status; anything else is a backend failure reported as 500 with
// fallback as code and the backend's message.
func failService(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrContactNotFound),
		errors.Is(err, services.ErrContentNotFound),
		errors.Is(err, services.ErrPromptNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrNoContacts),
		errors.Is(err, services.ErrInvalidChannel):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrVersionConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, auth.ErrUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeAuthUnavailable, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
