// Package handlers implements the dashboard's REST endpoints on top of the
// services package.
//
// Every error response carries a stable, machine-readable code from the list
// below alongside the HTTP status and a human-readable message:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_found",
//	  "message": "content not found"
//	}
//
// Clients branch on code; message is safe to display.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeAuthUnavailable = "auth_unavailable"
	ErrCodeCreateFailed    = "create_failed"
	ErrCodeUpdateFailed    = "update_failed"
	ErrCodeListFailed      = "list_failed"
	ErrCodeExportFailed    = "export_failed"
)
