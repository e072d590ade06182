// Package handlers defines the error codes returned by the admin HTTP API.
//
// Every error response carries an HTTP status and one of these stable,
// snake_case codes in an ErrorResponse envelope; clients branch on the code.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "bad_request",
//	  "message": "invalid timestamp: \"yesterday\""
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeUnavailable      = "unavailable"

	// Domain-specific:
	ErrCodeExportFailed = "export_failed"
)
