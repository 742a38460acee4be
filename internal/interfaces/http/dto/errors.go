package dto

import "net/http"

// General error codes
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
)

// Domain error codes surfaced over the API
const (
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeInvalidOperation       = "INVALID_OPERATION"
	ErrCodeInvalidState           = "INVALID_STATE"
	ErrCodeInvalidMovement        = "INVALID_MOVEMENT"
	ErrCodeInvalidAlertTransition = "INVALID_ALERT_TRANSITION"
	ErrCodeInsufficientStock      = "INSUFFICIENT_STOCK"
	ErrCodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	ErrCodeTransferFailed         = "TRANSFER_FAILED"
	ErrCodeAlreadyExists          = "ALREADY_EXISTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// Business-rule rejections on a well-formed request map to 422,
// retryable write races to 409.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeRateLimited:  http.StatusTooManyRequests,

	ErrCodeInvalidInput:           http.StatusBadRequest,
	ErrCodeInvalidOperation:       http.StatusBadRequest,
	ErrCodeInvalidState:           http.StatusUnprocessableEntity,
	ErrCodeInvalidMovement:        http.StatusBadRequest,
	ErrCodeInvalidAlertTransition: http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	ErrCodeConcurrencyConflict:    http.StatusConflict,
	ErrCodeTransferFailed:         http.StatusInternalServerError,
	ErrCodeAlreadyExists:          http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 if unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeAliases collapses fine-grained domain codes into their
// API-level counterparts so clients see a stable set of codes.
var domainCodeAliases = map[string]string{
	"INVALID_NAME":      ErrCodeInvalidInput,
	"INVALID_UNIT":      ErrCodeInvalidInput,
	"INVALID_CODE":      ErrCodeInvalidInput,
	"INVALID_THRESHOLD": ErrCodeInvalidInput,
	"INVALID_COST":      ErrCodeInvalidInput,
	"INVALID_ALERT":     ErrCodeInvalidInput,
}

// NormalizeErrorCode maps a domain error code to its API error code
func NormalizeErrorCode(code string) string {
	if alias, ok := domainCodeAliases[code]; ok {
		return alias
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternal
}
