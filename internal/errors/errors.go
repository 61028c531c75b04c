package errors

import (
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Authentication errors (401xx)
	ErrInvalidCredentials ErrorCode = "40101"
	ErrTokenExpired       ErrorCode = "40102"

	// Authorization errors (403xx)
	ErrForbidden        ErrorCode = "40301"
	ErrPermissionDenied ErrorCode = "40302"

	// Resource errors (404xx)
	ErrProfileNotFound      ErrorCode = "40401"
	ErrCreatorNotFound      ErrorCode = "40402"
	ErrPostNotFound         ErrorCode = "40403"
	ErrConversationNotFound ErrorCode = "40404"

	// Request errors (400xx)
	ErrInvalidRequest   ErrorCode = "40001"
	ErrValidationFailed ErrorCode = "40002"

	// Conflict errors (409xx)
	ErrEmailTaken ErrorCode = "40901"

	// Server errors (500xx)
	ErrInternalServer ErrorCode = "50001"
	ErrNotConfigured  ErrorCode = "50301"
)

// APIError represents a standardized API error
type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	HTTPStatus int       `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// ErrorResponse represents the error response format
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id"`
}

// Common errors
var (
	ErrInvalidCredentialsError = &APIError{
		Code:       ErrInvalidCredentials,
		Message:    "Invalid email or password",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpiredError = &APIError{
		Code:       ErrTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbiddenError = &APIError{
		Code:       ErrForbidden,
		Message:    "Access denied",
		HTTPStatus: http.StatusForbidden,
	}

	// ErrPermissionDeniedError is returned when the messaging rule denies a
	// send. Raised at send time, never trusted from an earlier UI check.
	ErrPermissionDeniedError = &APIError{
		Code:       ErrPermissionDenied,
		Message:    "You are not allowed to message this user",
		HTTPStatus: http.StatusForbidden,
	}

	ErrProfileNotFoundError = &APIError{
		Code:       ErrProfileNotFound,
		Message:    "Profile not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrCreatorNotFoundError = &APIError{
		Code:       ErrCreatorNotFound,
		Message:    "Creator not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrPostNotFoundError = &APIError{
		Code:       ErrPostNotFound,
		Message:    "Post not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrConversationNotFoundError = &APIError{
		Code:       ErrConversationNotFound,
		Message:    "Conversation not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrEmailTakenError = &APIError{
		Code:       ErrEmailTaken,
		Message:    "Email already registered",
		HTTPStatus: http.StatusConflict,
	}

	ErrInternalServerError = &APIError{
		Code:       ErrInternalServer,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrNotConfiguredError signals that the entity store is unavailable.
	// Read paths fail soft with empty results instead; only mutating
	// operations surface this to the caller.
	ErrNotConfiguredError = &APIError{
		Code:       ErrNotConfigured,
		Message:    "Storage backend is not configured",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)

// NewValidationError creates a validation error with details
func NewValidationError(details any) *APIError {
	return &APIError{
		Code:       ErrValidationFailed,
		Message:    "Validation failed",
		Details:    details,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:       ErrInvalidRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}
