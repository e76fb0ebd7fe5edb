package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned to clients. Auth, schema-mismatch and provider errors
// mirror the three failure classes of the generation provider; the rest cover
// local request handling.
const (
	CodeAuth           = "AUTH_ERROR"
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeProvider       = "PROVIDER_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAuthError signals a missing or invalid provider credential. The client
// is expected to route the user to the credential flow and retry.
func NewAuthError(message string, err error) *AppError {
	return &AppError{Code: CodeAuth, Message: message, Err: err}
}

// NewSchemaMismatchError signals that the provider returned a payload that
// does not match the declared response schema.
func NewSchemaMismatchError(err error) *AppError {
	return &AppError{
		Code:    CodeSchemaMismatch,
		Message: "Provider response did not match the expected format",
		Err:     err,
	}
}

// NewProviderError wraps any other transport or provider-side failure.
func NewProviderError(message string, err error) *AppError {
	return &AppError{Code: CodeProvider, Message: message, Err: err}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Code: CodeConflict, Message: message}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// StatusForError maps an error to the HTTP status used when responding.
func StatusForError(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeAuth:
		return fiber.StatusUnauthorized
	case CodeValidation:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeConflict:
		return fiber.StatusConflict
	case CodeSchemaMismatch, CodeProvider:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
