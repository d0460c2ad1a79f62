package logical

import (
	"errors"
	"fmt"
	"net/http"
)

// invalidTokenMessage is the single message returned for every token
// validation failure. Callers must not learn whether a token was
// malformed, expired, revoked, or carried a bad signature.
const invalidTokenMessage = "invalid token"

// CodedError is an error that carries an HTTP status code.
// This allows the service layer to return errors with appropriate status
// codes without relying on string matching.
type CodedError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error. For token errors the cause is
// kept here for server-side logging only and never rendered to clients.
func (e *CodedError) Unwrap() error {
	return e.Err
}

// Code returns the HTTP status code.
func (e *CodedError) Code() int {
	return e.Status
}

// ErrNotFound creates a 404 Not Found error. Used between internal
// collaborators; the boundary normalizes it before it reaches a client.
func ErrNotFound(message string) *CodedError {
	return &CodedError{Status: http.StatusNotFound, Message: message}
}

// ErrNotFoundf creates a formatted 404 Not Found error.
func ErrNotFoundf(format string, args ...any) *CodedError {
	return &CodedError{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidCredentials creates a 401 for login/registration input the
// user can correct.
func ErrInvalidCredentials(message string) *CodedError {
	return &CodedError{Status: http.StatusUnauthorized, Message: message}
}

// ErrInvalidToken creates the opaque 401 used for every token
// validation failure. cause is retained for Unwrap but never shown.
func ErrInvalidToken(cause error) *CodedError {
	return &CodedError{Status: http.StatusUnauthorized, Message: invalidTokenMessage, Err: cause}
}

// IsInvalidToken reports whether err is a token validation failure.
func IsInvalidToken(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Status == http.StatusUnauthorized && coded.Message == invalidTokenMessage
}

// ErrSigningUnavailable creates a 500 for the internal precondition
// violation of issuing a token for a principal with no signing secret.
func ErrSigningUnavailable(message string) *CodedError {
	return &CodedError{Status: http.StatusInternalServerError, Message: message}
}

// ErrConflict creates a 409 Conflict error.
func ErrConflict(message string) *CodedError {
	return &CodedError{Status: http.StatusConflict, Message: message}
}

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(message string) *CodedError {
	return &CodedError{Status: http.StatusBadRequest, Message: message}
}

// ErrBadRequestf creates a formatted 400 Bad Request error.
func ErrBadRequestf(format string, args ...any) *CodedError {
	return &CodedError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(message string) *CodedError {
	return &CodedError{Status: http.StatusInternalServerError, Message: message}
}

// GetErrorCode extracts the HTTP status code from an error.
// Errors that are not CodedErrors map to 500 Internal Server Error.
func GetErrorCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Status
	}
	return http.StatusInternalServerError
}

// ClientMessage returns the message safe to render to a client. Anything
// that is not a CodedError is reported generically so unexpected
// persistence or crypto failures never leak internals.
func ClientMessage(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}
	return "internal error"
}
