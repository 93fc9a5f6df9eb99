package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mcoot/playerinfo-proxy/internal/api/response"
	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeMissingCredentials = "MISSING_CREDENTIALS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeInvalidPlayerID    = "INVALID_PLAYER_ID"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with a code and message
type httpError struct {
	status  int
	code    string
	message string
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	response.JSON(w, he.status, ErrorResponse{
		Success: false,
		Message: he.message,
		Code:    he.code,
	})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var locked *auth.LockedError
	if errors.As(err, &locked) {
		if locked.JustLocked {
			return &httpError{http.StatusUnauthorized, CodeAccountLocked,
				fmt.Sprintf("Too many failed attempts, account locked for %d minutes", locked.RemainingMinutes())}
		}
		return &httpError{http.StatusUnauthorized, CodeAccountLocked,
			fmt.Sprintf("Account locked, try again in %d minutes", locked.RemainingMinutes())}
	}

	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, CodePlayerNotFound, "Player not found"}
	case errors.Is(err, model.ErrInvalidPlayerID):
		return &httpError{http.StatusBadRequest, CodeInvalidPlayerID, "Invalid player id"}

	// Map auth errors
	case errors.Is(err, auth.ErrMissingCredentials):
		return &httpError{http.StatusBadRequest, CodeMissingCredentials, "Username and password are required"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password"}
	case errors.Is(err, auth.ErrAccountLocked):
		return &httpError{http.StatusUnauthorized, CodeAccountLocked, "Account locked"}

	default:
		return &httpError{http.StatusInternalServerError, CodeInternalError, "Internal server error"}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, CodeInvalidRequest, message}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, CodeUnauthorized, "Please log in first"}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, CodeInternalError, "Internal server error"}
}
