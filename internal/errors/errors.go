package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types for the relay
var (
	// Authentication errors
	ErrMissingToken = errors.New("token not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrWrongScope   = errors.New("token scope does not match")
	ErrBadOrigin    = errors.New("origin mismatch")

	// Authorization errors
	ErrForbidden         = errors.New("forbidden")
	ErrPermissionUnknown = errors.New("could not determine permission")
	ErrInvalidContentID  = errors.New("invalid content ID")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant not found")

	// General errors
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
	ErrUnsupported    = errors.New("unsupported operation")
)

// UpstreamError is a non-2xx answer from the Confluence REST API.
type UpstreamError struct {
	Method  string // client method that issued the call, e.g. "CheckPermission"
	Code    int    // HTTP status code
	Status  string // HTTP status text
	Message string // message returned by Confluence, if any
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: confluence responded %d %s", e.Method, e.Code, e.Status)
	}
	return fmt.Sprintf("%s: confluence responded %d %s: %s", e.Method, e.Code, e.Status, e.Message)
}

// HTTPStatus maps an error from any layer to the status code the relay answers with.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrWrongScope),
		errors.Is(err, ErrBadOrigin):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidContentID), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, ErrPermissionUnknown), errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
