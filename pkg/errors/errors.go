package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrAuthentication = errors.New("authentication error")
	ErrConfiguration  = errors.New("configuration error")
	ErrHTTPRequest    = errors.New("HTTP request error")
	ErrHTTPResponse   = errors.New("HTTP response error")
	ErrPagination     = errors.New("pagination error")
	ErrExtraction     = errors.New("data extraction error")
	ErrTransform      = errors.New("transform error")
	ErrAsset          = errors.New("asset error")
	ErrDuplicateNode  = errors.New("duplicate node")
	ErrValidation     = errors.New("validation error")
)

// WrapError wraps an error with a standard error type
func WrapError(err error, errType error, message string) error {
	return fmt.Errorf("%w: %s: %w", errType, message, err)
}

// APIError is returned for every non-2xx response from the Printful API.
// Body holds the raw response body for diagnostics.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("printful API: GET %s: [%d] %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("printful API: GET %s: [%d] %s", e.Path, e.StatusCode, e.Body)
}

// Is lets callers match an APIError against the standard error types.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrHTTPResponse:
		return true
	case ErrAuthentication:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

// PaginationError reports a listing page whose envelope could not be used.
type PaginationError struct {
	Path   string
	Offset int
	Err    error
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination: %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *PaginationError) Unwrap() error { return e.Err }

func (e *PaginationError) Is(target error) bool { return target == ErrPagination }

// Is provides a convenience wrapper around errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As provides a convenience wrapper around errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap provides a convenience wrapper around errors.Unwrap
func Unwrap(err error) error {
	return errors.Unwrap(err)
}
