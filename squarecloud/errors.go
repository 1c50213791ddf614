package squarecloud

import (
	"errors"
	"fmt"
)

// UnknownCode is used when the API response body carries no machine
// readable error code.
const UnknownCode = "UNKNOWN"

// HTTPError is returned when a request to the Square Cloud API fails.
// Code is the error code reported by the API, for example "APP_NOT_FOUND".
type HTTPError struct {
	Status int
	Code   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("square cloud API error: %d %s", e.Status, e.Code)
}

// AuthenticationError is returned when the configured API key is
// missing or invalid.
type AuthenticationError struct {
	HTTPError
}

func (e *AuthenticationError) Unwrap() error { return &e.HTTPError }

// NotFoundError is returned when the requested resource does not exist.
type NotFoundError struct {
	HTTPError
}

func (e *NotFoundError) Unwrap() error { return &e.HTTPError }

// IsAuthenticationFailure reports whether err was caused by a bad API key.
func IsAuthenticationFailure(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsNotFound reports whether err was caused by a missing resource.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}
