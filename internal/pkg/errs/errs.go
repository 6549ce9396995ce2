/*
Package errs defines the coded errors the HTTP layer reports to clients.

A CustomError pairs a business code from error_codes.go with the fixed client-facing
message and HTTP status registered in error_map.go. An internal cause can ride along for
logging and errors.Is/As, but it never reaches the response body.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"chatcast/internal/pkg/logx"
)

// CustomError is a client-facing error with a business code and HTTP status.
type CustomError struct {
	Code    int
	Message string
	Status  int

	// Cause is the internal error behind the code, if any. It is not serialized.
	Cause error
}

func (e *CustomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error { return e.Cause }

// Is reports whether target is a CustomError carrying the same code.
func (e *CustomError) Is(target error) bool {
	var other *CustomError
	return errors.As(target, &other) && other.Code == e.Code
}

// NewError builds the registered error for code, joining any causes into Cause.
// Unregistered codes fall back to ErrUnknown. Causes of server-side (5xx) errors are
// logged here, since the client only ever sees the generic message.
func NewError(code int, causes ...error) *CustomError {
	registered, ok := errorMap[code]
	if !ok {
		logx.Logger().Error().Int("requested_code", code).Msg("Unregistered error code requested")
		registered = errorMap[ErrUnknown]
	}

	err := registered
	if err.Status == 0 {
		err.Status = http.StatusOK
	}
	err.Cause = errors.Join(causes...)

	if err.Cause != nil && err.Status >= http.StatusInternalServerError {
		logx.Logger().Error().Err(err.Cause).Int("code", err.Code).Msg("Internal error reported to client")
	}

	return &err
}
