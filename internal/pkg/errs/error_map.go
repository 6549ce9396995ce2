/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters"},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format"},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Invalid JSON body"},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data"},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large"},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later", Status: http.StatusTooManyRequests},

	// 3xxx: Credential Errors
	ErrUserAlreadyExists: {Code: ErrUserAlreadyExists, Message: "Username already exists"},
	ErrUserNotFound:      {Code: ErrUserNotFound, Message: "User not found"},
	ErrInvalidPassword:   {Code: ErrInvalidPassword, Message: "Invalid password"},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again", Status: http.StatusInternalServerError},
}
