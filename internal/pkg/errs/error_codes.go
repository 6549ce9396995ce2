/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific request, credential and system errors both inside
the server and in the `{success, message}` bodies sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 3xxx: Credential Errors
const (
	// ErrUserAlreadyExists indicates a registration for a username that is already taken.
	ErrUserAlreadyExists = 3101

	// ErrUserNotFound indicates a login for a username that was never registered.
	ErrUserNotFound = 3102

	// ErrInvalidPassword indicates a login whose secret does not match the stored one.
	ErrInvalidPassword = 3103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
