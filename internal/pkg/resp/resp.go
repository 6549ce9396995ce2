/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

It defines the `{success, message}` result body shared by the credential endpoints and
offers convenient wrappers for both success and error responses.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"chatcast/internal/pkg/errs"
	"chatcast/internal/pkg/logx"
)

// Result is the body returned by the credential endpoints.
type Result struct {
	// Success reports whether the operation succeeded.
	Success bool `json:"success"`

	// Message is the client-facing status description or error message.
	Message string `json:"message"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, `{"success":false,"message":"Error encoding JSON response"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write JSON response", "error", err.Error())
	}
}

// RespondSuccess sends `{success: true, message}` with HTTP 200 OK.
func RespondSuccess(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusOK, Result{Success: true, Message: message})
}

// RespondError sends `{success: false, message}` with the error's HTTP status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, Result{Success: false, Message: customErr.Message})
}
