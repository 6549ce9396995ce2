/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON bodies strictly, enforces a body size limit and validates the decoded
struct with go-playground/validator tags, mapping every failure to an errs.CustomError.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"chatcast/internal/pkg/errs"
)

// MaxBodySize defines the maximum allowed size (64 KB) for a JSON request body.
const MaxBodySize int64 = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON binds the JSON request body to dst and validates it.
// The Content-Type must be application/json, unknown fields and trailing data are
// rejected, and dst's `validate` tags must hold.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge, err)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat, err)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams, err)
	}

	return nil
}
