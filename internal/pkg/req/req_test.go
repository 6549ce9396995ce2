package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"chatcast/internal/pkg/errs"
)

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func bind(contentType, body string) (loginBody, *errs.CustomError) {
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)

	var dst loginBody
	return dst, BindJSON(httptest.NewRecorder(), r, &dst)
}

func TestBindJSON(t *testing.T) {
	req := require.New(t)

	dst, err := bind("application/json; charset=utf-8", `{"username":"alice","password":"pw"}`)
	req.Nil(err)
	req.Equal(loginBody{Username: "alice", Password: "pw"}, dst)

	cases := map[string]struct {
		contentType string
		body        string
		code        int
	}{
		"wrong content type": {"text/plain", `{}`, errs.ErrUnsupportedMediaType},
		"syntax error":       {"application/json", `{"username":`, errs.ErrInvalidJSONFormat},
		"unknown field":      {"application/json", `{"username":"a","password":"b","x":1}`, errs.ErrInvalidJSONFormat},
		"trailing data":      {"application/json", `{"username":"a","password":"b"} {}`, errs.ErrExtraContentInBody},
		"missing field":      {"application/json", `{"username":"a"}`, errs.ErrInvalidParams},
		"too large":          {"application/json", `{"username":"` + strings.Repeat("a", int(MaxBodySize)) + `"}`, errs.ErrRequestEntityTooLarge},
	}

	for name, tc := range cases {
		_, err := bind(tc.contentType, tc.body)
		req.NotNil(err, name)
		req.Equal(tc.code, err.Code, name)
	}
}

func TestBindJSON_KeepsValidationCause(t *testing.T) {
	_, err := bind("application/json", `{"username":"a"}`)
	require.NotNil(t, err)

	var fieldErrs validator.ValidationErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Equal(t, "Password", fieldErrs[0].Field())
	// the response message stays generic
	require.Equal(t, "Invalid request parameters", err.Message)
}
