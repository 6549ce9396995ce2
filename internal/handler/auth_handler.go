/*
Package handler provides HTTP handler functions for account registration and login.
*/
package handler

import (
	"errors"
	"net/http"

	"chatcast/internal/app/user"
	"chatcast/internal/pkg/errs"
	"chatcast/internal/pkg/logx"
	"chatcast/internal/pkg/req"
	"chatcast/internal/pkg/resp"
)

const (
	msgRegistered = "User registered successfully"
	msgLoggedIn   = "Login successful"
)

// CredentialsInput is the body of both /register and /login.
type CredentialsInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a new account.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Users.Register(input.Username, input.Password); err != nil {
			if errors.Is(err, user.ErrAlreadyExists) {
				logx.Warn("registration conflict: username already exists", "username", input.Username)
				resp.RespondError(w, r, errs.NewError(errs.ErrUserAlreadyExists))
				return
			}

			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, msgRegistered)
	}
}

// HandleLogin verifies credentials. Unknown usernames and wrong passwords are reported
// differently.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		err := deps.Users.Verify(input.Username, input.Password)
		switch {
		case err == nil:
			resp.RespondSuccess(w, r, msgLoggedIn)

		case errors.Is(err, user.ErrNotFound):
			logx.Warn("login: unknown user", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrUserNotFound))

		case errors.Is(err, user.ErrWrongSecret):
			logx.Warn("login: password mismatch", "username", input.Username)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))

		default:
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
		}
	}
}
