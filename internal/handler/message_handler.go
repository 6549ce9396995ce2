package handler

import (
	"net/http"

	"chatcast/internal/pkg/resp"
)

// HandleListMessages returns the full history as a JSON array of [sender, body] records.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusOK, deps.Hub.History().Snapshot())
	}
}
