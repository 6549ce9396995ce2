package handler

import (
	"net/http"

	"chatcast/internal/pkg/logx"
	"chatcast/internal/pkg/resp"
)

// HealthStatus is the body returned by /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Backend   string `json:"backend"`
	Sessions  int    `json:"sessions"`
	Messages  int    `json:"messages"`
	Users     int    `json:"users"`
	LastError string `json:"lastError,omitempty"`
}

// HandleHealth reports liveness and whether the history is still being persisted.
// A degraded history still answers 200; the server keeps serving from memory.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history := deps.Hub.History().Health()

		status := HealthStatus{
			Status:    "ok",
			Service:   logx.ServiceName,
			Backend:   history.Backend,
			Sessions:  deps.Hub.Online(),
			Messages:  history.Size,
			Users:     deps.Users.Count(),
			LastError: history.LastError,
		}
		if history.Degraded {
			status.Status = "degraded"
		}

		resp.RespondJSON(w, r, http.StatusOK, status)
	}
}
