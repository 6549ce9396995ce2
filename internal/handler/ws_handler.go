/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket upgrades the request and runs the chat session on the request goroutine
until the connection closes or the hub shuts down.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"chatcast/internal/app/chat"
	"chatcast/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already written an HTTP error response
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		session := chat.NewSession(deps.Hub, conn)

		// sessions are stopped by Hub.Shutdown, not by the HTTP server
		if err := session.Run(deps.Hub.Context()); err != nil {
			if errors.Is(err, chat.ErrHubClosed) {
				logx.Info("WebSocket connection refused during shutdown", "session_id", session.ID)
				return
			}
			logx.Warn("WebSocket session ended with error", "session_id", session.ID, "error", err.Error())
		}
	}
}
