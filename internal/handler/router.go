/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying logging, CORS and IP-based rate limiting
before delegating requests to the credential, history, health and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"chatcast/internal/pkg/limiter"
	"chatcast/internal/pkg/logx"
	"chatcast/internal/pkg/resp"
)

const (
	RegisterRate  = 0.2
	RegisterBurst = 5
	LoginRate     = 1
	LoginBurst    = 10
	ConnectRate   = 0.5
	ConnectBurst  = 10
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// Rate limiter cleanup stops when the hub shuts down.
func Router(deps *AppDeps) http.Handler {
	ctx := deps.Hub.Context()
	registerLimiter := limiter.NewIPRateLimiter(ctx, "register", rate.Limit(RegisterRate), RegisterBurst)
	loginLimiter := limiter.NewIPRateLimiter(ctx, "login", rate.Limit(LoginRate), LoginBurst)
	connectLimiter := limiter.NewIPRateLimiter(ctx, "ws", rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	allowAnyOrigin := len(deps.Config.AllowedOrigins) == 0 || lo.Contains(deps.Config.AllowedOrigins, "*")
	allowedOrigins := lo.SliceToMap(deps.Config.AllowedOrigins, func(origin string) (string, struct{}) {
		return origin, struct{}{}
	})

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAnyOrigin {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if allowAnyOrigin {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	// forwarded headers are client-controlled unless a proxy rewrites them, and the
	// rate limiters key on the resulting address
	if deps.Config.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusNotFound, resp.Result{Success: false, Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusMethodNotAllowed, resp.Result{Success: false, Message: "Method not allowed"})
	})

	r.Get("/health", HandleHealth(deps))

	r.With(registerLimiter.Middleware).Post("/register", HandleRegister(deps))
	r.With(loginLimiter.Middleware).Post("/login", HandleLogin(deps))
	r.Get("/messages", HandleListMessages(deps))

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}
