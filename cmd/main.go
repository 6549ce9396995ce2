/*
Package main is the entry point for the chatcast server.

It loads configuration, initializes the global logging system, opens the history backend,
builds the hub and credential store, serves HTTP and WebSocket traffic, and handles
SIGINT/SIGTERM with a graceful shutdown that flushes the history.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatcast/internal/app/chat"
	"chatcast/internal/app/storage"
	"chatcast/internal/app/user"
	"chatcast/internal/configs"
	"chatcast/internal/handler"
	"chatcast/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logx.InitGlobalLogger(cfg.LogOptions()); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("address", cfg.Address()).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("storage_backend", cfg.StorageBackend).
		Bool("trust_proxy_headers", cfg.TrustProxyHeaders).
		Bool("replay_history", cfg.ReplayHistory).
		Bool("echo_to_sender", cfg.EchoToSender).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the history backend and restore prior messages
	store, err := storage.NewStore(ctx, cfg.StorageConfig())
	if err != nil {
		logx.Fatal(err, "Failed to open history storage", "backend", cfg.StorageBackend)
	}

	history := chat.NewHistory(store, cfg.PersistRetries)
	if err := history.Load(ctx); err != nil {
		logx.Error(err, "Starting with an empty history")
	}

	hub := chat.NewHub(history, chat.NewBus(cfg.SubscriberBuffer), chat.HubOptions{
		ReplayHistory: cfg.ReplayHistory,
		EchoToSender:  cfg.EchoToSender,
	})

	hasher, err := user.NewHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		logx.Fatal(err, "Failed to configure password hasher")
	}

	deps := &handler.AppDeps{
		Hub:    hub,
		Users:  user.NewStore(hasher),
		Config: cfg,
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler.Router(deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("chatcast server starting on http://%s", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
		logx.Error(err, "Hub shutdown incomplete")
	}

	logx.Info("Server gracefully stopped.")
}
