/*
Package storage provides the durable backends behind the chat history.

Every backend implements Store. Persist always receives the full history; backends that
rewrite a whole record (file, s3) serialize all of it, while append-only backends
(badger, postgres) write only the entries they have not yet stored.
*/
package storage

import (
	"context"
	"fmt"

	"chatcast/internal/app/message"
)

// Backend names accepted by NewStore.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

// ServiceConfig holds the configuration required to open a storage backend.
type ServiceConfig struct {
	Backend string

	// File backend
	HistoryFile string

	// Badger backend
	BadgerDir string

	// Postgres backend
	DatabaseDSN string

	// S3 backend
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3ObjectKey       string
}

// Store defines the durable side of the message history.
type Store interface {
	// Load returns the stored history in order. A missing source yields an empty history
	// and a nil error; unreadable or malformed contents yield an error.
	Load(ctx context.Context) ([]message.Message, error)

	// Persist makes the given history durable, replacing or extending prior contents.
	// history is always the complete sequence and is never modified afterwards.
	Persist(ctx context.Context, history []message.Message) error

	// Name identifies the backend in logs and health output.
	Name() string

	// Close releases the backend's resources.
	Close() error
}

// NewStore is the factory function for Store.
// It opens the backend selected by cfg.Backend.
func NewStore(ctx context.Context, cfg ServiceConfig) (Store, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.HistoryFile), nil
	case BackendBadger:
		return NewBadgerStore(cfg.BadgerDir)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseDSN)
	case BackendS3:
		return NewS3Store(ctx, cfg)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
