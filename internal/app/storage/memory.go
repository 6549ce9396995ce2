package storage

import (
	"context"

	"chatcast/internal/app/message"
)

// MemoryStore keeps nothing. It runs the history in memory-only mode.
type MemoryStore struct{}

// NewMemoryStore returns a MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (MemoryStore) Name() string { return BackendMemory }

func (MemoryStore) Load(context.Context) ([]message.Message, error) { return nil, nil }

func (MemoryStore) Persist(context.Context, []message.Message) error { return nil }

func (MemoryStore) Close() error { return nil }
