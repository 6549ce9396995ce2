package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"chatcast/internal/app/message"
	"chatcast/internal/app/storage"
	"chatcast/internal/pkg/logx"
)

// ErrPersistence marks a history write that could not be made durable.
var ErrPersistence = errors.New("history persistence failed")

const (
	// DefaultPersistRetries is how many times a failed persist is retried before degrading.
	DefaultPersistRetries = 3

	// persistBackoffBase is the first retry delay; later delays grow exponentially.
	persistBackoffBase = 50 * time.Millisecond
)

// HistoryHealth describes the durability state of the history.
type HistoryHealth struct {
	// Backend is the storage backend name.
	Backend string `json:"backend"`

	// Degraded is true while the in-memory history is ahead of durable storage.
	Degraded bool `json:"degraded"`

	// LastError is the most recent persistence failure, if still unresolved.
	LastError string `json:"lastError,omitempty"`

	// Size is the number of messages in memory.
	Size int `json:"size"`
}

// History is the ordered, append-only message log.
// The in-memory sequence is the source of truth for readers; every Append also hands the
// full sequence to the durable Store.
type History struct {
	// messages holds the history in append order. Elements are never modified.
	messages []message.Message

	// mu guards messages.
	mu sync.RWMutex

	// persistMu serializes Persist so durable state never lags more than one append.
	persistMu sync.Mutex

	// store is the durable backend.
	store storage.Store

	// retries bounds how often a failed persist is retried.
	retries uint64

	// degraded and lastErr are guarded by healthMu.
	degraded bool
	lastErr  error
	healthMu sync.RWMutex

	logger zerolog.Logger
}

// NewHistory constructs an empty History backed by store.
func NewHistory(store storage.Store, retries int) *History {
	if retries < 0 {
		retries = DefaultPersistRetries
	}

	return &History{
		store:   store,
		retries: uint64(retries),
		logger: logx.Component("History").With().
			Str("backend", store.Name()).
			Logger(),
	}
}

// Load replaces the in-memory history with the store's contents.
// If the store cannot be read, the history is left empty and the error is returned for
// logging; it is never fatal.
func (h *History) Load(ctx context.Context) error {
	loaded, err := h.store.Load(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.messages = nil
		h.logger.Warn().Err(err).Msg("History could not be loaded. Starting empty.")
		return fmt.Errorf("load history: %w", err)
	}

	h.messages = loaded
	h.logger.Info().Int("messages", len(loaded)).Msg("History loaded.")
	return nil
}

// Append adds msg to the tail and persists the history.
// The message is visible to Snapshot as soon as Append starts persisting. A returned
// error wraps ErrPersistence; the message stays in memory and the history is marked
// degraded until a later persist succeeds.
func (h *History) Append(ctx context.Context, msg message.Message) error {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()

	return h.Persist(ctx)
}

// Snapshot returns a copy of the full history as of the call.
func (h *History) Snapshot() []message.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snapshot := make([]message.Message, len(h.messages))
	copy(snapshot, h.messages)
	return snapshot
}

// Len returns the number of messages in the history.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.messages)
}

// Persist writes the current history to the store, retrying with exponential backoff.
func (h *History) Persist(ctx context.Context) error {
	h.persistMu.Lock()
	defer h.persistMu.Unlock()

	// The view is capped so later appends can never write into it.
	h.mu.RLock()
	view := h.messages[:len(h.messages):len(h.messages)]
	h.mu.RUnlock()

	backoff := retry.WithMaxRetries(h.retries, retry.NewExponential(persistBackoffBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := h.store.Persist(ctx, view); err != nil {
			h.logger.Warn().Err(err).Int("attempt", attempt).Msg("Persist attempt failed.")
			return retry.RetryableError(err)
		}
		return nil
	})

	h.healthMu.Lock()
	defer h.healthMu.Unlock()

	if err != nil {
		if !h.degraded {
			h.logger.Error().Err(err).Int("messages", len(view)).Msg("History persistence failed. Continuing in memory-only mode.")
		}
		h.degraded = true
		h.lastErr = err
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if h.degraded {
		h.logger.Info().Int("messages", len(view)).Msg("History persistence recovered.")
	}
	h.degraded = false
	h.lastErr = nil
	return nil
}

// Health reports whether durable storage is keeping up with the in-memory history.
func (h *History) Health() HistoryHealth {
	h.healthMu.RLock()
	defer h.healthMu.RUnlock()

	health := HistoryHealth{
		Backend:  h.store.Name(),
		Degraded: h.degraded,
		Size:     h.Len(),
	}
	if h.lastErr != nil {
		health.LastError = h.lastErr.Error()
	}
	return health
}

// Close flushes the history one last time and closes the store.
func (h *History) Close(ctx context.Context) error {
	persistErr := h.Persist(ctx)
	closeErr := h.store.Close()
	return errors.Join(persistErr, closeErr)
}
