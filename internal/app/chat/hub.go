/*
Package chat contains the core logic for the broadcast chat.

This file defines the Hub, the central coordinator shared by every session. It is the
single point where a message is appended to the history and published on the bus, which
fixes one global delivery order, and it owns the lifecycle of all sessions.
*/
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatcast/internal/app/message"
	"chatcast/internal/pkg/logx"
)

// ErrHubClosed is returned when a session tries to start after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// HubOptions tunes session behaviour.
type HubOptions struct {
	// ReplayHistory sends the full history to a session before live messages.
	ReplayHistory bool

	// EchoToSender delivers a message back to the session that posted it.
	EchoToSender bool
}

// Hub struct coordinates the history, the bus and all live sessions.
type Hub struct {
	history *History
	bus     *Bus
	opts    HubOptions

	// postMu makes append+publish (and subscribe+snapshot) atomic.
	postMu sync.Mutex

	// ctx is cancelled by Shutdown; sessions run under it.
	ctx    context.Context
	cancel context.CancelFunc

	// sessions counts running sessions; lifeMu guards Add against Shutdown's Wait.
	sessions sync.WaitGroup
	lifeMu   sync.Mutex
	closed   bool

	logger zerolog.Logger
}

// NewHub constructs and returns a new Hub instance.
func NewHub(history *History, bus *Bus, opts HubOptions) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		history: history,
		bus:     bus,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logx.Component("Hub"),
	}
}

// Context is cancelled when the hub shuts down.
func (h *Hub) Context() context.Context { return h.ctx }

// History returns the hub's message history.
func (h *Hub) History() *History { return h.history }

// Online returns the number of live subscriptions.
func (h *Hub) Online() int { return h.bus.Len() }

// Post appends msg to the history, persists it and publishes it, as one step.
// origin is the posting subscription's ID; it is skipped when echo is disabled.
// Persistence failures are returned, but the message is still delivered: the history
// keeps it in memory and reports itself degraded.
func (h *Hub) Post(ctx context.Context, msg message.Message, origin uint64) error {
	h.postMu.Lock()
	defer h.postMu.Unlock()

	err := h.history.Append(ctx, msg)

	if h.opts.EchoToSender {
		h.bus.Publish(msg)
	} else {
		h.bus.PublishExcept(msg, origin)
	}

	return err
}

// Join subscribes a new session. When history replay is enabled it also returns the
// history as of the subscription, with no gap or overlap against the live stream.
func (h *Hub) Join() (*Subscription, []message.Message) {
	h.postMu.Lock()
	defer h.postMu.Unlock()

	sub := h.bus.Subscribe()

	var backlog []message.Message
	if h.opts.ReplayHistory {
		backlog = h.history.Snapshot()
	}

	return sub, backlog
}

// Leave releases a session's subscription.
func (h *Hub) Leave(sub *Subscription) {
	h.bus.Unsubscribe(sub)
}

// track registers a running session. It fails once the hub is shutting down.
func (h *Hub) track() error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.sessions.Add(1)
	return nil
}

func (h *Hub) untrack() {
	h.sessions.Done()
}

// Shutdown stops all sessions, waits for them up to timeout, and flushes the history.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info().Msg("Shutting down Hub...")

	h.lifeMu.Lock()
	h.closed = true
	h.lifeMu.Unlock()

	h.cancel()
	h.bus.Close()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
		h.logger.Info().Msg("All sessions closed.")
	case <-time.After(timeout):
		h.logger.Warn().Dur("timeout", timeout).Msg("Hub shutdown timeout reached, some sessions may still be running.")
		waitErr = context.DeadlineExceeded
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := h.history.Close(flushCtx); err != nil {
		h.logger.Error().Err(err).Msg("Final history flush failed.")
		return errors.Join(waitErr, err)
	}

	h.logger.Info().Msg("Hub shutdown complete.")
	return waitErr
}
