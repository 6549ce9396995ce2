/*
Package chat contains the core logic for the broadcast chat: the ordered message
history, the in-process broadcast bus, the hub that ties them together and the
per-connection WebSocket sessions.

This file defines the Bus, a single-writer multi-reader fan-out of messages. Every
subscriber owns a bounded queue; publishing never blocks. When a subscriber's queue is
full the oldest message queued for that subscriber is dropped to make room, and only that
subscriber loses it.
*/
package chat

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"chatcast/internal/app/message"
	"chatcast/internal/pkg/logx"
)

// DefaultSubscriberBuffer is the per-subscriber queue capacity used when none is configured.
const DefaultSubscriberBuffer = 100

// Subscription is the receiving side of one Bus subscriber.
type Subscription struct {
	id      uint64
	ch      chan message.Message
	dropped atomic.Uint64
}

// ID identifies the subscription on its Bus.
func (s *Subscription) ID() uint64 { return s.id }

// C yields every message published after the subscription was created, in publish order.
// It is closed when the subscription is released.
func (s *Subscription) C() <-chan message.Message { return s.ch }

// Dropped reports how many messages were discarded because this subscriber fell behind.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Bus distributes published messages to all current subscribers.
type Bus struct {
	// subscribers holds every live subscription, keyed by ID.
	subscribers map[uint64]*Subscription

	// buffer is the capacity of each subscriber queue.
	buffer int

	// nextID is the ID handed to the next subscription.
	nextID uint64

	// closed rejects new subscriptions once the bus is shut down.
	closed bool

	// mu serializes publishes against subscriber set changes.
	mu sync.Mutex

	logger zerolog.Logger
}

// NewBus constructs a Bus whose subscribers each buffer up to buffer messages.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	return &Bus{
		subscribers: make(map[uint64]*Subscription),
		buffer:      buffer,
		nextID:      1,
		logger:      logx.Component("Bus"),
	}
}

// Subscribe registers a new subscriber. On a closed bus it returns an already-closed subscription.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id: b.nextID,
		ch: make(chan message.Message, b.buffer),
	}
	b.nextID++

	if b.closed {
		close(sub.ch)
		return sub
	}

	b.subscribers[sub.id] = sub
	b.logger.Debug().Uint64("subscription_id", sub.id).Int("subscribers", len(b.subscribers)).Msg("Subscriber added.")
	return sub
}

// Unsubscribe releases the subscription and closes its channel. Calling it twice is harmless.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub.id]; !ok {
		return
	}

	delete(b.subscribers, sub.id)
	close(sub.ch)

	b.logger.Debug().Uint64("subscription_id", sub.id).Int("subscribers", len(b.subscribers)).Msg("Subscriber removed.")
}

// Publish delivers msg to every subscriber.
func (b *Bus) Publish(msg message.Message) {
	b.PublishExcept(msg, 0)
}

// PublishExcept delivers msg to every subscriber but the one with the given ID.
// Subscription IDs start at 1, so 0 excludes nobody.
func (b *Bus) PublishExcept(msg message.Message, except uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		if id == except {
			continue
		}
		b.deliver(sub, msg)
	}
}

// deliver enqueues msg without blocking. Publishes are serialized by b.mu, so after one
// drop there is always room for the new message.
func (b *Bus) deliver(sub *Subscription, msg message.Message) {
	select {
	case sub.ch <- msg:
		return
	default:
	}

	select {
	case <-sub.ch:
		dropped := sub.dropped.Add(1)
		b.logger.Warn().
			Uint64("subscription_id", sub.id).
			Uint64("dropped_total", dropped).
			Msg("Subscriber queue full, dropped oldest message.")
	default:
	}

	select {
	case sub.ch <- msg:
	default:
		sub.dropped.Add(1)
	}
}

// Len returns the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// Close releases every subscription and rejects later ones.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}

	b.logger.Info().Msg("Bus closed.")
}
