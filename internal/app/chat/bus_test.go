package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"chatcast/internal/app/message"
)

func drain(sub *Subscription) []message.Message {
	var out []message.Message
	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBus_DeliversInPublishOrder(t *testing.T) {
	req := require.New(t)
	bus := NewBus(10)

	a := bus.Subscribe()
	b := bus.Subscribe()
	req.NotEqual(a.ID(), b.ID())
	req.Equal(2, bus.Len())

	sent := []message.Message{
		message.New("alice", "one"),
		message.New("bob", "two"),
		message.New("alice", "three"),
	}
	for _, msg := range sent {
		bus.Publish(msg)
	}

	req.Equal(sent, drain(a))
	req.Equal(sent, drain(b))
}

func TestBus_SubscriberSeesOnlyLaterMessages(t *testing.T) {
	req := require.New(t)
	bus := NewBus(10)

	bus.Publish(message.New("alice", "before"))
	sub := bus.Subscribe()
	bus.Publish(message.New("alice", "after"))

	req.Equal([]message.Message{message.New("alice", "after")}, drain(sub))
}

func TestBus_PublishExceptSkipsOrigin(t *testing.T) {
	req := require.New(t)
	bus := NewBus(10)

	origin := bus.Subscribe()
	other := bus.Subscribe()

	bus.PublishExcept(message.New("alice", "hi"), origin.ID())

	req.Empty(drain(origin))
	req.Len(drain(other), 1)
}

func TestBus_FullQueueDropsOldest(t *testing.T) {
	req := require.New(t)
	bus := NewBus(3)

	slow := bus.Subscribe()
	fast := bus.Subscribe()

	var got []message.Message
	for i := range 5 {
		msg := message.New("alice", fmt.Sprint(i))
		bus.Publish(msg)
		got = append(got, drain(fast)...)
	}

	req.Len(got, 5)
	req.Equal(uint64(0), fast.Dropped())

	req.Equal([]message.Message{
		message.New("alice", "2"),
		message.New("alice", "3"),
		message.New("alice", "4"),
	}, drain(slow))
	req.Equal(uint64(2), slow.Dropped())
}

func TestBus_UnsubscribeClosesChannelOnce(t *testing.T) {
	req := require.New(t)
	bus := NewBus(1)

	sub := bus.Subscribe()
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)

	_, ok := <-sub.C()
	req.False(ok)
	req.Zero(bus.Len())

	// publishing with no subscribers is not an error
	bus.Publish(message.New("alice", "nobody home"))
}

func TestBus_CloseReleasesSubscribers(t *testing.T) {
	req := require.New(t)
	bus := NewBus(1)

	sub := bus.Subscribe()
	bus.Close()
	bus.Close()

	_, ok := <-sub.C()
	req.False(ok)

	late := bus.Subscribe()
	_, ok = <-late.C()
	req.False(ok)
	req.Zero(bus.Len())

	// unsubscribing after close must not close the channel twice
	bus.Unsubscribe(sub)
}
