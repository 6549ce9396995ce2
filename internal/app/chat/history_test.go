package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chatcast/internal/app/message"
	"chatcast/internal/app/storage"
)

// flakyStore fails every Persist while failing is set, and records what it was given.
type flakyStore struct {
	mu       sync.Mutex
	failing  bool
	calls    int
	last     []message.Message
	loadErr  error
	loadWith []message.Message
}

func (f *flakyStore) Name() string { return "flaky" }

func (f *flakyStore) Load(context.Context) ([]message.Message, error) {
	return f.loadWith, f.loadErr
}

func (f *flakyStore) Persist(_ context.Context, history []message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failing {
		return errors.New("disk full")
	}
	f.last = history
	return nil
}

func (f *flakyStore) Close() error { return nil }

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func TestHistory_AppendPreservesOrder(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{}
	history := NewHistory(store, 0)

	req.NoError(history.Append(ctx, message.New("alice", "one")))
	req.NoError(history.Append(ctx, message.New("bob", "two")))

	want := []message.Message{message.New("alice", "one"), message.New("bob", "two")}
	req.Equal(want, history.Snapshot())
	req.Equal(want, store.last)
	req.Equal(2, history.Len())
}

func TestHistory_SnapshotIsACopy(t *testing.T) {
	req := require.New(t)
	history := NewHistory(storage.NewMemoryStore(), 0)
	req.NoError(history.Append(context.Background(), message.New("alice", "one")))

	snapshot := history.Snapshot()
	snapshot[0] = message.New("mallory", "edited")

	req.Equal(message.New("alice", "one"), history.Snapshot()[0])
}

func TestHistory_EmptySnapshotIsNotNil(t *testing.T) {
	history := NewHistory(storage.NewMemoryStore(), 0)
	require.NotNil(t, history.Snapshot())
	require.Empty(t, history.Snapshot())
}

func TestHistory_PersistFailureDegradesAndRecovers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &flakyStore{failing: true}
	history := NewHistory(store, 2)

	err := history.Append(ctx, message.New("alice", "kept"))
	req.ErrorIs(err, ErrPersistence)
	req.Equal(3, store.calls)

	// the message is still readable
	req.Equal([]message.Message{message.New("alice", "kept")}, history.Snapshot())

	health := history.Health()
	req.True(health.Degraded)
	req.Equal("flaky", health.Backend)
	req.Contains(health.LastError, "disk full")
	req.Equal(1, health.Size)

	store.setFailing(false)
	req.NoError(history.Append(ctx, message.New("bob", "later")))

	health = history.Health()
	req.False(health.Degraded)
	req.Empty(health.LastError)
	req.Len(store.last, 2)
}

func TestHistory_LoadFailureStartsEmpty(t *testing.T) {
	req := require.New(t)
	store := &flakyStore{
		loadErr:  errors.New("corrupt"),
		loadWith: []message.Message{message.New("ghost", "boo")},
	}
	history := NewHistory(store, 0)

	req.Error(history.Load(context.Background()))
	req.Zero(history.Len())
}

func TestHistory_SurvivesRestartWithFileStore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "messages.json")

	first := NewHistory(storage.NewFileStore(path), 0)
	req.NoError(first.Load(ctx))
	req.NoError(first.Append(ctx, message.New("alice", "hello")))
	req.NoError(first.Append(ctx, message.New("bob", "hi: there")))
	req.NoError(first.Close(ctx))

	second := NewHistory(storage.NewFileStore(path), 0)
	req.NoError(second.Load(ctx))
	req.Equal([]message.Message{
		message.New("alice", "hello"),
		message.New("bob", "hi: there"),
	}, second.Snapshot())
}

func TestHistory_ConcurrentAppendsAreAllKept(t *testing.T) {
	req := require.New(t)
	store := &flakyStore{}
	history := NewHistory(store, 0)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = history.Append(context.Background(), message.New("alice", "x"))
		}()
	}
	wg.Wait()

	req.Equal(20, history.Len())
	req.Len(store.last, 20)
}
