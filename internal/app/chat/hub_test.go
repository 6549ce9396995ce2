package chat

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chatcast/internal/app/message"
	"chatcast/internal/app/storage"
)

func newTestHub(opts HubOptions) *Hub {
	return NewHub(NewHistory(storage.NewMemoryStore(), 0), NewBus(DefaultSubscriberBuffer), opts)
}

// newTestServer serves WebSocket sessions on the given hub.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go func() { _ = NewSession(hub, conn).Run(hub.Context()) }()
	}))
	t.Cleanup(server.Close)

	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	return string(data)
}

func waitOnline(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Online() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PostKeepsHistoryAndDeliveryOrderIdentical(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: true})

	sub, _ := hub.Join()

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				_ = hub.Post(context.Background(), message.New(fmt.Sprint("w", w), fmt.Sprint(i)), 0)
			}
		}()
	}
	wg.Wait()

	req.Equal(hub.History().Snapshot(), drain(sub))
}

func TestHub_JoinReplaysWithoutGapOrOverlap(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{ReplayHistory: true, EchoToSender: true})

	req.NoError(hub.Post(context.Background(), message.New("alice", "old"), 0))

	sub, backlog := hub.Join()
	req.NoError(hub.Post(context.Background(), message.New("alice", "new"), 0))

	req.Equal([]message.Message{message.New("alice", "old")}, backlog)
	req.Equal([]message.Message{message.New("alice", "new")}, drain(sub))
}

func TestHub_JoinWithoutReplayHasNoBacklog(t *testing.T) {
	hub := newTestHub(HubOptions{})
	require.NoError(t, hub.Post(context.Background(), message.New("alice", "old"), 0))

	_, backlog := hub.Join()
	require.Empty(t, backlog)
}

func TestHub_PostWithoutEchoSkipsOrigin(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: false})

	origin, _ := hub.Join()
	other, _ := hub.Join()

	req.NoError(hub.Post(context.Background(), message.New("alice", "hi"), origin.ID()))

	req.Empty(drain(origin))
	req.Len(drain(other), 1)
	req.Equal(1, hub.History().Len())
}

func TestSession_BroadcastsToAllConnectedClients(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: true})
	server := newTestServer(t, hub)

	alice := dial(t, server)
	bob := dial(t, server)
	waitOnline(t, hub, 2)

	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte("alice: hello")))

	req.Equal("alice: hello", readFrame(t, alice))
	req.Equal("alice: hello", readFrame(t, bob))
	req.Equal([]message.Message{message.New("alice", "hello")}, hub.History().Snapshot())
}

func TestSession_IgnoresMalformedAndBinaryFrames(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: true})
	server := newTestServer(t, hub)

	conn := dial(t, server)
	waitOnline(t, hub, 1)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("no delimiter here")))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("")))
	req.NoError(conn.WriteMessage(websocket.BinaryMessage, []byte("alice: binary")))
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("alice: a: b")))

	// the first frame back is the only valid one
	req.Equal("alice: a: b", readFrame(t, conn))
	req.Equal([]message.Message{message.New("alice", "a: b")}, hub.History().Snapshot())
}

func TestSession_ReplaysHistoryBeforeLiveMessages(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{ReplayHistory: true, EchoToSender: true})
	req.NoError(hub.Post(context.Background(), message.New("alice", "earlier"), 0))

	server := newTestServer(t, hub)
	conn := dial(t, server)

	req.Equal("alice: earlier", readFrame(t, conn))

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("bob: now")))
	req.Equal("bob: now", readFrame(t, conn))
}

func TestSession_DisconnectUnsubscribes(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: true})
	server := newTestServer(t, hub)

	leaving := dial(t, server)
	staying := dial(t, server)
	waitOnline(t, hub, 2)

	req.NoError(leaving.Close())
	waitOnline(t, hub, 1)

	req.NoError(staying.WriteMessage(websocket.TextMessage, []byte("bob: still here")))
	req.Equal("bob: still here", readFrame(t, staying))
}

func TestSession_WriteFailureEndsSession(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{EchoToSender: true})
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })

	type ended struct {
		session *Session
		err     error
	}
	done := make(chan ended, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// the server can still read, but every write now fails
		tcp, ok := conn.UnderlyingConn().(*net.TCPConn)
		if !ok || tcp.CloseWrite() != nil {
			_ = conn.Close()
			return
		}

		session := NewSession(hub, conn)
		go func() { done <- ended{session: session, err: session.Run(hub.Context())} }()
	}))
	t.Cleanup(server.Close)

	_ = dial(t, server)
	waitOnline(t, hub, 1)

	req.NoError(hub.Post(context.Background(), message.New("alice", "unwritable"), 0))

	select {
	case result := <-done:
		req.Error(result.err)
		req.Equal(StateClosed, result.session.State())
	case <-time.After(2 * time.Second):
		req.FailNow("session did not stop after a failed write")
	}

	// the inbound duty stopped and released the subscription
	waitOnline(t, hub, 0)

	// later posts reach no one and do not block
	req.NoError(hub.Post(context.Background(), message.New("alice", "after"), 0))
	req.Len(hub.History().Snapshot(), 2)
}

func TestHub_ShutdownClosesSessions(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(HubOptions{})
	server := newTestServer(t, hub)

	conn := dial(t, server)
	waitOnline(t, hub, 1)

	req.NoError(hub.Shutdown(2 * time.Second))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway))

	req.ErrorIs(hub.track(), ErrHubClosed)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "connecting", StateConnecting.String())
	require.Equal(t, "active", StateActive.String())
	require.Equal(t, "closing", StateClosing.String())
	require.Equal(t, "closed", StateClosed.String())
}
