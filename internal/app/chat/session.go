package chat

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chatcast/internal/app/message"
	"chatcast/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192
)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Session struct represents one upgraded WebSocket connection.
// It runs two duties: inbound turns client frames into posted messages, outbound writes
// every published message to the client. Either one ending ends the other.
type Session struct {
	// ID is a random identifier used only for logging.
	ID string

	hub  *Hub
	conn *websocket.Conn
	sub  *Subscription

	state atomic.Int32

	logger zerolog.Logger
}

// NewSession constructs and returns a new Session for an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	id := uuid.NewString()

	return &Session{
		ID:   id,
		hub:  hub,
		conn: conn,
		logger: logx.Logger().With().
			Str("session_id", id).
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Run subscribes the session and blocks until the connection ends or ctx is cancelled.
// The connection is always closed when Run returns.
func (s *Session) Run(ctx context.Context) error {
	if err := s.hub.track(); err != nil {
		s.closeConn()
		s.setState(StateClosed)
		return err
	}
	defer s.hub.untrack()

	sub, backlog := s.hub.Join()
	s.sub = sub
	s.setState(StateActive)

	s.logger.Info().
		Uint64("subscription_id", sub.ID()).
		Int("backlog", len(backlog)).
		Int("online", s.hub.Online()).
		Msg("Session started.")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// the subscription closing is what stops the outbound duty
		defer s.hub.Leave(sub)
		return s.inbound(gctx)
	})

	g.Go(func() error {
		// the connection closing is what stops the inbound duty
		defer s.closeConn()
		return s.outbound(gctx, backlog)
	})

	err := g.Wait()
	s.setState(StateClosed)

	s.logger.Info().
		Err(err).
		Uint64("dropped", sub.Dropped()).
		Msg("Session closed.")

	return err
}

// inbound reads frames until the client goes away.
func (s *Session) inbound(ctx context.Context) error {
	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.setState(StateClosing)

			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			return nil
		}

		if messageType != websocket.TextMessage {
			s.logger.Debug().Int("message_type", messageType).Msg("Ignoring non-text frame")
			continue
		}

		s.processFrame(ctx, string(data))
	}
}

// processFrame parses one text frame and posts it. Malformed frames are ignored.
func (s *Session) processFrame(ctx context.Context, frame string) {
	msg, ok := message.ParseFrame(frame)
	if !ok {
		s.logger.Debug().Str("frame", frame).Msg("Ignoring malformed frame")
		return
	}

	if err := s.hub.Post(ctx, msg, s.sub.ID()); err != nil {
		if errors.Is(err, ErrPersistence) {
			s.logger.Warn().Err(err).Str("sender", msg.Sender).Msg("Message delivered but not persisted")
			return
		}
		s.logger.Error().Err(err).Str("sender", msg.Sender).Msg("Failed to post message")
	}
}

// outbound writes the backlog, then every published message, and keeps the heartbeat.
func (s *Session) outbound(ctx context.Context, backlog []message.Message) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for _, msg := range backlog {
		if err := s.writeFrame(msg); err != nil {
			return err
		}
	}

	for {
		select {
		case msg, ok := <-s.sub.C():
			if !ok {
				s.setState(StateClosing)
				s.writeClose(websocket.CloseNormalClosure, "")
				return nil
			}
			if err := s.writeFrame(msg); err != nil {
				return err
			}

		case <-ticker.C:
			if err := s.writePing(); err != nil {
				return err
			}

		case <-ctx.Done():
			s.setState(StateClosing)
			s.writeClose(websocket.CloseGoingAway, "server shutting down")
			return nil
		}
	}
}

func (s *Session) writeFrame(msg message.Message) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(msg.Frame())); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// writePing sends a periodic WebSocket Ping message to maintain the connection heartbeat.
func (s *Session) writePing() error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline on ping: %w", err)
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		return fmt.Errorf("write ping: %w", err)
	}

	return nil
}

// writeClose sends a close frame; failures only matter for logging.
func (s *Session) writeClose(code int, reason string) {
	closeMessage := websocket.FormatCloseMessage(code, reason)

	if err := s.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to send close frame")
	}
}

func (s *Session) closeConn() {
	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Session connection close error")
	}
}
