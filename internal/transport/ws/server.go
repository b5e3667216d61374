package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

var (
	errSlowConsumer = errors.New("ws: send buffer is full")
	errConnClosed   = errors.New("ws: connection closed")
)

type SessionGetter interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
}

type Config struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	sessions SessionGetter

	pingEvery    time.Duration
	writeTimeout time.Duration
	sendBuffer   int
}

func NewServer(hub *Hub, sessions SessionGetter, cfg Config) *Server {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	return &Server{
		hub:      hub,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:    cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		sendBuffer:   cfg.SendBuffer,
	}
}

// WS endpoint: GET /ws/sessions/{id}. Канал только на чтение, без авторизации:
// события не содержат ответов участников.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	sess, err := s.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Error("ws get session failed", "session", sessionID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		log.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn, sessionID, s.sendBuffer)
	s.hub.Add(c)
	log.Debug("ws subscribed", "session", sessionID, "subscribers", s.hub.Count(sessionID))

	_ = c.Send(Message{
		Type:      TypeState,
		SessionID: sessionID,
		Payload: StatePayload{
			Status:            string(sess.Status),
			ActiveQuestionID:  sess.ActiveQuestionID,
			QuestionStartedAt: sess.QuestionStartedAt,
			Subscribers:       s.hub.Count(sessionID),
		},
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writeLoop(ctx, c)
	s.readLoop(c)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		log.Debug("ws close failed", "session", sessionID, "err", err)
	}
}

// readLoop только продлевает дедлайн по pong и ловит закрытие соединения.
func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(4 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				_ = c.Close()
				return
			}
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	out       chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, sessionID string, buffer int) *wsConn {
	return &wsConn{
		conn:      c,
		sessionID: sessionID,
		out:       make(chan Message, buffer),
		closed:    make(chan struct{}),
	}
}

// Send не блокируется: при переполненном буфере соединение считается медленным.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.out <- msg:
		return nil
	default:
		return errSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) SessionID() string { return c.sessionID }
