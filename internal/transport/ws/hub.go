package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	SessionID() string
}

// Hub держит подписчиков по сессиям. Доставка best-effort: медленного
// подписчика отключаем, остальным рассылка не блокируется.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Conn]struct{} // sessionID -> set of connections
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs, ok := h.sessions[c.SessionID()]
	if !ok {
		cs = make(map[Conn]struct{})
		h.sessions[c.SessionID()] = cs
	}
	cs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cs, ok := h.sessions[c.SessionID()]; ok {
		delete(cs, c)
		if len(cs) == 0 {
			delete(h.sessions, c.SessionID())
		}
	}
}

// Count - число подписчиков сессии.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) Broadcast(sessionID string, msg Message) {
	msg.SessionID = sessionID

	h.mu.RLock()
	var dropped []Conn
	for c := range h.sessions[sessionID] {
		if err := c.Send(msg); err != nil {
			dropped = append(dropped, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dropped {
		h.Remove(c)
		_ = c.Close()
	}
}

// Publish - удобная обёртка для обработчиков HTTP.
func (h *Hub) Publish(sessionID, typ string, payload any) {
	h.Broadcast(sessionID, Message{Type: typ, Payload: payload})
}
