package ws

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu        sync.Mutex
	sessionID string
	got       []Message
	fail      bool
	closed    bool
}

func (c *fakeConn) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("boom")
	}
	c.got = append(c.got, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) SessionID() string { return c.sessionID }

func TestHub_BroadcastScopedToSession(t *testing.T) {
	h := NewHub()
	a := &fakeConn{sessionID: "s1"}
	b := &fakeConn{sessionID: "s1"}
	other := &fakeConn{sessionID: "s2"}
	h.Add(a)
	h.Add(b)
	h.Add(other)

	h.Publish("s1", TypeSessionEnded, nil)

	for _, c := range []*fakeConn{a, b} {
		if len(c.got) != 1 || c.got[0].Type != TypeSessionEnded || c.got[0].SessionID != "s1" {
			t.Fatalf("unexpected messages: %+v", c.got)
		}
	}
	if len(other.got) != 0 {
		t.Fatalf("foreign session received %+v", other.got)
	}
}

func TestHub_DropsFailingConn(t *testing.T) {
	h := NewHub()
	bad := &fakeConn{sessionID: "s1", fail: true}
	good := &fakeConn{sessionID: "s1"}
	h.Add(bad)
	h.Add(good)

	h.Publish("s1", TypeQuestionsChanged, QuestionsChangedPayload{Action: "created"})

	if !bad.closed {
		t.Fatalf("failing conn must be closed")
	}
	if got := h.Count("s1"); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
	if len(good.got) != 1 {
		t.Fatalf("good conn got %d messages", len(good.got))
	}
}

func TestHub_RemoveLastDeletesSession(t *testing.T) {
	h := NewHub()
	c := &fakeConn{sessionID: "s1"}
	h.Add(c)
	h.Remove(c)
	h.Remove(c)

	if got := h.Count("s1"); got != 0 {
		t.Fatalf("count = %d", got)
	}
	if _, ok := h.sessions["s1"]; ok {
		t.Fatalf("empty session set must be removed")
	}
}
