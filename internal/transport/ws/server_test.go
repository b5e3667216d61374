package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/memory"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server, *domain.Session) {
	t.Helper()
	store := memory.NewStore()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sess, err := domain.NewSession("s1", "ABC123", "p1", "Demo", 0, now)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := store.CreateSession(t.Context(), sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	hub := NewHub()
	srv := NewServer(hub, store, Config{PingInterval: time.Second})
	r := chi.NewRouter()
	r.Get("/ws/sessions/{id}", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return hub, ts, sess
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestServer_StateThenBroadcast(t *testing.T) {
	hub, ts, sess := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/sessions/"+sess.ID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var state Message
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Type != TypeState || state.SessionID != sess.ID {
		t.Fatalf("first message = %+v", state)
	}

	hub.Publish(sess.ID, TypeQuestionActivated, QuestionActivatedPayload{QuestionID: "q1", StartedAt: time.Now()})

	var ev Message
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != TypeQuestionActivated {
		t.Fatalf("event = %+v", ev)
	}
	payload, ok := ev.Payload.(map[string]any)
	if !ok || payload["questionId"] != "q1" {
		t.Fatalf("payload = %#v", ev.Payload)
	}
}

func TestServer_UnknownSession(t *testing.T) {
	_, ts, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/ws/sessions/missing"), nil)
	if err == nil {
		t.Fatalf("expected dial error")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("resp = %+v", resp)
	}
}
