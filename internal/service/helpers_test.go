package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/memory"
)

const presenter = "presenter-1"

// fakeClock - ручные часы для тестов лимита времени.
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{cur: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type env struct {
	store     *memory.Store
	clock     *fakeClock
	sessions  *SessionService
	questions *QuestionService
	members   *MemberService
	responses *ResponseService
	analytics *AnalyticsService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st := memory.NewStore()
	clk := newFakeClock()
	var seq atomic.Int64
	ids := func() string { return fmt.Sprintf("id-%04d", seq.Add(1)) }

	e := &env{
		store:     st,
		clock:     clk,
		sessions:  NewSessionService(st),
		questions: NewQuestionService(st, st),
		members:   NewMemberService(st, st),
		responses: NewResponseService(st, st),
		analytics: NewAnalyticsService(st, st, st),
	}
	for _, c := range []interface {
		SetClock(func() time.Time)
		SetIDGenerator(func() string)
	}{e.sessions, e.questions, e.members, e.responses} {
		c.SetClock(clk.Now)
		c.SetIDGenerator(ids)
	}
	return e
}

func (e *env) session(t *testing.T, maxParticipants int) string {
	t.Helper()
	sess, err := e.sessions.CreateSession(t.Context(), presenter, "Weekly sync", maxParticipants)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess.ID
}

func (e *env) question(t *testing.T, sessionID string, in domain.QuestionInput) string {
	t.Helper()
	if in.Title == "" {
		in.Title = "Question"
	}
	q, err := e.questions.CreateQuestion(t.Context(), presenter, sessionID, in)
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q.ID
}

func (e *env) join(t *testing.T, sessionID, uniqueID string) string {
	t.Helper()
	p, _, err := e.members.Join(t.Context(), sessionID, uniqueID, nil)
	if err != nil {
		t.Fatalf("Join(%s): %v", uniqueID, err)
	}
	return p.ID
}

func (e *env) activate(t *testing.T, sessionID, questionID string) {
	t.Helper()
	if _, err := e.sessions.ActivateQuestion(t.Context(), presenter, sessionID, questionID); err != nil {
		t.Fatalf("ActivateQuestion: %v", err)
	}
}

func (e *env) submit(t *testing.T, sessionID, questionID, participantID, answer string) {
	t.Helper()
	if _, err := e.responses.Submit(t.Context(), sessionID, questionID, participantID, answer); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

var openEnded = domain.QuestionInput{Type: domain.TypeOpenEnded}
