package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

func TestSubmit_LastWriteWins(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, domain.QuestionInput{Type: domain.TypeMultipleChoice, Options: []string{"A", "B"}})
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)

	first, err := e.responses.Submit(t.Context(), sid, q, p, "A")
	if err != nil {
		t.Fatalf("Submit A: %v", err)
	}
	e.clock.Advance(time.Second)
	second, err := e.responses.Submit(t.Context(), sid, q, p, " B ")
	if err != nil {
		t.Fatalf("Submit B: %v", err)
	}
	if second.ID != first.ID || !second.AnsweredAt.After(first.AnsweredAt) {
		t.Fatalf("resubmission must overwrite the same row: %+v vs %+v", first, second)
	}

	res, err := e.analytics.Results(t.Context(), q)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.TotalResponses != 1 || res.Counts["B"] != 1 || len(res.Counts) != 1 {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestSubmit_StateErrors(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q1 := e.question(t, sid, openEnded)
	q2 := e.question(t, sid, openEnded)
	p := e.join(t, sid, "dev")

	cases := []struct {
		name    string
		prepare func()
		session string
		qid     string
		pid     string
		want    error
	}{
		{"missing session", func() {}, "missing", q1, p, domain.ErrSessionNotFound},
		{"draft session", func() {}, sid, q1, p, domain.ErrSessionNotActive},
		{"inactive question", func() { e.activate(t, sid, q1) }, sid, q2, p, domain.ErrQuestionNotActive},
		{"unknown question", func() {}, sid, "missing", p, domain.ErrQuestionNotActive},
		{"unknown participant", func() {}, sid, q1, "missing", domain.ErrParticipantNotFound},
		{"ended session", func() { e.sessions.EndSession(t.Context(), presenter, sid) }, sid, q1, p, domain.ErrSessionNotActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.prepare()
			_, err := e.responses.Submit(t.Context(), tc.session, tc.qid, tc.pid, "answer")
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSubmit_TimeLimit(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, domain.QuestionInput{Type: domain.TypeOpenEnded, TimeLimit: 30})
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)

	e.clock.Advance(30 * time.Second)
	e.submit(t, sid, q, p, "just in time")

	e.clock.Advance(time.Second)
	if _, err := e.responses.Submit(t.Context(), sid, q, p, "late"); !errors.Is(err, domain.ErrTimeExpired) {
		t.Fatalf("expected ErrTimeExpired, got %v", err)
	}

	// Повторная активация перезапускает таймер.
	e.activate(t, sid, q)
	e.submit(t, sid, q, p, "after restart")
}

func TestSubmit_ValidatesAnswer(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	mc := e.question(t, sid, domain.QuestionInput{Type: domain.TypeMultipleChoice, Options: []string{"Yes", "No"}})
	rating := e.question(t, sid, domain.QuestionInput{Type: domain.TypeRating})
	p := e.join(t, sid, "dev")

	e.activate(t, sid, mc)
	if _, err := e.responses.Submit(t.Context(), sid, mc, p, "Maybe"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown option: %v", err)
	}
	if _, err := e.responses.Submit(t.Context(), sid, mc, p, "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty answer: %v", err)
	}

	e.activate(t, sid, rating)
	if _, err := e.responses.Submit(t.Context(), sid, rating, p, "11"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("rating out of range: %v", err)
	}
	r, err := e.responses.Submit(t.Context(), sid, rating, p, "07")
	if err != nil || r.Answer != "7" {
		t.Fatalf("rating canonical form: %+v %v", r, err)
	}
}

func TestSubmit_SessionStateBeforeAnswerShape(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, domain.QuestionInput{Type: domain.TypeMultipleChoice, Options: []string{"Yes", "No"}})
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)

	if _, _, err := e.sessions.EndSession(t.Context(), presenter, sid); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	_, err := e.responses.Submit(t.Context(), sid, q, p, "Maybe")
	if !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("want ErrSessionNotActive, got %v", err)
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("answer shape must not be reported for an ended session: %v", err)
	}
}

func TestSubmit_ConcurrentSameParticipant(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, openEnded)
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)

	var wg sync.WaitGroup
	for i := range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.responses.Submit(t.Context(), sid, q, p, fmt.Sprintf("answer %d", i)); err != nil {
				t.Errorf("Submit: %v", err)
			}
		}()
	}
	wg.Wait()

	rs, err := e.responses.ListResponses(t.Context(), q)
	if err != nil {
		t.Fatalf("ListResponses: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("want exactly one response row, got %d", len(rs))
	}
}

func TestHasResponded(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, openEnded)
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)

	ok, err := e.responses.HasResponded(t.Context(), q, p)
	if err != nil || ok {
		t.Fatalf("before submit: %v %v", ok, err)
	}
	e.submit(t, sid, q, p, "hi")
	ok, err = e.responses.HasResponded(t.Context(), q, p)
	if err != nil || !ok {
		t.Fatalf("after submit: %v %v", ok, err)
	}
}

func TestDeleteQuestion_CascadesResponses(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, openEnded)
	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)
	e.submit(t, sid, q, p, "hi")

	if _, err := e.questions.DeleteQuestion(t.Context(), presenter, q); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	sess, _ := e.sessions.GetSession(t.Context(), sid)
	if sess.ActiveQuestionID != nil || sess.QuestionStartedAt != nil {
		t.Fatalf("active pointer must be cleared: %+v", sess)
	}
	a, _ := e.analytics.SessionAnalytics(t.Context(), sid)
	if a.TotalResponses != 0 || a.TotalQuestions != 0 {
		t.Fatalf("responses must be removed with the question: %+v", a)
	}
	if ok, _ := e.responses.HasResponded(t.Context(), q, p); ok {
		t.Fatalf("HasResponded after delete")
	}
}
