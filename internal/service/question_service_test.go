package service

import (
	"errors"
	"testing"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

func TestCreateQuestion_AppendsSortOrder(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	e.question(t, sid, domain.QuestionInput{Type: domain.TypeOpenEnded, SortOrder: intPtr(7)})
	id := e.question(t, sid, openEnded)

	q, err := e.questions.GetQuestion(t.Context(), id)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.SortOrder != 8 {
		t.Fatalf("sortOrder = %d, want 8", q.SortOrder)
	}
}

func TestCreateQuestion_Rules(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)

	_, err := e.questions.CreateQuestion(t.Context(), "intruder", sid, domain.QuestionInput{Title: "Q", Type: domain.TypeRating})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign presenter: %v", err)
	}
	_, err = e.questions.CreateQuestion(t.Context(), presenter, sid, domain.QuestionInput{Title: "Q", Type: domain.TypeMultipleChoice, Options: []string{"only"}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("single option: %v", err)
	}

	e.sessions.EndSession(t.Context(), presenter, sid)
	_, err = e.questions.CreateQuestion(t.Context(), presenter, sid, domain.QuestionInput{Title: "Q", Type: domain.TypeRating})
	if !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("ended session: %v", err)
	}
}

func TestUpdateQuestion_FrozenAfterResponses(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	in := domain.QuestionInput{Title: "Pick", Type: domain.TypeMultipleChoice, Options: []string{"A", "B"}}
	q := e.question(t, sid, in)

	in.Options = []string{"A", "B", "C"}
	if _, err := e.questions.UpdateQuestion(t.Context(), presenter, q, in); err != nil {
		t.Fatalf("edit before responses: %v", err)
	}

	p := e.join(t, sid, "dev")
	e.activate(t, sid, q)
	e.submit(t, sid, q, p, "C")

	in.Options = []string{"A", "B"}
	if _, err := e.questions.UpdateQuestion(t.Context(), presenter, q, in); !errors.Is(err, domain.ErrQuestionHasResponses) {
		t.Fatalf("options change after responses: %v", err)
	}

	in.Options = []string{"A", "B", "C"}
	in.Title = "Pick one"
	in.TimeLimit = 20
	got, err := e.questions.UpdateQuestion(t.Context(), presenter, q, in)
	if err != nil {
		t.Fatalf("title change after responses: %v", err)
	}
	if got.Title != "Pick one" || got.TimeLimit != 20 {
		t.Fatalf("unexpected question: %+v", got)
	}
}

func TestReorderQuestions(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	a := e.question(t, sid, openEnded)
	b := e.question(t, sid, openEnded)
	c := e.question(t, sid, openEnded)

	list, err := e.questions.ReorderQuestions(t.Context(), presenter, sid, []string{c, a, b})
	if err != nil {
		t.Fatalf("ReorderQuestions: %v", err)
	}
	if list[0].ID != c || list[1].ID != a || list[2].ID != b {
		t.Fatalf("unexpected order: %+v", list)
	}

	if _, err := e.questions.ReorderQuestions(t.Context(), presenter, sid, []string{a, a}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("duplicate ids: %v", err)
	}
	other := e.session(t, 0)
	foreign := e.question(t, other, openEnded)
	if _, err := e.questions.ReorderQuestions(t.Context(), presenter, sid, []string{a, foreign}); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("foreign id: %v", err)
	}
}
