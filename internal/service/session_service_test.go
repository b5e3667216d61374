package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

func TestCreateSession_Draft(t *testing.T) {
	e := newEnv(t)

	sess, err := e.sessions.CreateSession(t.Context(), presenter, "  Retro  ", 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.Status != domain.StatusDraft || sess.Title != "Retro" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if len(sess.JoinCode) != domain.JoinCodeLen {
		t.Fatalf("join code %q", sess.JoinCode)
	}

	got, err := e.sessions.GetSessionByCode(t.Context(), " "+sess.JoinCode[:3]+strings.ToLower(sess.JoinCode[3:]))
	if err != nil {
		t.Fatalf("GetSessionByCode: %v", err)
	}
	if got.ID != sess.ID {
		t.Fatalf("resolved %s, want %s", got.ID, sess.ID)
	}
}

func TestCreateSession_RetriesJoinCodeCollision(t *testing.T) {
	e := newEnv(t)
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	e.sessions.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	first := e.session(t, 0)
	second, err := e.sessions.CreateSession(t.Context(), presenter, "Second", 0)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if second.JoinCode != "BBBBBB" || second.ID == first {
		t.Fatalf("expected retry to take next code, got %+v", second)
	}
}

func TestCreateSession_GivesUpAfterAttempts(t *testing.T) {
	e := newEnv(t)
	e.sessions.newCode = func() (string, error) { return "CCCCCC", nil }
	e.session(t, 0)

	_, err := e.sessions.CreateSession(t.Context(), presenter, "Again", 0)
	if !errors.Is(err, domain.ErrJoinCodeTaken) {
		t.Fatalf("expected ErrJoinCodeTaken, got %v", err)
	}
}

func TestActivateQuestion_Transitions(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q1 := e.question(t, sid, openEnded)
	q2 := e.question(t, sid, openEnded)

	sess, err := e.sessions.ActivateQuestion(t.Context(), presenter, sid, q1)
	if err != nil {
		t.Fatalf("ActivateQuestion: %v", err)
	}
	if sess.Status != domain.StatusActive || *sess.ActiveQuestionID != q1 {
		t.Fatalf("unexpected session after activate: %+v", sess)
	}
	started := *sess.QuestionStartedAt

	e.clock.Advance(5 * time.Second)
	sess, err = e.sessions.ActivateQuestion(t.Context(), presenter, sid, q1)
	if err != nil {
		t.Fatalf("re-activate: %v", err)
	}
	if !sess.QuestionStartedAt.After(started) {
		t.Fatalf("re-activation must reset the timer")
	}

	sess, err = e.sessions.ActivateQuestion(t.Context(), presenter, sid, q2)
	if err != nil || *sess.ActiveQuestionID != q2 {
		t.Fatalf("switch question: %v %+v", err, sess)
	}
}

func TestActivateQuestion_Errors(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	other := e.session(t, 0)
	foreign := e.question(t, other, openEnded)
	own := e.question(t, sid, openEnded)

	_, err := e.sessions.ActivateQuestion(t.Context(), presenter, sid, foreign)
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("foreign question: got %v", err)
	}
	_, err = e.sessions.ActivateQuestion(t.Context(), presenter, sid, "missing")
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("missing question: got %v", err)
	}
	_, err = e.sessions.ActivateQuestion(t.Context(), presenter, "nope", own)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: got %v", err)
	}
	_, err = e.sessions.ActivateQuestion(t.Context(), "someone-else", sid, own)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("foreign presenter: got %v", err)
	}

	if _, _, err := e.sessions.EndSession(t.Context(), presenter, sid); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	_, err = e.sessions.ActivateQuestion(t.Context(), presenter, sid, own)
	if !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("ended session: got %v", err)
	}
}

func TestEndSession_TerminalAndIdempotent(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 0)
	q := e.question(t, sid, openEnded)
	e.activate(t, sid, q)

	sess, changed, err := e.sessions.EndSession(t.Context(), presenter, sid)
	if err != nil || !changed {
		t.Fatalf("EndSession: changed=%v err=%v", changed, err)
	}
	if sess.Status != domain.StatusEnded || sess.ActiveQuestionID != nil || sess.QuestionStartedAt != nil || sess.EndedAt == nil {
		t.Fatalf("unexpected ended session: %+v", sess)
	}

	_, changed, err = e.sessions.EndSession(t.Context(), presenter, sid)
	if err != nil || changed {
		t.Fatalf("second EndSession: changed=%v err=%v", changed, err)
	}

	_, _, err = e.sessions.EndSession(t.Context(), presenter, "missing")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t, 3)
	e.join(t, sid, "a")
	e.join(t, sid, "b")

	title, limit := "Renamed", 1
	sess, err := e.sessions.UpdateSettings(t.Context(), presenter, sid, domain.Settings{Title: &title, MaxParticipants: &limit})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if sess.Title != title || sess.MaxParticipants != 1 {
		t.Fatalf("unexpected settings: %+v", sess)
	}

	// Уже вошедшие остаются, новых не пускаем.
	ps, err := e.members.ListParticipants(t.Context(), presenter, sid)
	if err != nil || len(ps) != 2 {
		t.Fatalf("participants: %d %v", len(ps), err)
	}
	if _, _, err := e.members.Join(t.Context(), sid, "c", nil); !errors.Is(err, domain.ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}

	if _, err := e.sessions.UpdateSettings(t.Context(), "intruder", sid, domain.Settings{Title: &title}); !errors.Is(err, domain.ErrNotSessionOwner) {
		t.Fatalf("expected ErrNotSessionOwner, got %v", err)
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	e := newEnv(t)
	first := e.session(t, 0)
	e.clock.Advance(time.Second)
	second := e.session(t, 0)
	if _, err := e.sessions.CreateSession(t.Context(), "other", "Not mine", 0); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	list, err := e.sessions.ListSessions(t.Context(), presenter)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("unexpected order: %+v", list)
	}
}
