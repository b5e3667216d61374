// Package storetest - общий набор проверок для реализаций service.Store.
// Каждый бэкенд вызывает Run из своего _test.go.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/service"
)

// Factory возвращает пустое хранилище; очистку регистрирует через t.Cleanup.
type Factory func(t *testing.T) service.Store

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st service.Store)
	}{
		{"SessionRoundTrip", testSessionRoundTrip},
		{"JoinCodeUnique", testJoinCodeUnique},
		{"ListSessionsByPresenter", testListSessionsByPresenter},
		{"UpdateSession", testUpdateSession},
		{"ActivateQuestion", testActivateQuestion},
		{"QuestionCRUD", testQuestionCRUD},
		{"DeleteQuestionCascade", testDeleteQuestionCascade},
		{"JoinDedupAndRename", testJoinDedupAndRename},
		{"JoinCapacityConcurrent", testJoinCapacityConcurrent},
		{"SubmitUpsert", testSubmitUpsert},
		{"SubmitConcurrent", testSubmitConcurrent},
		{"SubmitRules", testSubmitRules},
		{"SubmitAfterOptionsEdit", testSubmitAfterOptionsEdit},
		{"Snapshot", testSnapshot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// ---------- фикстуры ----------

func newSession(t *testing.T, st service.Store, maxParticipants int) *domain.Session {
	t.Helper()
	code := uuid.NewString()[:domain.JoinCodeLen]
	sess, err := domain.NewSession(uuid.NewString(), code, "presenter", "Session", maxParticipants, base)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := st.CreateSession(t.Context(), sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return sess
}

func newQuestion(t *testing.T, st service.Store, sessionID string, typ domain.QuestionType, order int) *domain.Question {
	t.Helper()
	q := &domain.Question{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Title:     fmt.Sprintf("Q%d", order),
		Type:      typ,
		SortOrder: order,
		CreatedAt: base,
	}
	if typ == domain.TypeMultipleChoice {
		q.Options = []string{"A", "B"}
	}
	if err := st.CreateQuestion(t.Context(), q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q
}

func join(t *testing.T, st service.Store, sessionID, device string, at time.Time) *domain.Participant {
	t.Helper()
	p, _, err := st.JoinParticipant(t.Context(), &domain.Participant{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		UniqueID:  device,
		JoinedAt:  at,
	})
	if err != nil {
		t.Fatalf("JoinParticipant(%s): %v", device, err)
	}
	return p
}

func activate(t *testing.T, st service.Store, sessionID, questionID string, at time.Time) {
	t.Helper()
	if _, err := st.ActivateQuestion(t.Context(), sessionID, questionID, at); err != nil {
		t.Fatalf("ActivateQuestion: %v", err)
	}
}

func submit(t *testing.T, st service.Store, sessionID, questionID, participantID, answer string, at time.Time) (*domain.Response, error) {
	return st.SubmitResponse(t.Context(), domain.Submission{
		ResponseID:    uuid.NewString(),
		SessionID:     sessionID,
		QuestionID:    questionID,
		ParticipantID: participantID,
		Answer:        answer,
		Now:           at,
	})
}

// ---------- сессии ----------

func testSessionRoundTrip(t *testing.T, st service.Store) {
	sess := newSession(t, st, 7)

	got, err := st.GetSession(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.JoinCode != sess.JoinCode || got.Status != domain.StatusDraft || got.MaxParticipants != 7 {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.CreatedAt.Equal(base) || got.ActiveQuestionID != nil || got.EndedAt != nil {
		t.Fatalf("unexpected timestamps: %+v", got)
	}

	byCode, err := st.GetSessionByJoinCode(t.Context(), sess.JoinCode)
	if err != nil || byCode.ID != sess.ID {
		t.Fatalf("GetSessionByJoinCode: %+v %v", byCode, err)
	}

	if _, err := st.GetSession(t.Context(), uuid.NewString()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}
}

func testJoinCodeUnique(t *testing.T, st service.Store) {
	first := newSession(t, st, 0)
	dup, _ := domain.NewSession(uuid.NewString(), first.JoinCode, "other", "Dup", 0, base)

	if err := st.CreateSession(t.Context(), dup); !errors.Is(err, domain.ErrJoinCodeTaken) {
		t.Fatalf("expected ErrJoinCodeTaken, got %v", err)
	}
}

func testListSessionsByPresenter(t *testing.T, st service.Store) {
	presenter := uuid.NewString()
	var ids []string
	for i := range 3 {
		sess, _ := domain.NewSession(uuid.NewString(), uuid.NewString()[:6], presenter, "S", 0, base.Add(time.Duration(i)*time.Minute))
		if err := st.CreateSession(t.Context(), sess); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	list, err := st.ListSessionsByPresenter(t.Context(), presenter)
	if err != nil {
		t.Fatalf("ListSessionsByPresenter: %v", err)
	}
	if len(list) != 3 || list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Fatalf("want newest first, got %+v", list)
	}
}

func testUpdateSession(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)

	got, err := st.UpdateSession(t.Context(), sess.ID, func(s *domain.Session) (bool, error) {
		return s.End(base.Add(time.Hour)), nil
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if got.Status != domain.StatusEnded || got.EndedAt == nil {
		t.Fatalf("unexpected session: %+v", got)
	}

	stored, _ := st.GetSession(t.Context(), sess.ID)
	if stored.Status != domain.StatusEnded || !stored.EndedAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("end was not persisted: %+v", stored)
	}

	boom := errors.New("boom")
	_, err = st.UpdateSession(t.Context(), sess.ID, func(s *domain.Session) (bool, error) {
		s.Title = "changed"
		return true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("fn error must propagate, got %v", err)
	}
	stored, _ = st.GetSession(t.Context(), sess.ID)
	if stored.Title == "changed" {
		t.Fatalf("failed update must not persist")
	}
}

func testActivateQuestion(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	other := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 0)
	foreign := newQuestion(t, st, other.ID, domain.TypeOpenEnded, 0)

	if _, err := st.ActivateQuestion(t.Context(), sess.ID, foreign.ID, base); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("foreign question: %v", err)
	}
	if _, err := st.ActivateQuestion(t.Context(), sess.ID, uuid.NewString(), base); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("missing question: %v", err)
	}

	at := base.Add(time.Minute)
	got, err := st.ActivateQuestion(t.Context(), sess.ID, q.ID, at)
	if err != nil {
		t.Fatalf("ActivateQuestion: %v", err)
	}
	if got.Status != domain.StatusActive || *got.ActiveQuestionID != q.ID || !got.QuestionStartedAt.Equal(at) {
		t.Fatalf("unexpected session: %+v", got)
	}
}

// ---------- вопросы ----------

func testQuestionCRUD(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	a := newQuestion(t, st, sess.ID, domain.TypeMultipleChoice, 0)
	b := newQuestion(t, st, sess.ID, domain.TypeRating, 1)

	got, err := st.GetQuestion(t.Context(), a.ID)
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if len(got.Options) != 2 || got.Options[1] != "B" {
		t.Fatalf("options not stored: %+v", got)
	}
	if rb, _ := st.GetQuestion(t.Context(), b.ID); rb.Options != nil {
		t.Fatalf("rating must have no options, got %v", rb.Options)
	}

	updated, err := st.UpdateQuestion(t.Context(), a.ID, func(q *domain.Question, hasResponses bool) error {
		if hasResponses {
			t.Errorf("fresh question reported responses")
		}
		q.Title = "Renamed"
		q.TimeLimit = 15
		return nil
	})
	if err != nil || updated.Title != "Renamed" {
		t.Fatalf("UpdateQuestion: %+v %v", updated, err)
	}

	list, err := st.ReorderQuestions(t.Context(), sess.ID, []string{b.ID, a.ID})
	if err != nil {
		t.Fatalf("ReorderQuestions: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].TimeLimit != 15 {
		t.Fatalf("unexpected order: %+v", list)
	}

	other := newSession(t, st, 0)
	foreign := newQuestion(t, st, other.ID, domain.TypeOpenEnded, 0)
	if _, err := st.ReorderQuestions(t.Context(), sess.ID, []string{foreign.ID}); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("foreign reorder: %v", err)
	}
}

func testDeleteQuestionCascade(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 0)
	keep := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 1)
	p := join(t, st, sess.ID, "dev", base)
	activate(t, st, sess.ID, keep.ID, base)
	if _, err := submit(t, st, sess.ID, keep.ID, p.ID, "stay", base); err != nil {
		t.Fatalf("submit keep: %v", err)
	}
	activate(t, st, sess.ID, q.ID, base)
	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "gone", base); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := st.DeleteQuestion(t.Context(), q.ID, base.Add(time.Minute)); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}
	if _, err := st.GetQuestion(t.Context(), q.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("question still present: %v", err)
	}
	if _, err := st.GetResponse(t.Context(), q.ID, p.ID); !errors.Is(err, domain.ErrResponseNotFound) {
		t.Fatalf("response still present: %v", err)
	}
	if _, err := st.GetResponse(t.Context(), keep.ID, p.ID); err != nil {
		t.Fatalf("other question's response removed: %v", err)
	}
	got, _ := st.GetSession(t.Context(), sess.ID)
	if got.ActiveQuestionID != nil || got.QuestionStartedAt != nil {
		t.Fatalf("active pointer not cleared: %+v", got)
	}
}

// ---------- участники ----------

func testJoinDedupAndRename(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	name := "Ann"

	first, created, err := st.JoinParticipant(t.Context(), &domain.Participant{
		ID: uuid.NewString(), SessionID: sess.ID, UniqueID: "dev", Name: &name, JoinedAt: base,
	})
	if err != nil || !created {
		t.Fatalf("first join: created=%v err=%v", created, err)
	}

	renamed := "Anna"
	again, created, err := st.JoinParticipant(t.Context(), &domain.Participant{
		ID: uuid.NewString(), SessionID: sess.ID, UniqueID: "dev", Name: &renamed, JoinedAt: base.Add(time.Minute),
	})
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("rejoin: %+v created=%v err=%v", again, created, err)
	}

	list, err := st.ListParticipants(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("ListParticipants: %v", err)
	}
	if len(list) != 1 || list[0].DisplayName() != "Anna" || !list[0].JoinedAt.Equal(base) {
		t.Fatalf("unexpected participants: %+v", list)
	}
}

func testJoinCapacityConcurrent(t *testing.T, st service.Store) {
	const limit, devices = 3, 12
	sess := newSession(t, st, limit)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := range devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := st.JoinParticipant(t.Context(), &domain.Participant{
				ID: uuid.NewString(), SessionID: sess.ID, UniqueID: fmt.Sprintf("dev-%d", i), JoinedAt: base,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrSessionFull):
				full++
			default:
				t.Errorf("JoinParticipant: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != limit || full != devices-limit {
		t.Fatalf("admitted=%d full=%d", ok, full)
	}
	list, _ := st.ListParticipants(t.Context(), sess.ID)
	if len(list) != limit {
		t.Fatalf("stored %d participants", len(list))
	}
}

// ---------- ответы ----------

func testSubmitUpsert(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeMultipleChoice, 0)
	p := join(t, st, sess.ID, "dev", base)
	activate(t, st, sess.ID, q.ID, base)

	first, err := submit(t, st, sess.ID, q.ID, p.ID, "A", base.Add(time.Second))
	if err != nil {
		t.Fatalf("submit A: %v", err)
	}
	second, err := submit(t, st, sess.ID, q.ID, p.ID, "B", base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("submit B: %v", err)
	}
	if second.ID != first.ID || second.Answer != "B" || !second.AnsweredAt.Equal(base.Add(2*time.Second)) {
		t.Fatalf("resubmission must overwrite: %+v", second)
	}

	list, err := st.ListResponses(t.Context(), q.ID)
	if err != nil || len(list) != 1 || list[0].Answer != "B" {
		t.Fatalf("ListResponses: %+v %v", list, err)
	}
}

func testSubmitConcurrent(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 0)
	p := join(t, st, sess.ID, "dev", base)
	activate(t, st, sess.ID, q.ID, base)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := submit(t, st, sess.ID, q.ID, p.ID, fmt.Sprintf("a%d", i), base.Add(time.Second)); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	list, _ := st.ListResponses(t.Context(), q.ID)
	if len(list) != 1 {
		t.Fatalf("want one row, got %d", len(list))
	}
}

func testSubmitRules(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 0)
	p := join(t, st, sess.ID, "dev", base)

	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "x", base); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("draft: %v", err)
	}
	if _, err := submit(t, st, uuid.NewString(), q.ID, p.ID, "x", base); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}

	if _, err := st.UpdateQuestion(t.Context(), q.ID, func(q *domain.Question, _ bool) error {
		q.TimeLimit = 10
		return nil
	}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	activate(t, st, sess.ID, q.ID, base)
	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "x", base.Add(10*time.Second)); err != nil {
		t.Fatalf("at the limit: %v", err)
	}
	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "x", base.Add(11*time.Second)); !errors.Is(err, domain.ErrTimeExpired) {
		t.Fatalf("after the limit: %v", err)
	}
	if _, err := submit(t, st, sess.ID, q.ID, uuid.NewString(), "x", base); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("unknown participant: %v", err)
	}
}

// Ответ сверяется с вариантами, сохранёнными на момент записи,
// а не с теми, что видел вызывающий до правки.
func testSubmitAfterOptionsEdit(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q := newQuestion(t, st, sess.ID, domain.TypeMultipleChoice, 0)
	p := join(t, st, sess.ID, "dev", base)
	activate(t, st, sess.ID, q.ID, base)

	if _, err := st.UpdateQuestion(t.Context(), q.ID, func(q *domain.Question, hasResponses bool) error {
		if hasResponses {
			return errors.New("no responses expected yet")
		}
		q.Options = []string{"X", "Y"}
		return nil
	}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "A", base.Add(time.Second)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("stale option: %v", err)
	}
	if list, _ := st.ListResponses(t.Context(), q.ID); len(list) != 0 {
		t.Fatalf("stale option must not be stored: %+v", list)
	}

	r, err := submit(t, st, sess.ID, q.ID, p.ID, " X ", base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("current option: %v", err)
	}
	if r.Answer != "X" {
		t.Fatalf("answer must be normalized before storing, got %q", r.Answer)
	}
	got, err := st.GetResponse(t.Context(), q.ID, p.ID)
	if err != nil || got.Answer != "X" {
		t.Fatalf("GetResponse: %+v %v", got, err)
	}

	// Состояние сессии проверяется раньше формы ответа.
	if _, err := st.UpdateSession(t.Context(), sess.ID, func(s *domain.Session) (bool, error) {
		return s.End(base.Add(3 * time.Second)), nil
	}); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if _, err := submit(t, st, sess.ID, q.ID, p.ID, "A", base.Add(4*time.Second)); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Fatalf("ended session with stale option: %v", err)
	}
}

func testSnapshot(t *testing.T, st service.Store) {
	sess := newSession(t, st, 0)
	q2 := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 2)
	q1 := newQuestion(t, st, sess.ID, domain.TypeOpenEnded, 1)
	pb := join(t, st, sess.ID, "b", base.Add(time.Second))
	pa := join(t, st, sess.ID, "a", base)
	activate(t, st, sess.ID, q1.ID, base)
	if _, err := submit(t, st, sess.ID, q1.ID, pb.ID, "late", base.Add(3*time.Second)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := submit(t, st, sess.ID, q1.ID, pa.ID, "early", base.Add(2*time.Second)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := st.Snapshot(t.Context(), sess.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Questions) != 2 || snap.Questions[0].ID != q1.ID || snap.Questions[1].ID != q2.ID {
		t.Fatalf("questions order: %+v", snap.Questions)
	}
	if len(snap.Participants) != 2 || snap.Participants[0].ID != pa.ID {
		t.Fatalf("participants order: %+v", snap.Participants)
	}
	if len(snap.Responses) != 2 || snap.Responses[0].Answer != "early" {
		t.Fatalf("responses order: %+v", snap.Responses)
	}

	if _, err := st.Snapshot(t.Context(), uuid.NewString()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("missing session: %v", err)
	}
}
