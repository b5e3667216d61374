package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

type responseKey struct {
	questionID    string
	participantID string
}

type deviceKey struct {
	sessionID string
	uniqueID  string
}

// Store - хранилище в памяти процесса. Все мутации идут под одним
// эксклюзивным мьютексом, чтения - под RLock с копированием.
type Store struct {
	mu sync.RWMutex

	sessions     map[string]domain.Session
	questions    map[string]domain.Question
	participants map[string]domain.Participant
	responses    map[string]domain.Response

	joinCodes map[string]string      // join code -> session id
	devices   map[deviceKey]string   // (session, uniqueId) -> participant id
	answers   map[responseKey]string // (question, participant) -> response id
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]domain.Session),
		questions:    make(map[string]domain.Question),
		participants: make(map[string]domain.Participant),
		responses:    make(map[string]domain.Response),
		joinCodes:    make(map[string]string),
		devices:      make(map[deviceKey]string),
		answers:      make(map[responseKey]string),
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

// ---------- sessions ----------

func (s *Store) CreateSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.joinCodes[sess.JoinCode]; taken {
		return domain.ErrJoinCodeTaken
	}
	s.sessions[sess.ID] = cloneSession(*sess)
	s.joinCodes[sess.JoinCode] = sess.ID
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := cloneSession(sess)
	return &out, nil
}

func (s *Store) GetSessionByJoinCode(ctx context.Context, code string) (*domain.Session, error) {
	s.mu.RLock()
	id, ok := s.joinCodes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.GetSession(ctx, id)
}

func (s *Store) ListSessionsByPresenter(_ context.Context, presenterID string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Session, 0)
	for _, sess := range s.sessions {
		if sess.PresenterID == presenterID {
			out = append(out, cloneSession(sess))
		}
	}
	domain.SortSessionsNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateSession(_ context.Context, id string, fn func(*domain.Session) (bool, error)) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess = cloneSession(sess)
	changed, err := fn(&sess)
	if err != nil {
		return nil, err
	}
	if changed {
		s.sessions[id] = cloneSession(sess)
	}
	return &sess, nil
}

func (s *Store) ActivateQuestion(_ context.Context, sessionID, questionID string, now time.Time) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess = cloneSession(sess)

	var q *domain.Question
	if found, ok := s.questions[questionID]; ok {
		q = &found
	}
	if err := sess.ActivateQuestion(q, now); err != nil {
		return nil, err
	}
	s.sessions[sessionID] = cloneSession(sess)
	return &sess, nil
}

// ---------- questions ----------

func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[q.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := sess.CheckEditable(); err != nil {
		return err
	}
	s.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	out := cloneQuestion(q)
	return &out, nil
}

func (s *Store) ListQuestions(_ context.Context, sessionID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionsOf(sessionID), nil
}

func (s *Store) questionsOf(sessionID string) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.SessionID == sessionID {
			out = append(out, cloneQuestion(q))
		}
	}
	domain.SortQuestions(out)
	return out
}

func (s *Store) UpdateQuestion(_ context.Context, id string, fn func(q *domain.Question, hasResponses bool) error) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	sess := s.sessions[q.SessionID]
	if err := sess.CheckEditable(); err != nil {
		return nil, err
	}

	q = cloneQuestion(q)
	if err := fn(&q, s.hasResponses(id)); err != nil {
		return nil, err
	}
	s.questions[id] = cloneQuestion(q)
	return &q, nil
}

func (s *Store) hasResponses(questionID string) bool {
	for _, r := range s.responses {
		if r.QuestionID == questionID {
			return true
		}
	}
	return false
}

// DeleteQuestion удаляет вопрос вместе с ответами и снимает указатель активного вопроса.
func (s *Store) DeleteQuestion(_ context.Context, id string, now time.Time) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	sess := cloneSession(s.sessions[q.SessionID])
	if err := sess.CheckEditable(); err != nil {
		return nil, err
	}

	for rid, r := range s.responses {
		if r.QuestionID == id {
			delete(s.answers, responseKey{r.QuestionID, r.ParticipantID})
			delete(s.responses, rid)
		}
	}
	delete(s.questions, id)
	if sess.ClearActive(id, now) {
		s.sessions[sess.ID] = sess
	}
	return &q, nil
}

func (s *Store) ReorderQuestions(_ context.Context, sessionID string, ids []string) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if err := sess.CheckEditable(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if q, ok := s.questions[id]; !ok || q.SessionID != sessionID {
			return nil, domain.ErrQuestionNotInSession
		}
	}
	for i, id := range ids {
		q := s.questions[id]
		q.SortOrder = i
		s.questions[id] = q
	}
	return s.questionsOf(sessionID), nil
}

// ---------- participants ----------

func (s *Store) JoinParticipant(_ context.Context, candidate *domain.Participant) (*domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[candidate.SessionID]
	if !ok {
		return nil, false, domain.ErrSessionNotFound
	}

	var existing *domain.Participant
	if pid, ok := s.devices[deviceKey{candidate.SessionID, candidate.UniqueID}]; ok {
		p := cloneParticipant(s.participants[pid])
		existing = &p
	}

	count := 0
	if existing == nil {
		for _, p := range s.participants {
			if p.SessionID == candidate.SessionID {
				count++
			}
		}
	}

	out, err := domain.ApplyJoin(&sess, existing, count, candidate)
	if err != nil {
		return nil, false, err
	}
	p := cloneParticipant(*out.Participant)
	if out.Created || out.Renamed {
		s.participants[p.ID] = cloneParticipant(p)
	}
	if out.Created {
		s.devices[deviceKey{p.SessionID, p.UniqueID}] = p.ID
	}
	return &p, out.Created, nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	out := cloneParticipant(p)
	return &out, nil
}

func (s *Store) ListParticipants(_ context.Context, sessionID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participantsOf(sessionID), nil
}

func (s *Store) participantsOf(sessionID string) []domain.Participant {
	out := make([]domain.Participant, 0)
	for _, p := range s.participants {
		if p.SessionID == sessionID {
			out = append(out, cloneParticipant(p))
		}
	}
	domain.SortParticipants(out)
	return out
}

// ---------- responses ----------

func (s *Store) SubmitResponse(_ context.Context, sub domain.Submission) (*domain.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sub.SessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	var (
		q *domain.Question
		p *domain.Participant
		r *domain.Response
	)
	if found, ok := s.questions[sub.QuestionID]; ok {
		q = &found
	}
	if found, ok := s.participants[sub.ParticipantID]; ok {
		p = &found
	}
	if rid, ok := s.answers[responseKey{sub.QuestionID, sub.ParticipantID}]; ok {
		found := s.responses[rid]
		r = &found
	}

	out, created, err := domain.ApplySubmission(&sess, q, p, r, sub)
	if err != nil {
		return nil, err
	}
	s.responses[out.ID] = *out
	if created {
		s.answers[responseKey{out.QuestionID, out.ParticipantID}] = out.ID
	}
	res := *out
	return &res, nil
}

func (s *Store) GetResponse(_ context.Context, questionID, participantID string) (*domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rid, ok := s.answers[responseKey{questionID, participantID}]
	if !ok {
		return nil, domain.ErrResponseNotFound
	}
	r := s.responses[rid]
	return &r, nil
}

func (s *Store) ListResponses(_ context.Context, questionID string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Response, 0)
	for _, r := range s.responses {
		if r.QuestionID == questionID {
			out = append(out, r)
		}
	}
	domain.SortResponses(out)
	return out, nil
}

// Snapshot собирает согласованный срез сессии под одним RLock.
func (s *Store) Snapshot(_ context.Context, sessionID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	snap := &domain.Snapshot{
		Session:      cloneSession(sess),
		Questions:    s.questionsOf(sessionID),
		Participants: s.participantsOf(sessionID),
		Responses:    make([]domain.Response, 0),
	}
	for _, r := range s.responses {
		if r.SessionID == sessionID {
			snap.Responses = append(snap.Responses, r)
		}
	}
	domain.SortResponses(snap.Responses)
	return snap, nil
}

// ---------- helpers ----------

func cloneSession(s domain.Session) domain.Session {
	if s.ActiveQuestionID != nil {
		v := *s.ActiveQuestionID
		s.ActiveQuestionID = &v
	}
	if s.QuestionStartedAt != nil {
		v := *s.QuestionStartedAt
		s.QuestionStartedAt = &v
	}
	if s.EndedAt != nil {
		v := *s.EndedAt
		s.EndedAt = &v
	}
	return s
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = slices.Clone(q.Options)
	if q.ImageRef != nil {
		v := *q.ImageRef
		q.ImageRef = &v
	}
	return q
}

func cloneParticipant(p domain.Participant) domain.Participant {
	if p.Name != nil {
		v := *p.Name
		p.Name = &v
	}
	return p
}
