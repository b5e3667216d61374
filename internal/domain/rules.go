package domain

import (
	"cmp"
	"slices"
)

// Функции ниже - общая логика мутаций. Хранилище вызывает их, уже держа
// эксклюзивную блокировку сессии, и сохраняет результат в той же транзакции.

// CheckEditable - вопросы можно менять, пока сессия не завершена.
func (s *Session) CheckEditable() error {
	if s.IsEnded() {
		return ErrSessionEnded
	}
	return nil
}

// JoinOutcome - результат ApplyJoin.
type JoinOutcome struct {
	Participant *Participant
	Created     bool // новая запись, нужен INSERT
	Renamed     bool // существующая запись, нужен UPDATE имени
}

// ApplyJoin решает судьбу входа устройства в сессию.
// existing - запись по (session, uniqueId), если есть; count - текущее число участников.
func ApplyJoin(s *Session, existing *Participant, count int, candidate *Participant) (JoinOutcome, error) {
	if s.IsEnded() {
		return JoinOutcome{}, ErrSessionEnded
	}
	if existing != nil {
		renamed := existing.Rename(candidate.Name)
		return JoinOutcome{Participant: existing, Renamed: renamed}, nil
	}
	if err := s.CheckAdmission(count); err != nil {
		return JoinOutcome{}, err
	}
	return JoinOutcome{Participant: candidate, Created: true}, nil
}

// ApplySubmission проверяет ответ и возвращает запись для upsert.
// existing - текущий ответ по (question, participant), если есть.
// Форма ответа сверяется с вопросом, прочитанным под блокировкой сессии:
// правка вариантов не может проскочить между проверкой и записью.
func ApplySubmission(s *Session, q *Question, p *Participant, existing *Response, sub Submission) (*Response, bool, error) {
	if err := s.AcceptsAnswer(q, sub.Now); err != nil {
		return nil, false, err
	}
	if p == nil || p.SessionID != s.ID {
		return nil, false, ErrParticipantNotFound
	}
	answer, err := q.NormalizeAnswer(sub.Answer)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		r := *existing
		r.Answer = answer
		r.AnsweredAt = sub.Now
		return &r, false, nil
	}
	return &Response{
		ID:            sub.ResponseID,
		QuestionID:    q.ID,
		SessionID:     s.ID,
		ParticipantID: p.ID,
		Answer:        answer,
		AnsweredAt:    sub.Now,
	}, true, nil
}

// Порядок перечисления, одинаковый для всех хранилищ.

func SortQuestions(qs []Question) {
	slices.SortStableFunc(qs, func(a, b Question) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func SortParticipants(ps []Participant) {
	slices.SortStableFunc(ps, func(a, b Participant) int {
		return cmp.Or(
			a.JoinedAt.Compare(b.JoinedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func SortResponses(rs []Response) {
	slices.SortStableFunc(rs, func(a, b Response) int {
		return cmp.Or(
			a.AnsweredAt.Compare(b.AnsweredAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func SortSessionsNewestFirst(ss []Session) {
	slices.SortStableFunc(ss, func(a, b Session) int {
		return cmp.Or(
			b.CreatedAt.Compare(a.CreatedAt),
			cmp.Compare(b.ID, a.ID),
		)
	})
}

// CheckQuestionEdit запрещает менять тип и варианты вопроса, на который уже отвечали.
func CheckQuestionEdit(cur *Question, next QuestionInput, hasResponses bool) error {
	if !hasResponses {
		return nil
	}
	if cur.Type != next.Type || !slices.Equal(cur.Options, next.Options) {
		return ErrQuestionHasResponses
	}
	return nil
}

// ApplyInput переносит нормализованный ввод в вопрос.
func (q *Question) ApplyInput(in QuestionInput) {
	q.Title = in.Title
	q.Type = in.Type
	q.Options = slices.Clone(in.Options)
	q.TimeLimit = in.TimeLimit
	q.ImageRef = in.ImageRef
	if in.SortOrder != nil {
		q.SortOrder = *in.SortOrder
	}
}
