package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

type QuestionService struct {
	clock
	sessions  SessionReader
	questions QuestionStore
}

func NewQuestionService(sessions SessionReader, questions QuestionStore) *QuestionService {
	return &QuestionService{
		clock:     defaultClock(),
		sessions:  sessions,
		questions: questions,
	}
}

// CreateQuestion добавляет вопрос в конец списка, если sortOrder не задан.
func (s *QuestionService) CreateQuestion(ctx context.Context, presenterID, sessionID string, in domain.QuestionInput) (*domain.Question, error) {
	if _, err := ownedSession(ctx, s.sessions, presenterID, sessionID); err != nil {
		return nil, err
	}
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	q := &domain.Question{
		ID:        s.newID(),
		SessionID: sessionID,
		CreatedAt: s.now(),
	}
	if in.SortOrder == nil {
		existing, err := s.questions.ListQuestions(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		next := 0
		for _, e := range existing {
			next = max(next, e.SortOrder+1)
		}
		in.SortOrder = &next
	}
	q.ApplyInput(in)

	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return s.questions.GetQuestion(ctx, id)
}

func (s *QuestionService) ListQuestions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.questions.ListQuestions(ctx, sessionID)
}

// UpdateQuestion заменяет поля вопроса. Тип и варианты заморожены после первого ответа.
func (s *QuestionService) UpdateQuestion(ctx context.Context, presenterID, questionID string, in domain.QuestionInput) (*domain.Question, error) {
	cur, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, err := ownedSession(ctx, s.sessions, presenterID, cur.SessionID); err != nil {
		return nil, err
	}
	in, err = in.Normalize()
	if err != nil {
		return nil, err
	}

	return s.questions.UpdateQuestion(ctx, questionID, func(q *domain.Question, hasResponses bool) error {
		if err := domain.CheckQuestionEdit(q, in, hasResponses); err != nil {
			return err
		}
		q.ApplyInput(in)
		return nil
	})
}

// DeleteQuestion удаляет вопрос с его ответами.
func (s *QuestionService) DeleteQuestion(ctx context.Context, presenterID, questionID string) (*domain.Question, error) {
	cur, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if _, err := ownedSession(ctx, s.sessions, presenterID, cur.SessionID); err != nil {
		return nil, err
	}

	q, err := s.questions.DeleteQuestion(ctx, questionID, s.now())
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("question deleted",
		slog.String("session_id", q.SessionID),
		slog.String("question_id", q.ID),
	)
	return q, nil
}

// ReorderQuestions выставляет sortOrder по позиции id в списке.
func (s *QuestionService) ReorderQuestions(ctx context.Context, presenterID, sessionID string, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return nil, domain.InvalidInput("questionIds are required")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, domain.InvalidInput("questionIds must be unique")
		}
		seen[id] = struct{}{}
	}
	if _, err := ownedSession(ctx, s.sessions, presenterID, sessionID); err != nil {
		return nil, err
	}
	return s.questions.ReorderQuestions(ctx, sessionID, ids)
}
