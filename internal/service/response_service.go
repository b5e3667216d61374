package service

import (
	"context"
	"errors"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

type ResponseService struct {
	clock
	questions QuestionStore
	responses ResponseStore
}

func NewResponseService(questions QuestionStore, responses ResponseStore) *ResponseService {
	return &ResponseService{
		clock:     defaultClock(),
		questions: questions,
		responses: responses,
	}
}

// Submit записывает ответ участника; повторная отправка перезаписывает прежний.
// Все проверки, включая форму ответа, выполняет хранилище под блокировкой сессии.
func (s *ResponseService) Submit(ctx context.Context, sessionID, questionID, participantID, answer string) (*domain.Response, error) {
	return s.responses.SubmitResponse(ctx, domain.Submission{
		ResponseID:    s.newID(),
		SessionID:     sessionID,
		QuestionID:    questionID,
		ParticipantID: participantID,
		Answer:        answer,
		Now:           s.now(),
	})
}

func (s *ResponseService) HasResponded(ctx context.Context, questionID, participantID string) (bool, error) {
	_, err := s.responses.GetResponse(ctx, questionID, participantID)
	switch {
	case errors.Is(err, domain.ErrResponseNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (s *ResponseService) GetResponse(ctx context.Context, questionID, participantID string) (*domain.Response, error) {
	return s.responses.GetResponse(ctx, questionID, participantID)
}

func (s *ResponseService) ListResponses(ctx context.Context, questionID string) ([]domain.Response, error) {
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.responses.ListResponses(ctx, questionID)
}
