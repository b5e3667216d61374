package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

// SubmitResponse - upsert по (question_id, participant_id) под разделяемой
// блокировкой сессии.
func (s *Store) SubmitResponse(ctx context.Context, sub domain.Submission) (*domain.Response, error) {
	var out *domain.Response
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryShareSession, sub.SessionID)
		if err != nil {
			return err
		}
		q, err := optional(getQuestion(ctx, tx, queryQuestionByID, sub.QuestionID))
		if err != nil {
			return err
		}
		p, err := optional(getParticipant(ctx, tx, queryParticipantByID, sub.ParticipantID))
		if err != nil {
			return err
		}
		existing, err := optional(getResponse(ctx, tx, queryResponseByKey, sub.QuestionID, sub.ParticipantID))
		if err != nil {
			return err
		}

		r, _, err := domain.ApplySubmission(sess, q, p, existing, sub)
		if err != nil {
			return err
		}
		out, err = getResponse(ctx, tx, queryUpsertResponse,
			r.ID, r.QuestionID, r.SessionID, r.ParticipantID, r.Answer, r.AnsweredAt)
		if err != nil {
			return fmt.Errorf("upsert response: %w", mapPgError(err))
		}
		return nil
	})
	return out, err
}

func (s *Store) GetResponse(ctx context.Context, questionID, participantID string) (*domain.Response, error) {
	return getResponse(ctx, s.db, queryResponseByKey, questionID, participantID)
}

func (s *Store) ListResponses(ctx context.Context, questionID string) ([]domain.Response, error) {
	return listResponses(ctx, s.db, queryResponsesByQuestion, questionID)
}

// Snapshot читает сессию целиком в одной REPEATABLE READ транзакции.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.inTx(ctx, readSnapshot, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, querySessionByID, sessionID)
		if err != nil {
			return err
		}
		snap.Session = *sess

		if snap.Questions, err = listQuestions(ctx, tx, sessionID); err != nil {
			return err
		}
		if snap.Participants, err = listParticipants(ctx, tx, sessionID); err != nil {
			return err
		}
		snap.Responses, err = listResponses(ctx, tx, queryResponsesBySession, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
