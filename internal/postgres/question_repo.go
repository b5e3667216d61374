package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	return s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryLockSession, q.SessionID)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, queryInsertQuestion,
			q.ID,
			q.SessionID,
			q.Title,
			q.Type,
			optionsArg(q.Options),
			q.SortOrder,
			q.TimeLimit,
			q.ImageRef,
			q.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", mapPgError(err))
		}
		return nil
	})
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return getQuestion(ctx, s.db, queryQuestionByID, id)
}

func (s *Store) ListQuestions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	return listQuestions(ctx, s.db, sessionID)
}

// lockQuestionSession находит сессию вопроса и берёт на неё эксклюзивную блокировку.
func lockQuestionSession(ctx context.Context, tx pgx.Tx, questionID string) (*domain.Session, error) {
	var sessionID string
	err := tx.QueryRow(ctx, queryQuestionSessionID, questionID).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return getSession(ctx, tx, queryLockSession, sessionID)
}

func (s *Store) UpdateQuestion(ctx context.Context, id string, fn func(q *domain.Question, hasResponses bool) error) (*domain.Question, error) {
	var out *domain.Question
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := lockQuestionSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}
		q, err := getQuestion(ctx, tx, queryQuestionByID, id)
		if err != nil {
			return err
		}
		var hasResponses bool
		if err := tx.QueryRow(ctx, queryQuestionHasResponses, id).Scan(&hasResponses); err != nil {
			return err
		}
		if err := fn(q, hasResponses); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, queryUpdateQuestion,
			q.ID,
			q.Title,
			q.Type,
			optionsArg(q.Options),
			q.SortOrder,
			q.TimeLimit,
			q.ImageRef,
		)
		if err != nil {
			return fmt.Errorf("update question: %w", mapPgError(err))
		}
		out = q
		return nil
	})
	return out, err
}

// DeleteQuestion удаляет вопрос и его ответы; активный указатель снимается в той же транзакции.
func (s *Store) DeleteQuestion(ctx context.Context, id string, now time.Time) (*domain.Question, error) {
	var out *domain.Question
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := lockQuestionSession(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}
		q, err := getQuestion(ctx, tx, queryQuestionByID, id)
		if err != nil {
			return err
		}

		if sess.ClearActive(id, now) {
			if err := saveSession(ctx, tx, sess); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, queryDeleteResponses, id); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if _, err := tx.Exec(ctx, queryDeleteQuestion, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		out = q
		return nil
	})
	return out, err
}

func (s *Store) ReorderQuestions(ctx context.Context, sessionID string, ids []string) ([]domain.Question, error) {
	var out []domain.Question
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryLockSession, sessionID)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}

		for i, id := range ids {
			tag, err := tx.Exec(ctx, querySetSortOrder, id, sessionID, i)
			if err != nil {
				return fmt.Errorf("set sort order: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return domain.ErrQuestionNotInSession
			}
		}

		out, err = listQuestions(ctx, tx, sessionID)
		return err
	})
	return out, err
}
