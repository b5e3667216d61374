package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

// CreateSession - коллизия join code отдаётся как domain.ErrJoinCodeTaken.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.db.Exec(ctx, queryInsertSession,
		sess.ID,
		sess.JoinCode,
		sess.PresenterID,
		sess.Title,
		sess.Status,
		sess.ActiveQuestionID,
		sess.QuestionStartedAt,
		sess.MaxParticipants,
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.EndedAt,
	)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return getSession(ctx, s.db, querySessionByID, id)
}

func (s *Store) GetSessionByJoinCode(ctx context.Context, code string) (*domain.Session, error) {
	return getSession(ctx, s.db, querySessionByCode, code)
}

func (s *Store) ListSessionsByPresenter(ctx context.Context, presenterID string) ([]domain.Session, error) {
	return listSessions(ctx, s.db, querySessionsPresenter, presenterID)
}

// UpdateSession блокирует строку сессии и применяет fn; пишет, только если fn что-то поменяла.
func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*domain.Session) (bool, error)) (*domain.Session, error) {
	var out *domain.Session
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryLockSession, id)
		if err != nil {
			return err
		}
		changed, err := fn(sess)
		if err != nil {
			return err
		}
		if changed {
			if err := saveSession(ctx, tx, sess); err != nil {
				return err
			}
		}
		out = sess
		return nil
	})
	return out, err
}

func (s *Store) ActivateQuestion(ctx context.Context, sessionID, questionID string, now time.Time) (*domain.Session, error) {
	var out *domain.Session
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryLockSession, sessionID)
		if err != nil {
			return err
		}
		q, err := optional(getQuestion(ctx, tx, queryQuestionByID, questionID))
		if err != nil {
			return err
		}
		if err := sess.ActivateQuestion(q, now); err != nil {
			return err
		}
		if err := saveSession(ctx, tx, sess); err != nil {
			return err
		}
		out = sess
		return nil
	})
	return out, err
}

func saveSession(ctx context.Context, q querier, sess *domain.Session) error {
	_, err := q.Exec(ctx, queryUpdateSession,
		sess.ID,
		sess.Title,
		sess.Status,
		sess.ActiveQuestionID,
		sess.QuestionStartedAt,
		sess.MaxParticipants,
		sess.UpdatedAt,
		sess.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", mapPgError(err))
	}
	return nil
}
