package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

// ---------- сессии ----------

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.w.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.JoinCode,
		sess.PresenterID,
		sess.Title,
		string(sess.Status),
		sess.ActiveQuestionID,
		toNullMillis(sess.QuestionStartedAt),
		sess.MaxParticipants,
		toMillis(sess.CreatedAt),
		toMillis(sess.UpdatedAt),
		toNullMillis(sess.EndedAt),
	)
	if isUniqueViolation(err, "sessions.join_code") {
		return domain.ErrJoinCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return getSession(ctx, s.r, id)
}

func (s *Store) GetSessionByJoinCode(ctx context.Context, code string) (*domain.Session, error) {
	return scanSession(s.r.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE join_code = ?`, code))
}

func (s *Store) ListSessionsByPresenter(ctx context.Context, presenterID string) ([]domain.Session, error) {
	return collect(ctx, s.r, scanSession,
		`SELECT `+sessionColumns+` FROM sessions WHERE presenter_id = ? ORDER BY created_at DESC, id DESC`, presenterID)
}

func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*domain.Session) (bool, error)) (*domain.Session, error) {
	var out *domain.Session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, id)
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		q, err := optional(getQuestion(ctx, tx, questionID))
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

// ---------- вопросы ----------

func (s *Store) CreateQuestion(ctx context.Context, q *domain.Question) error {
	options, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, q.SessionID)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (`+questionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.SessionID, q.Title, string(q.Type), options, q.SortOrder, q.TimeLimit, q.ImageRef, toMillis(q.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return nil
	})
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	return getQuestion(ctx, s.r, id)
}

func (s *Store) ListQuestions(ctx context.Context, sessionID string) ([]domain.Question, error) {
	return listQuestions(ctx, s.r, sessionID)
}

// editableQuestion - вопрос и его сессия внутри пишущей транзакции.
func editableQuestion(ctx context.Context, tx *sql.Tx, id string) (*domain.Session, *domain.Question, error) {
	q, err := getQuestion(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	sess, err := getSession(ctx, tx, q.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if err := sess.CheckEditable(); err != nil {
		return nil, nil, err
	}
	return sess, q, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id string, fn func(q *domain.Question, hasResponses bool) error) (*domain.Question, error) {
	var out *domain.Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, q, err := editableQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		var hasResponses bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM responses WHERE question_id = ?)`, id).Scan(&hasResponses); err != nil {
			return err
		}
		if err := fn(q, hasResponses); err != nil {
			return err
		}

		options, err := encodeOptions(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE questions SET
				title = ?, type = ?, options = ?, sort_order = ?, time_limit = ?, image_ref = ?
			WHERE id = ?`,
			q.Title, string(q.Type), options, q.SortOrder, q.TimeLimit, q.ImageRef, q.ID,
		)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		out = q
		return nil
	})
	return out, err
}

func (s *Store) DeleteQuestion(ctx context.Context, id string, now time.Time) (*domain.Question, error) {
	var out *domain.Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, q, err := editableQuestion(ctx, tx, id)
		if err != nil {
			return err
		}
		if sess.ClearActive(id, now) {
			if err := saveSession(ctx, tx, sess); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE question_id = ?`, id); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		out = q
		return nil
	})
	return out, err
}

func (s *Store) ReorderQuestions(ctx context.Context, sessionID string, ids []string) ([]domain.Question, error) {
	var out []domain.Question
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := sess.CheckEditable(); err != nil {
			return err
		}
		for i, id := range ids {
			res, err := tx.ExecContext(ctx, `UPDATE questions SET sort_order = ? WHERE id = ? AND session_id = ?`, i, id, sessionID)
			if err != nil {
				return fmt.Errorf("set sort order: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domain.ErrQuestionNotInSession
			}
		}
		out, err = listQuestions(ctx, tx, sessionID)
		return err
	})
	return out, err
}

// ---------- участники ----------

func (s *Store) JoinParticipant(ctx context.Context, candidate *domain.Participant) (*domain.Participant, bool, error) {
	var (
		out     *domain.Participant
		created bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, candidate.SessionID)
		if err != nil {
			return err
		}
		existing, err := optional(scanParticipant(tx.QueryRowContext(ctx,
			`SELECT `+participantColumns+` FROM participants WHERE session_id = ? AND unique_id = ?`,
			candidate.SessionID, candidate.UniqueID)))
		if err != nil {
			return err
		}

		var count int
		if existing == nil {
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants WHERE session_id = ?`, candidate.SessionID).Scan(&count); err != nil {
				return err
			}
		}

		res, err := domain.ApplyJoin(sess, existing, count, candidate)
		if err != nil {
			return err
		}
		p := res.Participant
		switch {
		case res.Created:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO participants (`+participantColumns+`) VALUES (?, ?, ?, ?, ?)`,
				p.ID, p.SessionID, p.UniqueID, p.Name, toMillis(p.JoinedAt))
		case res.Renamed:
			_, err = tx.ExecContext(ctx, `UPDATE participants SET name = ? WHERE id = ?`, p.Name, p.ID)
		}
		if err != nil {
			return fmt.Errorf("save participant: %w", err)
		}
		out, created = p, res.Created
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return getParticipant(ctx, s.r, id)
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	return listParticipants(ctx, s.r, sessionID)
}

// ---------- ответы ----------

func (s *Store) SubmitResponse(ctx context.Context, sub domain.Submission) (*domain.Response, error) {
	var out *domain.Response
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, sub.SessionID)
		if err != nil {
			return err
		}
		q, err := optional(getQuestion(ctx, tx, sub.QuestionID))
		if err != nil {
			return err
		}
		p, err := optional(getParticipant(ctx, tx, sub.ParticipantID))
		if err != nil {
			return err
		}
		existing, err := optional(getResponse(ctx, tx, sub.QuestionID, sub.ParticipantID))
		if err != nil {
			return err
		}

		r, _, err := domain.ApplySubmission(sess, q, p, existing, sub)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO responses (`+responseColumns+`) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (question_id, participant_id)
			DO UPDATE SET answer = excluded.answer, answered_at = excluded.answered_at`,
			r.ID, r.QuestionID, r.SessionID, r.ParticipantID, r.Answer, toMillis(r.AnsweredAt),
		)
		if err != nil {
			return fmt.Errorf("upsert response: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

func (s *Store) GetResponse(ctx context.Context, questionID, participantID string) (*domain.Response, error) {
	return getResponse(ctx, s.r, questionID, participantID)
}

func (s *Store) ListResponses(ctx context.Context, questionID string) ([]domain.Response, error) {
	return collect(ctx, s.r, scanResponse,
		`SELECT `+responseColumns+` FROM responses WHERE question_id = ? ORDER BY answered_at, id`, questionID)
}

// Snapshot читает сессию целиком в одной транзакции чтения.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.inReadTx(ctx, func(tx *sql.Tx) error {
		sess, err := getSession(ctx, tx, sessionID)
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
		snap.Responses, err = collect(ctx, tx, scanResponse,
			`SELECT `+responseColumns+` FROM responses WHERE session_id = ? ORDER BY answered_at, id`, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
