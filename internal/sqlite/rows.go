package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

const sessionColumns = `id, join_code, presenter_id, title, status, active_question_id,
	question_started_at, max_participants, created_at, updated_at, ended_at`

const (
	questionColumns    = `id, session_id, title, type, options, sort_order, time_limit, image_ref, created_at`
	participantColumns = `id, session_id, unique_id, name, joined_at`
	responseColumns    = `id, question_id, session_id, participant_id, answer, answered_at`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var (
		s         domain.Session
		activeQID sql.NullString
		startedAt sql.NullInt64
		endedAt   sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&s.ID,
		&s.JoinCode,
		&s.PresenterID,
		&s.Title,
		&s.Status,
		&activeQID,
		&startedAt,
		&s.MaxParticipants,
		&createdAt,
		&updatedAt,
		&endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ActiveQuestionID = fromNullString(activeQID)
	s.QuestionStartedAt = fromNullMillis(startedAt)
	s.EndedAt = fromNullMillis(endedAt)
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func scanQuestion(row scanner) (*domain.Question, error) {
	var (
		q         domain.Question
		options   string
		imageRef  sql.NullString
		createdAt int64
	)
	err := row.Scan(
		&q.ID,
		&q.SessionID,
		&q.Title,
		&q.Type,
		&options,
		&q.SortOrder,
		&q.TimeLimit,
		&imageRef,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return nil, fmt.Errorf("decode options of %s: %w", q.ID, err)
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	q.ImageRef = fromNullString(imageRef)
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}

func scanParticipant(row scanner) (*domain.Participant, error) {
	var (
		p        domain.Participant
		name     sql.NullString
		joinedAt int64
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.UniqueID, &name, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Name = fromNullString(name)
	p.JoinedAt = fromMillis(joinedAt)
	return &p, nil
}

func scanResponse(row scanner) (*domain.Response, error) {
	var (
		r          domain.Response
		answeredAt int64
	)
	err := row.Scan(&r.ID, &r.QuestionID, &r.SessionID, &r.ParticipantID, &r.Answer, &answeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResponseNotFound
	}
	if err != nil {
		return nil, err
	}
	r.AnsweredAt = fromMillis(answeredAt)
	return &r, nil
}

func encodeOptions(opts []string) (string, error) {
	if opts == nil {
		opts = []string{}
	}
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(b), nil
}

// collect читает все строки через scan.
func collect[T any](ctx context.Context, q querier, scan func(scanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func getSession(ctx context.Context, q querier, id string) (*domain.Session, error) {
	return scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func getQuestion(ctx context.Context, q querier, id string) (*domain.Question, error) {
	return scanQuestion(q.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
}

func getParticipant(ctx context.Context, q querier, id string) (*domain.Participant, error) {
	return scanParticipant(q.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id))
}

func getResponse(ctx context.Context, q querier, questionID, participantID string) (*domain.Response, error) {
	return scanResponse(q.QueryRowContext(ctx,
		`SELECT `+responseColumns+` FROM responses WHERE question_id = ? AND participant_id = ?`,
		questionID, participantID))
}

func listQuestions(ctx context.Context, q querier, sessionID string) ([]domain.Question, error) {
	return collect(ctx, q, scanQuestion,
		`SELECT `+questionColumns+` FROM questions WHERE session_id = ? ORDER BY sort_order, created_at, id`, sessionID)
}

func listParticipants(ctx context.Context, q querier, sessionID string) ([]domain.Participant, error) {
	return collect(ctx, q, scanParticipant,
		`SELECT `+participantColumns+` FROM participants WHERE session_id = ? ORDER BY joined_at, id`, sessionID)
}

func saveSession(ctx context.Context, q querier, s *domain.Session) error {
	_, err := q.ExecContext(ctx, `
		UPDATE sessions SET
			title = ?, status = ?, active_question_id = ?, question_started_at = ?,
			max_participants = ?, updated_at = ?, ended_at = ?
		WHERE id = ?`,
		s.Title,
		string(s.Status),
		s.ActiveQuestionID,
		toNullMillis(s.QuestionStartedAt),
		s.MaxParticipants,
		toMillis(s.UpdatedAt),
		toNullMillis(s.EndedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
