package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type SessionStatus string

const (
	StatusDraft  SessionStatus = "draft"
	StatusActive SessionStatus = "active"
	StatusEnded  SessionStatus = "ended"
)

const (
	MaxTitleLen = 200
)

type Session struct {
	ID                string        `db:"id"`
	JoinCode          string        `db:"join_code"`
	PresenterID       string        `db:"presenter_id"`
	Title             string        `db:"title"`
	Status            SessionStatus `db:"status"`
	ActiveQuestionID  *string       `db:"active_question_id"`
	QuestionStartedAt *time.Time    `db:"question_started_at"`
	MaxParticipants   int           `db:"max_participants"` // 0 - без лимита
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
	EndedAt           *time.Time    `db:"ended_at"`
}

// NewSession собирает черновик сессии. ID и join code выдаёт вызывающий.
func NewSession(id, joinCode, presenterID, title string, maxParticipants int, now time.Time) (*Session, error) {
	presenterID = strings.TrimSpace(presenterID)
	if presenterID == "" {
		return nil, InvalidInput("presenter identity is required")
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if maxParticipants < 0 {
		return nil, InvalidInput("maxParticipants must be >= 0")
	}

	return &Session{
		ID:              id,
		JoinCode:        joinCode,
		PresenterID:     presenterID,
		Title:           title,
		Status:          StatusDraft,
		MaxParticipants: maxParticipants,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", InvalidInput("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return "", InvalidInput("title is too long")
	}
	return title, nil
}

func (s *Session) IsEnded() bool { return s.Status == StatusEnded }

// OwnedBy проверяет, что сессией управляет этот ведущий.
func (s *Session) OwnedBy(presenterID string) error {
	if s.PresenterID != presenterID {
		return ErrNotSessionOwner
	}
	return nil
}

// ActivateQuestion переводит сессию в active и делает вопрос текущим.
// Повторная активация того же вопроса перезапускает таймер.
func (s *Session) ActivateQuestion(q *Question, now time.Time) error {
	if s.IsEnded() {
		return ErrSessionEnded
	}
	if q == nil || q.SessionID != s.ID {
		return ErrQuestionNotInSession
	}

	id := q.ID
	started := now
	s.Status = StatusActive
	s.ActiveQuestionID = &id
	s.QuestionStartedAt = &started
	s.UpdatedAt = now
	return nil
}

// End - терминальный переход. Повторный вызов ничего не меняет.
func (s *Session) End(now time.Time) bool {
	if s.IsEnded() {
		return false
	}

	ended := now
	s.Status = StatusEnded
	s.ActiveQuestionID = nil
	s.QuestionStartedAt = nil
	s.EndedAt = &ended
	s.UpdatedAt = now
	return true
}

// Settings - изменяемые ведущим параметры; nil означает «не трогать».
type Settings struct {
	Title           *string
	MaxParticipants *int
}

func (s *Session) ApplySettings(in Settings, now time.Time) error {
	if s.IsEnded() {
		return ErrSessionEnded
	}
	if in.Title != nil {
		title, err := normalizeTitle(*in.Title)
		if err != nil {
			return err
		}
		s.Title = title
	}
	if in.MaxParticipants != nil {
		if *in.MaxParticipants < 0 {
			return InvalidInput("maxParticipants must be >= 0")
		}
		s.MaxParticipants = *in.MaxParticipants
	}
	s.UpdatedAt = now
	return nil
}

// CheckAdmission решает, можно ли впустить новое устройство при count
// уже присоединившихся. Вызывается под блокировкой сессии.
func (s *Session) CheckAdmission(count int) error {
	if s.IsEnded() {
		return ErrSessionEnded
	}
	if s.MaxParticipants > 0 && count >= s.MaxParticipants {
		return ErrSessionFull
	}
	return nil
}

// AcceptsAnswer проверяет, что ответ на q сейчас принимается.
func (s *Session) AcceptsAnswer(q *Question, now time.Time) error {
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}
	if q == nil || s.ActiveQuestionID == nil || *s.ActiveQuestionID != q.ID {
		return ErrQuestionNotActive
	}
	if q.TimeLimit > 0 && s.QuestionStartedAt != nil {
		elapsed := now.Sub(*s.QuestionStartedAt)
		if elapsed > time.Duration(q.TimeLimit)*time.Second {
			return ErrTimeExpired
		}
	}
	return nil
}

// ClearActive снимает указатель, если активным был удаляемый вопрос.
func (s *Session) ClearActive(questionID string, now time.Time) bool {
	if s.ActiveQuestionID == nil || *s.ActiveQuestionID != questionID {
		return false
	}
	s.ActiveQuestionID = nil
	s.QuestionStartedAt = nil
	s.UpdatedAt = now
	return true
}
