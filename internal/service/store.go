package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

// Интерфейсы хранилища. Реализации: internal/postgres, internal/sqlite, internal/memory.
// Все мутации внутри выполняются под эксклюзивной блокировкой строки сессии.

type SessionStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByJoinCode(ctx context.Context, code string) (*domain.Session, error)
	ListSessionsByPresenter(ctx context.Context, presenterID string) ([]domain.Session, error)
	UpdateSession(ctx context.Context, id string, fn func(*domain.Session) (bool, error)) (*domain.Session, error)
	ActivateQuestion(ctx context.Context, sessionID, questionID string, now time.Time) (*domain.Session, error)
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)
	ListQuestions(ctx context.Context, sessionID string) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, id string, fn func(q *domain.Question, hasResponses bool) error) (*domain.Question, error)
	DeleteQuestion(ctx context.Context, id string, now time.Time) (*domain.Question, error)
	ReorderQuestions(ctx context.Context, sessionID string, ids []string) ([]domain.Question, error)
}

type ParticipantStore interface {
	JoinParticipant(ctx context.Context, candidate *domain.Participant) (*domain.Participant, bool, error)
	GetParticipant(ctx context.Context, id string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)
}

type ResponseStore interface {
	SubmitResponse(ctx context.Context, sub domain.Submission) (*domain.Response, error)
	GetResponse(ctx context.Context, questionID, participantID string) (*domain.Response, error)
	ListResponses(ctx context.Context, questionID string) ([]domain.Response, error)
}

type SnapshotStore interface {
	Snapshot(ctx context.Context, sessionID string) (*domain.Snapshot, error)
}

// Store - полный набор, который собирает cmd/main.go.
type Store interface {
	SessionStore
	QuestionStore
	ParticipantStore
	ResponseStore
	SnapshotStore
	Ping(ctx context.Context) error
	Close()
}

// clock - источник времени и id; встраивается в сервисы и подменяется в тестах.
type clock struct {
	now   func() time.Time
	newID func() string
}

// Миллисекунды - общая точность всех хранилищ.
func defaultClock() clock {
	return clock{
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newID: uuid.NewString,
	}
}

func (c *clock) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func (c *clock) SetIDGenerator(newID func() string) {
	if newID != nil {
		c.newID = newID
	}
}
