package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

const joinCodeAttempts = 5

type SessionService struct {
	clock
	store SessionStore

	newCode func() (string, error)
}

func NewSessionService(store SessionStore) *SessionService {
	return &SessionService{
		clock:   defaultClock(),
		store:   store,
		newCode: domain.NewJoinCode,
	}
}

// CreateSession создаёт черновик сессии. Коллизию join code пробуем обойти
// несколькими попытками, дальше отдаём ошибку.
func (s *SessionService) CreateSession(ctx context.Context, presenterID, title string, maxParticipants int) (*domain.Session, error) {
	for attempt := 1; attempt <= joinCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("join code: %w", err)
		}
		sess, err := domain.NewSession(s.newID(), code, presenterID, title, maxParticipants, s.now())
		if err != nil {
			return nil, err
		}

		err = s.store.CreateSession(ctx, sess)
		if errors.Is(err, domain.ErrJoinCodeTaken) {
			logger.FromContext(ctx).Warn("join code collision", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store.CreateSession: %w", err)
		}
		return sess, nil
	}
	return nil, domain.ErrJoinCodeTaken
}

func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.GetSession(ctx, strings.TrimSpace(id))
}

// GetSessionByCode ищет сессию по коду без учёта регистра.
func (s *SessionService) GetSessionByCode(ctx context.Context, code string) (*domain.Session, error) {
	code = domain.NormalizeJoinCode(code)
	if code == "" {
		return nil, domain.ErrSessionNotFound
	}
	return s.store.GetSessionByJoinCode(ctx, code)
}

func (s *SessionService) ListSessions(ctx context.Context, presenterID string) ([]domain.Session, error) {
	return s.store.ListSessionsByPresenter(ctx, presenterID)
}

func (s *SessionService) ActivateQuestion(ctx context.Context, presenterID, sessionID, questionID string) (*domain.Session, error) {
	if _, err := ownedSession(ctx, s.store, presenterID, sessionID); err != nil {
		return nil, err
	}
	sess, err := s.store.ActivateQuestion(ctx, sessionID, questionID, s.now())
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("question activated",
		slog.String("session_id", sessionID),
		slog.String("question_id", questionID),
	)
	return sess, nil
}

// EndSession завершает сессию. changed=false, если она уже была завершена.
func (s *SessionService) EndSession(ctx context.Context, presenterID, sessionID string) (*domain.Session, bool, error) {
	var changed bool
	sess, err := s.store.UpdateSession(ctx, sessionID, func(sess *domain.Session) (bool, error) {
		if err := sess.OwnedBy(presenterID); err != nil {
			return false, err
		}
		changed = sess.End(s.now())
		return changed, nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		logger.FromContext(ctx).Info("session ended", slog.String("session_id", sessionID))
	}
	return sess, changed, nil
}

func (s *SessionService) UpdateSettings(ctx context.Context, presenterID, sessionID string, in domain.Settings) (*domain.Session, error) {
	return s.store.UpdateSession(ctx, sessionID, func(sess *domain.Session) (bool, error) {
		if err := sess.OwnedBy(presenterID); err != nil {
			return false, err
		}
		if err := sess.ApplySettings(in, s.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

type SessionReader interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
}

// ownedSession возвращает сессию, если ей управляет presenterID.
func ownedSession(ctx context.Context, store SessionReader, presenterID, sessionID string) (*domain.Session, error) {
	sess, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.OwnedBy(presenterID); err != nil {
		return nil, err
	}
	return sess, nil
}
