package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

type MemberService struct {
	clock
	sessions     SessionStore
	participants ParticipantStore
}

func NewMemberService(sessions SessionStore, participants ParticipantStore) *MemberService {
	return &MemberService{
		clock:        defaultClock(),
		sessions:     sessions,
		participants: participants,
	}
}

// Join впускает устройство в сессию. Повторный вход с тем же uniqueId
// возвращает прежнего участника (created=false) и не расходует лимит.
func (s *MemberService) Join(ctx context.Context, sessionID, uniqueID string, name *string) (*domain.Participant, bool, error) {
	uniqueID, err := domain.NormalizeUniqueID(uniqueID)
	if err != nil {
		return nil, false, err
	}

	candidate := &domain.Participant{
		ID:        s.newID(),
		SessionID: sessionID,
		UniqueID:  uniqueID,
		Name:      domain.NormalizeName(name),
		JoinedAt:  s.now(),
	}
	p, created, err := s.participants.JoinParticipant(ctx, candidate)
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.FromContext(ctx).Info("participant joined",
			slog.String("session_id", sessionID),
			slog.String("participant_id", p.ID),
		)
	}
	return p, created, nil
}

func (s *MemberService) JoinByCode(ctx context.Context, code, uniqueID string, name *string) (*domain.Participant, bool, error) {
	code = domain.NormalizeJoinCode(code)
	if code == "" {
		return nil, false, domain.ErrSessionNotFound
	}
	sess, err := s.sessions.GetSessionByJoinCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return s.Join(ctx, sess.ID, uniqueID, name)
}

func (s *MemberService) GetParticipant(ctx context.Context, id string) (*domain.Participant, error) {
	return s.participants.GetParticipant(ctx, id)
}

// ListParticipants доступен только ведущему сессии.
func (s *MemberService) ListParticipants(ctx context.Context, presenterID, sessionID string) ([]domain.Participant, error) {
	if _, err := ownedSession(ctx, s.sessions, presenterID, sessionID); err != nil {
		return nil, err
	}
	return s.participants.ListParticipants(ctx, sessionID)
}
