package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

// JoinParticipant - защищён от гонок по max_participants: строка сессии
// блокируется, поэтому два параллельных входа не пробьют лимит.
// Повтор с тем же (session_id, unique_id) возвращает существующего участника.
func (s *Store) JoinParticipant(ctx context.Context, candidate *domain.Participant) (*domain.Participant, bool, error) {
	var (
		out     *domain.Participant
		created bool
	)
	err := s.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		sess, err := getSession(ctx, tx, queryLockSession, candidate.SessionID)
		if err != nil {
			return err
		}
		existing, err := optional(getParticipant(ctx, tx, queryParticipantByDevice, candidate.SessionID, candidate.UniqueID))
		if err != nil {
			return err
		}

		var count int
		if existing == nil {
			if err := tx.QueryRow(ctx, queryCountParticipants, candidate.SessionID).Scan(&count); err != nil {
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
			_, err = tx.Exec(ctx, queryInsertParticipant, p.ID, p.SessionID, p.UniqueID, p.Name, p.JoinedAt)
		case res.Renamed:
			_, err = tx.Exec(ctx, queryRenameParticipant, p.ID, p.Name)
		}
		if err != nil {
			return fmt.Errorf("save participant: %w", mapPgError(err))
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
	return getParticipant(ctx, s.db, queryParticipantByID, id)
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	return listParticipants(ctx, s.db, sessionID)
}
