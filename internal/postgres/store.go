package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/pg"
	"github.com/cwrk-planet/poll-service/internal/postgres/migrations"
)

/*
абстрактный слой над *pgxpool.Pool / pgx.Tx,
чтобы одни и те же запросы работали и вне, и внутри транзакции
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store - хранилище сессий опросов в Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate применяет встроенные миграции схемы.
func (s *Store) Migrate(ctx context.Context) error {
	return pg.Migrate(ctx, s.db, migrations.FS)
}

func (s *Store) Ping(ctx context.Context) error {
	return pg.Ping(ctx, s.db)
}

func (s *Store) Close() {
	s.db.Close()
}

var (
	readWrite    = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

func (s *Store) inTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique violation
			if pgErr.ConstraintName == "sessions_join_code_key" {
				return domain.ErrJoinCodeTaken
			}
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign key violation
			return fmt.Errorf("%w: %s", domain.ErrInvalidReference, pgErr.ConstraintName)
		}
	}
	return err
}

// ---------- сканирование ----------

func collectOne[T any](rows pgx.Rows, notFound error) (*T, error) {
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func collectAll[T any](rows pgx.Rows) ([]T, error) {
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func getSession(ctx context.Context, q querier, sql string, arg any) (*domain.Session, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	sess, err := collectOne[domain.Session](rows, domain.ErrSessionNotFound)
	if err != nil {
		return nil, err
	}
	utcSession(sess)
	return sess, nil
}

func getQuestion(ctx context.Context, q querier, sql string, args ...any) (*domain.Question, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := collectOne[domain.Question](rows, domain.ErrQuestionNotFound)
	if err != nil {
		return nil, err
	}
	utcQuestion(out)
	return out, nil
}

func getParticipant(ctx context.Context, q querier, sql string, args ...any) (*domain.Participant, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := collectOne[domain.Participant](rows, domain.ErrParticipantNotFound)
	if err != nil {
		return nil, err
	}
	out.JoinedAt = out.JoinedAt.UTC()
	return out, nil
}

func getResponse(ctx context.Context, q querier, sql string, args ...any) (*domain.Response, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := collectOne[domain.Response](rows, domain.ErrResponseNotFound)
	if err != nil {
		return nil, err
	}
	out.AnsweredAt = out.AnsweredAt.UTC()
	return out, nil
}

func listSessions(ctx context.Context, q querier, sql string, args ...any) ([]domain.Session, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	list, err := collectAll[domain.Session](rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		utcSession(&list[i])
	}
	return list, nil
}

func listQuestions(ctx context.Context, q querier, sessionID string) ([]domain.Question, error) {
	rows, err := q.Query(ctx, queryQuestionsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	list, err := collectAll[domain.Question](rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		utcQuestion(&list[i])
	}
	return list, nil
}

func listParticipants(ctx context.Context, q querier, sessionID string) ([]domain.Participant, error) {
	rows, err := q.Query(ctx, queryParticipantsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	list, err := collectAll[domain.Participant](rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].JoinedAt = list[i].JoinedAt.UTC()
	}
	return list, nil
}

func listResponses(ctx context.Context, q querier, sql string, arg string) ([]domain.Response, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	list, err := collectAll[domain.Response](rows)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].AnsweredAt = list[i].AnsweredAt.UTC()
	}
	return list, nil
}

// pgx отдаёт timestamptz в локальной зоне процесса.
func utcSession(s *domain.Session) {
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	s.QuestionStartedAt = utcPtr(s.QuestionStartedAt)
	s.EndedAt = utcPtr(s.EndedAt)
}

func utcQuestion(q *domain.Question) {
	q.CreatedAt = q.CreatedAt.UTC()
	if len(q.Options) == 0 {
		q.Options = nil
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// options хранится как TEXT[] NOT NULL.
func optionsArg(opts []string) []string {
	if opts == nil {
		return []string{}
	}
	return opts
}

// optional превращает «не найдено» в nil: правила домена сами решают,
// какую ошибку вернуть на отсутствующую запись.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
