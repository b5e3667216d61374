package service

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/cwrk-planet/poll-service/internal/domain"
)

type SessionAnalytics struct {
	SessionID         string
	TotalParticipants int
	TotalResponses    int
	TotalQuestions    int
	ResponseRate      float64
	SessionDuration   *time.Duration // nil, пока нет ответов
	FirstResponseAt   *time.Time
	LastResponseAt    *time.Time
}

type ParticipantEngagement struct {
	ParticipantID     string
	Name              *string
	JoinedAt          time.Time
	QuestionsAnswered int
	TotalQuestions    int
	EngagementRate    float64
}

type QuestionTimeline struct {
	QuestionID string
	Title      string
	Type       domain.QuestionType
	SortOrder  int
	AnsweredAt []time.Time // по возрастанию
}

type QuestionResults struct {
	QuestionID     string
	Type           domain.QuestionType
	TotalResponses int
	Counts         map[string]int
	Average        *float64 // только для rating
}

// AnalyticsService - только чтение. Каждый вызов строится на одном снимке хранилища.
type AnalyticsService struct {
	snapshots SnapshotStore
	questions QuestionStore
	responses ResponseStore
}

func NewAnalyticsService(snapshots SnapshotStore, questions QuestionStore, responses ResponseStore) *AnalyticsService {
	return &AnalyticsService{
		snapshots: snapshots,
		questions: questions,
		responses: responses,
	}
}

func (s *AnalyticsService) SessionAnalytics(ctx context.Context, sessionID string) (*SessionAnalytics, error) {
	snap, err := s.snapshots.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := sessionAnalytics(snap)
	return &out, nil
}

func (s *AnalyticsService) ParticipantEngagement(ctx context.Context, sessionID string) ([]ParticipantEngagement, error) {
	snap, err := s.snapshots.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return participantEngagement(snap), nil
}

func (s *AnalyticsService) ResponseTimeline(ctx context.Context, sessionID string) ([]QuestionTimeline, error) {
	snap, err := s.snapshots.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return responseTimeline(snap), nil
}

func (s *AnalyticsService) Results(ctx context.Context, questionID string) (*QuestionResults, error) {
	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	rs, err := s.responses.ListResponses(ctx, questionID)
	if err != nil {
		return nil, err
	}
	out := questionResults(q, rs)
	return &out, nil
}

func sessionAnalytics(snap *domain.Snapshot) SessionAnalytics {
	out := SessionAnalytics{
		SessionID:         snap.Session.ID,
		TotalParticipants: len(snap.Participants),
		TotalResponses:    len(snap.Responses),
		TotalQuestions:    len(snap.Questions),
	}
	if denom := out.TotalParticipants * out.TotalQuestions; denom > 0 {
		out.ResponseRate = float64(out.TotalResponses) / float64(denom)
	}
	if len(snap.Responses) == 0 {
		return out
	}

	first := lo.MinBy(snap.Responses, func(a, b domain.Response) bool { return a.AnsweredAt.Before(b.AnsweredAt) }).AnsweredAt
	last := lo.MaxBy(snap.Responses, func(a, b domain.Response) bool { return a.AnsweredAt.After(b.AnsweredAt) }).AnsweredAt
	dur := last.Sub(first)
	out.FirstResponseAt = &first
	out.LastResponseAt = &last
	out.SessionDuration = &dur
	return out
}

// participantEngagement сортирует по убыванию доли отвеченных вопросов;
// равные сохраняют порядок перечисления участников (joinedAt, id).
func participantEngagement(snap *domain.Snapshot) []ParticipantEngagement {
	total := len(snap.Questions)
	answered := lo.MapValues(
		lo.GroupBy(snap.Responses, func(r domain.Response) string { return r.ParticipantID }),
		func(rs []domain.Response, _ string) int {
			return len(lo.Uniq(lo.Map(rs, func(r domain.Response, _ int) string { return r.QuestionID })))
		},
	)

	participants := slices.Clone(snap.Participants)
	domain.SortParticipants(participants)

	out := lo.Map(participants, func(p domain.Participant, _ int) ParticipantEngagement {
		e := ParticipantEngagement{
			ParticipantID:     p.ID,
			Name:              p.Name,
			JoinedAt:          p.JoinedAt,
			QuestionsAnswered: answered[p.ID],
			TotalQuestions:    total,
		}
		if total > 0 {
			e.EngagementRate = float64(e.QuestionsAnswered) / float64(total)
		}
		return e
	})
	slices.SortStableFunc(out, func(a, b ParticipantEngagement) int {
		switch {
		case a.EngagementRate > b.EngagementRate:
			return -1
		case a.EngagementRate < b.EngagementRate:
			return 1
		}
		return 0
	})
	return out
}

func responseTimeline(snap *domain.Snapshot) []QuestionTimeline {
	questions := slices.Clone(snap.Questions)
	domain.SortQuestions(questions)
	byQuestion := lo.GroupBy(snap.Responses, func(r domain.Response) string { return r.QuestionID })

	return lo.Map(questions, func(q domain.Question, _ int) QuestionTimeline {
		ts := lo.Map(byQuestion[q.ID], func(r domain.Response, _ int) time.Time { return r.AnsweredAt })
		slices.SortFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
		return QuestionTimeline{
			QuestionID: q.ID,
			Title:      q.Title,
			Type:       q.Type,
			SortOrder:  q.SortOrder,
			AnsweredAt: ts,
		}
	})
}

func questionResults(q *domain.Question, rs []domain.Response) QuestionResults {
	out := QuestionResults{
		QuestionID:     q.ID,
		Type:           q.Type,
		TotalResponses: len(rs),
		Counts:         lo.CountValuesBy(rs, func(r domain.Response) string { return r.Answer }),
	}
	if q.Type != domain.TypeRating || len(rs) == 0 {
		return out
	}

	ratings := lo.FilterMap(rs, func(r domain.Response, _ int) (float64, bool) {
		n, err := strconv.Atoi(r.Answer)
		return float64(n), err == nil
	})
	if len(ratings) > 0 {
		avg := lo.Sum(ratings) / float64(len(ratings))
		out.Average = &avg
	}
	return out
}
