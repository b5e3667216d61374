package http

import (
	"time"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/service"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// --- sessions ---

type CreateSessionRequest struct {
	Title           string `json:"title"`
	MaxParticipants int    `json:"maxParticipants"`
}

type UpdateSessionRequest struct {
	Title           *string `json:"title"`
	MaxParticipants *int    `json:"maxParticipants"`
}

type ActivateQuestionRequest struct {
	QuestionID string `json:"questionId"`
}

type SessionItem struct {
	ID                string     `json:"id"`
	JoinCode          string     `json:"joinCode"`
	PresenterID       string     `json:"presenterId"`
	Title             string     `json:"title"`
	Status            string     `json:"status"`
	ActiveQuestionID  *string    `json:"activeQuestionId"`
	QuestionStartedAt *time.Time `json:"questionStartedAt"`
	MaxParticipants   int        `json:"maxParticipants"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
}

type SessionsListResponse struct {
	Items []SessionItem `json:"items"`
}

func toSessionItem(s *domain.Session) SessionItem {
	return SessionItem{
		ID:                s.ID,
		JoinCode:          s.JoinCode,
		PresenterID:       s.PresenterID,
		Title:             s.Title,
		Status:            string(s.Status),
		ActiveQuestionID:  s.ActiveQuestionID,
		QuestionStartedAt: s.QuestionStartedAt,
		MaxParticipants:   s.MaxParticipants,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		EndedAt:           s.EndedAt,
	}
}

// --- questions ---

type QuestionRequest struct {
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Options   []string `json:"options"`
	SortOrder *int     `json:"sortOrder"`
	TimeLimit int      `json:"timeLimit"`
	ImageRef  *string  `json:"imageRef"`
}

func (r QuestionRequest) toInput() domain.QuestionInput {
	return domain.QuestionInput{
		Title:     r.Title,
		Type:      domain.QuestionType(r.Type),
		Options:   r.Options,
		SortOrder: r.SortOrder,
		TimeLimit: r.TimeLimit,
		ImageRef:  r.ImageRef,
	}
}

type ReorderQuestionsRequest struct {
	QuestionIDs []string `json:"questionIds"`
}

type QuestionItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Options   []string  `json:"options"`
	SortOrder int       `json:"sortOrder"`
	TimeLimit int       `json:"timeLimit"`
	ImageRef  *string   `json:"imageRef"`
	CreatedAt time.Time `json:"createdAt"`
}

type QuestionsListResponse struct {
	Items []QuestionItem `json:"items"`
}

func toQuestionItem(q *domain.Question) QuestionItem {
	opts := q.Options
	if opts == nil {
		opts = []string{}
	}
	return QuestionItem{
		ID:        q.ID,
		SessionID: q.SessionID,
		Title:     q.Title,
		Type:      string(q.Type),
		Options:   opts,
		SortOrder: q.SortOrder,
		TimeLimit: q.TimeLimit,
		ImageRef:  q.ImageRef,
		CreatedAt: q.CreatedAt,
	}
}

func toQuestionsList(qs []domain.Question) QuestionsListResponse {
	resp := QuestionsListResponse{Items: make([]QuestionItem, 0, len(qs))}
	for i := range qs {
		resp.Items = append(resp.Items, toQuestionItem(&qs[i]))
	}
	return resp
}

// --- participants ---

type JoinRequest struct {
	UniqueID string  `json:"uniqueId"`
	Name     *string `json:"name"`
}

type ParticipantItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      *string   `json:"name"`
	JoinedAt  time.Time `json:"joinedAt"`
}

type JoinResponse struct {
	ParticipantID string          `json:"participantId"`
	Created       bool            `json:"created"`
	Participant   ParticipantItem `json:"participant"`
}

type ParticipantsResponse struct {
	Items []ParticipantItem `json:"items"`
}

func toParticipantItem(p *domain.Participant) ParticipantItem {
	return ParticipantItem{
		ID:        p.ID,
		SessionID: p.SessionID,
		Name:      p.Name,
		JoinedAt:  p.JoinedAt,
	}
}

// --- responses ---

type SubmitRequest struct {
	QuestionID    string `json:"questionId"`
	ParticipantID string `json:"participantId"`
	Answer        string `json:"answer"`
}

type ResponseItem struct {
	ID            string    `json:"id"`
	QuestionID    string    `json:"questionId"`
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	Answer        string    `json:"answer"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

type SubmitResponse struct {
	ResponseID string       `json:"responseId"`
	Response   ResponseItem `json:"response"`
}

type ResponsesListResponse struct {
	Items []ResponseItem `json:"items"`
}

type HasRespondedResponse struct {
	HasResponded bool          `json:"hasResponded"`
	Response     *ResponseItem `json:"response,omitempty"`
}

func toResponseItem(r *domain.Response) ResponseItem {
	return ResponseItem{
		ID:            r.ID,
		QuestionID:    r.QuestionID,
		SessionID:     r.SessionID,
		ParticipantID: r.ParticipantID,
		Answer:        r.Answer,
		AnsweredAt:    r.AnsweredAt,
	}
}

// --- analytics ---

type SessionAnalyticsResponse struct {
	SessionID         string     `json:"sessionId"`
	TotalParticipants int        `json:"totalParticipants"`
	TotalResponses    int        `json:"totalResponses"`
	TotalQuestions    int        `json:"totalQuestions"`
	ResponseRate      float64    `json:"responseRate"`
	SessionDurationMs *int64     `json:"sessionDurationMs"`
	FirstResponseAt   *time.Time `json:"firstResponseAt"`
	LastResponseAt    *time.Time `json:"lastResponseAt"`
}

func toSessionAnalytics(a *service.SessionAnalytics) SessionAnalyticsResponse {
	resp := SessionAnalyticsResponse{
		SessionID:         a.SessionID,
		TotalParticipants: a.TotalParticipants,
		TotalResponses:    a.TotalResponses,
		TotalQuestions:    a.TotalQuestions,
		ResponseRate:      a.ResponseRate,
		FirstResponseAt:   a.FirstResponseAt,
		LastResponseAt:    a.LastResponseAt,
	}
	if a.SessionDuration != nil {
		ms := a.SessionDuration.Milliseconds()
		resp.SessionDurationMs = &ms
	}
	return resp
}

type EngagementItem struct {
	ParticipantID     string    `json:"participantId"`
	Name              *string   `json:"name"`
	JoinedAt          time.Time `json:"joinedAt"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	TotalQuestions    int       `json:"totalQuestions"`
	EngagementRate    float64   `json:"engagementRate"`
}

type EngagementResponse struct {
	Items []EngagementItem `json:"items"`
}

type HistogramBucketItem struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int       `json:"count"`
}

type HistogramItem struct {
	BucketWidthMs float64               `json:"bucketWidthMs"`
	Buckets       []HistogramBucketItem `json:"buckets"`
}

type TimelineItem struct {
	QuestionID string         `json:"questionId"`
	Title      string         `json:"title"`
	Type       string         `json:"type"`
	SortOrder  int            `json:"sortOrder"`
	AnsweredAt []time.Time    `json:"answeredAt"`
	Histogram  *HistogramItem `json:"histogram,omitempty"`
}

type TimelineResponse struct {
	Items []TimelineItem `json:"items"`
}

func toTimelineItem(t service.QuestionTimeline, withHistogram bool) TimelineItem {
	ts := t.AnsweredAt
	if ts == nil {
		ts = []time.Time{}
	}
	item := TimelineItem{
		QuestionID: t.QuestionID,
		Title:      t.Title,
		Type:       string(t.Type),
		SortOrder:  t.SortOrder,
		AnsweredAt: ts,
	}
	if withHistogram {
		h := service.BuildHistogram(t.AnsweredAt)
		hi := &HistogramItem{
			BucketWidthMs: h.BucketWidthMs,
			Buckets:       make([]HistogramBucketItem, 0, len(h.Buckets)),
		}
		for _, b := range h.Buckets {
			hi.Buckets = append(hi.Buckets, HistogramBucketItem{Start: b.Start, End: b.End, Count: b.Count})
		}
		item.Histogram = hi
	}
	return item
}

type ResultsResponse struct {
	QuestionID     string         `json:"questionId"`
	Type           string         `json:"type"`
	TotalResponses int            `json:"totalResponses"`
	Counts         map[string]int `json:"counts"`
	Average        *float64       `json:"average,omitempty"`
}
