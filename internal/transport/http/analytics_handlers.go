package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GET /api/v1/sessions/{id}/analytics
func (h *Handler) SessionAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.analyticsSvc.SessionAnalytics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "SessionAnalytics", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionAnalytics(a))
}

// GET /api/v1/sessions/{id}/engagement
func (h *Handler) ParticipantEngagement(w http.ResponseWriter, r *http.Request) {
	items, err := h.analyticsSvc.ParticipantEngagement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "ParticipantEngagement", err)
		return
	}
	resp := EngagementResponse{Items: make([]EngagementItem, 0, len(items))}
	for _, e := range items {
		resp.Items = append(resp.Items, EngagementItem{
			ParticipantID:     e.ParticipantID,
			Name:              e.Name,
			JoinedAt:          e.JoinedAt,
			QuestionsAnswered: e.QuestionsAnswered,
			TotalQuestions:    e.TotalQuestions,
			EngagementRate:    e.EngagementRate,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/sessions/{id}/timeline?buckets=true
func (h *Handler) ResponseTimeline(w http.ResponseWriter, r *http.Request) {
	withHistogram, _ := strconv.ParseBool(r.URL.Query().Get("buckets"))

	items, err := h.analyticsSvc.ResponseTimeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "ResponseTimeline", err)
		return
	}
	resp := TimelineResponse{Items: make([]TimelineItem, 0, len(items))}
	for _, t := range items {
		resp.Items = append(resp.Items, toTimelineItem(t, withHistogram))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/questions/{qid}/results
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	res, err := h.analyticsSvc.Results(r.Context(), chi.URLParam(r, "qid"))
	if err != nil {
		h.writeError(w, r, "Results", err)
		return
	}
	counts := res.Counts
	if counts == nil {
		counts = map[string]int{}
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		QuestionID:     res.QuestionID,
		Type:           string(res.Type),
		TotalResponses: res.TotalResponses,
		Counts:         counts,
		Average:        res.Average,
	})
}
