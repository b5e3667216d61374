package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/transport/ws"
)

// POST /api/v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "CreateSession", err)
		return
	}
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessionSvc.CreateSession(r.Context(), pid, req.Title, req.MaxParticipants)
	if err != nil {
		h.writeError(w, r, "CreateSession", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionItem(sess))
}

// GET /api/v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "ListSessions", err)
		return
	}

	items, err := h.sessionSvc.ListSessions(r.Context(), pid)
	if err != nil {
		h.writeError(w, r, "ListSessions", err)
		return
	}
	resp := SessionsListResponse{Items: make([]SessionItem, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, toSessionItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionSvc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "GetSession", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionItem(sess))
}

// GET /api/v1/join/{code}
func (h *Handler) ResolveJoinCode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessionSvc.GetSessionByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, "ResolveJoinCode", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionItem(sess))
}

// PATCH /api/v1/sessions/{id}
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "UpdateSession", err)
		return
	}
	var req UpdateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessionSvc.UpdateSettings(r.Context(), pid, chi.URLParam(r, "id"), domain.Settings{
		Title:           req.Title,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		h.writeError(w, r, "UpdateSession", err)
		return
	}
	h.events.Publish(sess.ID, ws.TypeSessionUpdated, nil)
	writeJSON(w, http.StatusOK, toSessionItem(sess))
}

// POST /api/v1/sessions/{id}/activate
func (h *Handler) ActivateQuestion(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "ActivateQuestion", err)
		return
	}
	var req ActivateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessionSvc.ActivateQuestion(r.Context(), pid, chi.URLParam(r, "id"), req.QuestionID)
	if err != nil {
		h.writeError(w, r, "ActivateQuestion", err)
		return
	}
	if sess.ActiveQuestionID != nil && sess.QuestionStartedAt != nil {
		h.events.Publish(sess.ID, ws.TypeQuestionActivated, ws.QuestionActivatedPayload{
			QuestionID: *sess.ActiveQuestionID,
			StartedAt:  *sess.QuestionStartedAt,
		})
	}
	writeJSON(w, http.StatusOK, toSessionItem(sess))
}

// POST /api/v1/sessions/{id}/end
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "EndSession", err)
		return
	}

	sess, changed, err := h.sessionSvc.EndSession(r.Context(), pid, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "EndSession", err)
		return
	}
	if changed {
		h.events.Publish(sess.ID, ws.TypeSessionEnded, nil)
	}
	writeJSON(w, http.StatusOK, toSessionItem(sess))
}
