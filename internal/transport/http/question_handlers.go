package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/poll-service/internal/transport/ws"
)

// POST /api/v1/sessions/{id}/questions
func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "CreateQuestion", err)
		return
	}
	var req QuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.questionSvc.CreateQuestion(r.Context(), pid, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		h.writeError(w, r, "CreateQuestion", err)
		return
	}
	h.events.Publish(q.SessionID, ws.TypeQuestionsChanged, ws.QuestionsChangedPayload{QuestionID: q.ID, Action: "created"})
	writeJSON(w, http.StatusCreated, toQuestionItem(q))
}

// GET /api/v1/sessions/{id}/questions
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questionSvc.ListQuestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "ListQuestions", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuestionsList(qs))
}

// PATCH /api/v1/questions/{qid}
func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "UpdateQuestion", err)
		return
	}
	var req QuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	q, err := h.questionSvc.UpdateQuestion(r.Context(), pid, chi.URLParam(r, "qid"), req.toInput())
	if err != nil {
		h.writeError(w, r, "UpdateQuestion", err)
		return
	}
	h.events.Publish(q.SessionID, ws.TypeQuestionsChanged, ws.QuestionsChangedPayload{QuestionID: q.ID, Action: "updated"})
	writeJSON(w, http.StatusOK, toQuestionItem(q))
}

// DELETE /api/v1/questions/{qid}
func (h *Handler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "DeleteQuestion", err)
		return
	}

	q, err := h.questionSvc.DeleteQuestion(r.Context(), pid, chi.URLParam(r, "qid"))
	if err != nil {
		h.writeError(w, r, "DeleteQuestion", err)
		return
	}
	h.events.Publish(q.SessionID, ws.TypeQuestionsChanged, ws.QuestionsChangedPayload{QuestionID: q.ID, Action: "deleted"})
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/sessions/{id}/questions/reorder
func (h *Handler) ReorderQuestions(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "ReorderQuestions", err)
		return
	}
	var req ReorderQuestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sessionID := chi.URLParam(r, "id")
	qs, err := h.questionSvc.ReorderQuestions(r.Context(), pid, sessionID, req.QuestionIDs)
	if err != nil {
		h.writeError(w, r, "ReorderQuestions", err)
		return
	}
	h.events.Publish(sessionID, ws.TypeQuestionsChanged, ws.QuestionsChangedPayload{Action: "reordered"})
	writeJSON(w, http.StatusOK, toQuestionsList(qs))
}
