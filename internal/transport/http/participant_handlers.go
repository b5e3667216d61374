package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/transport/ws"
)

// POST /api/v1/sessions/{id}/participants
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, created, err := h.memberSvc.Join(r.Context(), chi.URLParam(r, "id"), req.UniqueID, req.Name)
	if err != nil {
		h.writeError(w, r, "Join", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.events.Publish(p.SessionID, ws.TypeParticipantJoined, ws.ParticipantJoinedPayload{ParticipantID: p.ID})
	}
	writeJSON(w, status, JoinResponse{
		ParticipantID: p.ID,
		Created:       created,
		Participant:   toParticipantItem(p),
	})
}

// GET /api/v1/sessions/{id}/participants
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	pid, err := presenterID(r)
	if err != nil {
		h.writeError(w, r, "ListParticipants", err)
		return
	}

	items, err := h.memberSvc.ListParticipants(r.Context(), pid, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "ListParticipants", err)
		return
	}
	resp := ParticipantsResponse{Items: make([]ParticipantItem, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, toParticipantItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/sessions/{id}/responses
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.responseSvc.Submit(r.Context(), chi.URLParam(r, "id"), req.QuestionID, req.ParticipantID, req.Answer)
	if err != nil {
		h.writeError(w, r, "Submit", err)
		return
	}
	h.events.Publish(resp.SessionID, ws.TypeResponseRecorded, ws.ResponseRecordedPayload{
		QuestionID:    resp.QuestionID,
		ParticipantID: resp.ParticipantID,
	})
	writeJSON(w, http.StatusOK, SubmitResponse{ResponseID: resp.ID, Response: toResponseItem(resp)})
}

// GET /api/v1/questions/{qid}/responses
func (h *Handler) ListResponses(w http.ResponseWriter, r *http.Request) {
	items, err := h.responseSvc.ListResponses(r.Context(), chi.URLParam(r, "qid"))
	if err != nil {
		h.writeError(w, r, "ListResponses", err)
		return
	}
	resp := ResponsesListResponse{Items: make([]ResponseItem, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, toResponseItem(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/questions/{qid}/responses/{pid}
func (h *Handler) GetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := h.responseSvc.GetResponse(r.Context(), chi.URLParam(r, "qid"), chi.URLParam(r, "pid"))
	switch {
	case errors.Is(err, domain.ErrResponseNotFound):
		writeJSON(w, http.StatusOK, HasRespondedResponse{HasResponded: false})
		return
	case err != nil:
		h.writeError(w, r, "GetResponse", err)
		return
	}
	item := toResponseItem(resp)
	writeJSON(w, http.StatusOK, HasRespondedResponse{HasResponded: true, Response: &item})
}
