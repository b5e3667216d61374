package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cwrk-planet/poll-service/internal/domain"
	"github.com/cwrk-planet/poll-service/internal/security"
	"github.com/cwrk-planet/poll-service/internal/service"
	httpmw "github.com/cwrk-planet/poll-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Publisher рассылает события подписчикам сессии (ws.Hub).
type Publisher interface {
	Publish(sessionID, typ string, payload any)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Sessions  *service.SessionService
	Questions *service.QuestionService
	Members   *service.MemberService
	Responses *service.ResponseService
	Analytics *service.AnalyticsService
}

type Handler struct {
	sessionSvc   *service.SessionService
	questionSvc  *service.QuestionService
	memberSvc    *service.MemberService
	responseSvc  *service.ResponseService
	analyticsSvc *service.AnalyticsService

	events Publisher
	health Pinger
}

func NewHandler(svc Services, events Publisher, health Pinger) *Handler {
	if events == nil {
		events = nopPublisher{}
	}
	return &Handler{
		sessionSvc:   svc.Sessions,
		questionSvc:  svc.Questions,
		memberSvc:    svc.Members,
		responseSvc:  svc.Responses,
		analyticsSvc: svc.Analytics,
		events:       events,
		health:       health,
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Code: "invalid_json", Message: "request body is empty"}})
		return false
	}
	logger.FromContext(r.Context()).Debug("decode body failed", "err", err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Code: "invalid_json", Message: "invalid json"}})
	return false
}

// statusFor - единственное место, где класс доменной ошибки превращается в HTTP-код.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidReference):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, security.ErrMissingToken),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrInvalidSubject):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("handler."+op, "err", err)
		writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: "internal", Message: "internal error"}})
		return
	}

	code := domain.Code(err)
	if status == http.StatusUnauthorized {
		code = "unauthorized"
	}
	writeJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: err.Error()}})
}

// presenterID - id ведущего из JWT; маршрут должен стоять за httpmw.Auth.
func presenterID(r *http.Request) (string, error) {
	p, ok := httpmw.PresenterFromCtx(r.Context())
	if !ok {
		return "", security.ErrMissingToken
	}
	return p.ID, nil
}

// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logger.FromContext(r.Context()).Warn("readiness probe failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
