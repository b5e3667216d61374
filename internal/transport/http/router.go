package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpmw "github.com/cwrk-planet/poll-service/internal/transport/http/middleware"
)

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(h *Handler, verifier httpmw.TokenVerifier, wsHandler http.HandlerFunc, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(httpmw.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(httpmw.Logging)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", httpmw.HeaderRequestID},
		ExposedHeaders:   []string{httpmw.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// WS endpoint: без таймаута, соединение долгоживущее
	if wsHandler != nil {
		r.Get("/ws/sessions/{id}", wsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middlewareChi.Timeout(cfg.RequestTimeout))

		// публичные маршруты: участники и экраны результатов
		api.Get("/join/{code}", h.ResolveJoinCode)
		api.Get("/sessions/{id}", h.GetSession)
		api.Get("/sessions/{id}/questions", h.ListQuestions)
		api.Post("/sessions/{id}/participants", h.Join)
		api.Post("/sessions/{id}/responses", h.Submit)
		api.Get("/sessions/{id}/analytics", h.SessionAnalytics)
		api.Get("/sessions/{id}/engagement", h.ParticipantEngagement)
		api.Get("/sessions/{id}/timeline", h.ResponseTimeline)
		api.Get("/questions/{qid}/results", h.Results)
		api.Get("/questions/{qid}/responses", h.ListResponses)
		api.Get("/questions/{qid}/responses/{pid}", h.GetResponse)

		// маршруты ведущего требуют JWT
		api.Group(func(pr chi.Router) {
			pr.Use(httpmw.Auth(verifier))

			pr.Post("/sessions", h.CreateSession)
			pr.Get("/sessions", h.ListSessions)
			pr.Patch("/sessions/{id}", h.UpdateSession)
			pr.Post("/sessions/{id}/activate", h.ActivateQuestion)
			pr.Post("/sessions/{id}/end", h.EndSession)
			pr.Post("/sessions/{id}/questions", h.CreateQuestion)
			pr.Post("/sessions/{id}/questions/reorder", h.ReorderQuestions)
			pr.Get("/sessions/{id}/participants", h.ListParticipants)
			pr.Patch("/questions/{qid}", h.UpdateQuestion)
			pr.Delete("/questions/{qid}", h.DeleteQuestion)
		})
	})

	// health
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	return r
}
