package httpmw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cwrk-planet/poll-service/internal/security"
	"github.com/cwrk-planet/poll-service/pkg/logger"
)

type ctxKey string

const ctxKeyPresenter ctxKey = "presenter"

type TokenVerifier interface {
	Verify(token string) (*security.Presenter, error)
}

// Auth требует Bearer JWT ведущего и кладёт проверенную личность в контекст.
func Auth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
				unauthorized(w, security.ErrMissingToken.Error())
				return
			}

			p, err := v.Verify(strings.TrimSpace(auth[7:]))
			if err != nil {
				logger.FromContext(r.Context()).Debug("auth rejected", "err", err)
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPresenter, p)
			ctx = logger.WithContext(ctx, logger.FromContext(r.Context()).With("presenter_id", p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PresenterFromCtx(ctx context.Context) (*security.Presenter, bool) {
	p, ok := ctx.Value(ctxKeyPresenter).(*security.Presenter)
	return p, ok && p != nil
}

// WithPresenter - для тестов обработчиков без JWT.
func WithPresenter(ctx context.Context, p *security.Presenter) context.Context {
	return context.WithValue(ctx, ctxKeyPresenter, p)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", `Bearer realm="poll-service"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": msg},
	})
}
