package httpmw

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwrk-planet/poll-service/internal/security"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (*security.Presenter, error) {
	id, ok := s[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &security.Presenter{ID: id}, nil
}

func TestAuth(t *testing.T) {
	var seen string
	h := Auth(stubVerifier{"good": "presenter-1"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PresenterFromCtx(r.Context())
		if !ok {
			t.Fatalf("presenter missing in context")
		}
		seen = p.ID
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"ok", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if tc.status == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"unauthorized"`) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
	if seen != "presenter-1" {
		t.Fatalf("presenter = %q", seen)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFromCtx(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got != "abc" || rec.Header().Get(HeaderRequestID) != "abc" {
		t.Fatalf("propagated id = %q / %q", got, rec.Header().Get(HeaderRequestID))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got == "" || got == "abc" || rec.Header().Get(HeaderRequestID) != got {
		t.Fatalf("generated id = %q", got)
	}
}

func TestLogging_RecordsStatus(t *testing.T) {
	h := RequestID(Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))
	if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
		t.Fatalf("passthrough broken: %d %q", rec.Code, rec.Body.String())
	}
}
