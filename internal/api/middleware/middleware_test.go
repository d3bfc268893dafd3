package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/admin/topics", "/admin/topics"},
		{"/admin/partials/topics/42", "/admin/partials/topics/{id}"},
		{"/admin/partials/topics/42/clear", "/admin/partials/topics/{id}/clear"},
		{"/admin/partials/topics/abc/form", "/admin/partials/topics/abc/form"},
		{"/static/css/console.css", "/static/*"},
		{"/health/ready", "/health/ready"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestRouteLabel_ChiPattern проверяет, что после маршрутизации
// используется шаблон маршрута chi.
func TestRouteLabel_ChiPattern(t *testing.T) {
	var label string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			label = routeLabel(req)
		})
	})
	r.Delete("/admin/partials/topics/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/partials/topics/7", nil))

	if label != "/admin/partials/topics/{id}" {
		t.Errorf("routeLabel = %q, ожидался шаблон chi", label)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{"успех", "/admin/topics", http.StatusOK, "level=INFO"},
		{"ошибка клиента", "/admin/partials/topics/1", http.StatusConflict, "level=WARN"},
		{"ошибка сервера", "/admin/partials/topics", http.StatusBadGateway, "level=ERROR"},
		{"проба", "/health/live", http.StatusOK, "level=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("ok"))
			}))
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("HX-Request", "true")
			h.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("лог %q не содержит %q", out, tt.wantLevel)
			}
			if !strings.Contains(out, "htmx=true") || !strings.Contains(out, "bytes=2") {
				t.Errorf("лог без атрибутов htmx/bytes: %q", out)
			}
		})
	}
}
