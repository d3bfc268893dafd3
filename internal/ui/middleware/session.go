// Пакет middleware — HTTP middleware для UI консоли.
// session.go — идентификатор сессии оператора (cookie-based).
// Аутентификация выполняется внешним прокси; cookie лишь связывает
// запросы с состоянием отображаемой таблицы.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// SessionCookieName — имя cookie с идентификатором сессии.
const SessionCookieName = "tc_session"

// contextKey — тип для ключей контекста UI.
type contextKey string

const (
	// ContextKeySessionID — идентификатор сессии в контексте запроса.
	ContextKeySessionID contextKey = "ui_session_id"
)

// Session — middleware выдачи идентификатора сессии.
type Session struct {
	secure bool
	logger *slog.Logger
}

// NewSession создаёт middleware сессии. secure — флаг Secure для cookie
// (консоль за TLS-терминирующим прокси).
func NewSession(secure bool, logger *slog.Logger) *Session {
	return &Session{
		secure: secure,
		logger: logger.With(slog.String("component", "ui_session_middleware")),
	}
}

// Middleware читает идентификатор сессии из cookie или выдаёт новый и
// помещает его в контекст. Значение, не являющееся UUID, заменяется.
func (s *Session) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    id,
					Path:     "/admin",
					HttpOnly: true,
					Secure:   s.secure,
					SameSite: http.SameSiteStrictMode,
				})
				s.logger.Debug("Выдана новая сессия",
					slog.String("session_id", id),
					slog.String("remote_addr", r.RemoteAddr),
				)
			}

			ctx := WithSessionID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSessionID помещает идентификатор сессии в контекст.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// SessionIDFromContext извлекает идентификатор сессии из контекста.
// Возвращает "" если запрос не прошёл через Session middleware.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeySessionID).(string)
	return id
}
