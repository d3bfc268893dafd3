// middleware.go — определение языка запроса.
package i18n

import (
	"net/http"
)

// LangCookieName — имя cookie для хранения выбранного языка.
const LangCookieName = "lang"

// Middleware определяет язык запроса и помещает каталог и язык в контекст.
// Приоритет: cookie "lang" → Accept-Language → язык по умолчанию.
func (b *Bundle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), b, b.detect(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// detect определяет язык запроса.
func (b *Bundle) detect(r *http.Request) string {
	// Cookie: язык, явно выбранный оператором
	if cookie, err := r.Cookie(LangCookieName); err == nil && b.Supported(cookie.Value) {
		return cookie.Value
	}
	return b.Match(r.Header.Get("Accept-Language"))
}
