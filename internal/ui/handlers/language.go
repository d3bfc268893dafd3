// language.go — обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/pages"
)

// LanguageHandler — переключение языка UI.
type LanguageHandler struct {
	bundle *i18n.Bundle
}

// NewLanguageHandler создаёт обработчик для языков каталога bundle.
func NewLanguageHandler(bundle *i18n.Bundle) *LanguageHandler {
	return &LanguageHandler{bundle: bundle}
}

// HandleSetLanguage обрабатывает POST /admin/set-language.
// Устанавливает cookie "lang" и перенаправляет обратно.
// Параметр lang — код загруженного языка (из query или form).
func (h *LanguageHandler) HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if lang == "" {
		lang = r.URL.Query().Get("lang")
	}

	// Неизвестный язык — язык по умолчанию
	if !h.bundle.Supported(lang) {
		lang = h.bundle.Languages()[0]
	}

	// Устанавливаем cookie "lang" на 1 год
	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 год
		HttpOnly: false,               // JS может читать для UI-логики
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	// Redirect обратно на предыдущую страницу (Referer) или на список топиков
	referer := r.Header.Get("Referer")
	if referer == "" {
		referer = pages.TopicsPath
	}

	http.Redirect(w, r, referer, http.StatusSeeOther)
}
