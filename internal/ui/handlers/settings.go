// Файл settings.go — обработчик страницы настроек консоли:
// размер страницы и сортировка таблицы топиков.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/topic-console/internal/service"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/topic-console/internal/ui/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/pages"
)

// SettingsStore — чтение и сохранение настроек консоли.
type SettingsStore interface {
	TableSettingsProvider
	SetMany(ctx context.Context, values map[string]string, updatedBy string) error
}

// SettingsHandler — обработчик страницы настроек.
type SettingsHandler struct {
	settingsSvc SettingsStore
	logger      *slog.Logger
}

// NewSettingsHandler создаёт новый SettingsHandler.
func NewSettingsHandler(settingsSvc SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsSvc: settingsSvc,
		logger:      logger.With(slog.String("component", "ui.settings")),
	}
}

// HandleSettings обрабатывает GET /admin/settings — страница настроек.
func (h *SettingsHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ts := h.settingsSvc.TopicsTable(ctx)

	data := pages.SettingsData{
		PageSize:    ts.PageSize,
		MaxPageSize: service.MaxTopicsPageSize,
		Sort:        ts.Sort,
		Order:       ts.Order,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.SettingsPage(data).Render(ctx, w); err != nil {
		h.logger.Error("Ошибка рендеринга Settings",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Ошибка рендеринга страницы", http.StatusInternalServerError)
	}
}

// HandleUpdate обрабатывает PUT /admin/partials/settings.
// Сохраняет настройки таблицы топиков в БД одной транзакцией.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.renderAlert(w, r, http.StatusBadRequest, "error", i18n.T(ctx, "errors.bad_form"))
		return
	}

	values := map[string]string{
		service.KeyTopicsPageSize: r.PostFormValue("page_size"),
		service.KeyTopicsSort:     r.PostFormValue("sort"),
		service.KeyTopicsOrder:    r.PostFormValue("order"),
	}

	sessionID := uimiddleware.SessionIDFromContext(ctx)
	if err := h.settingsSvc.SetMany(ctx, values, sessionID); err != nil {
		if errors.Is(err, service.ErrValidation) {
			h.renderAlert(w, r, http.StatusUnprocessableEntity, "error", err.Error())
			return
		}
		h.logger.Error("Ошибка сохранения настроек",
			slog.String("error", err.Error()),
		)
		h.renderAlert(w, r, http.StatusInternalServerError, "error", i18n.T(ctx, "errors.internal"))
		return
	}

	h.logger.Info("Настройки таблицы топиков обновлены",
		slog.String("updated_by", sessionID),
		slog.String("page_size", values[service.KeyTopicsPageSize]),
		slog.String("sort", values[service.KeyTopicsSort]),
		slog.String("order", values[service.KeyTopicsOrder]),
	)

	h.renderAlert(w, r, http.StatusOK, "success", i18n.T(ctx, "settings.saved"))
}

// renderAlert отрисовывает alert-компонент для HTMX-ответов.
func (h *SettingsHandler) renderAlert(w http.ResponseWriter, r *http.Request, status int, variant, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Alert(variant, msg).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга alert",
			slog.String("error", err.Error()),
		)
	}
}
