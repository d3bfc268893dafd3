// Пакет handlers — HTTP-обработчики UI консоли.
// Файл topics.go — страница списка топиков и HTMX-действия строк:
// формы создания и изменения, подтверждение и удаление, очистка.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/goartstore/topic-console/internal/domain/model"
	"github.com/bigkaa/goartstore/topic-console/internal/mgmtclient"
	"github.com/bigkaa/goartstore/topic-console/internal/service"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/topic-console/internal/ui/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/pages"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/topics"
)

// TopicsPartialsPath — префикс partial-маршрутов топиков.
const TopicsPartialsPath = "/admin/partials/topics"

// TopicLister — чтение страницы топиков из management API.
type TopicLister interface {
	List(ctx context.Context, opts mgmtclient.ListOptions) (*mgmtclient.TopicList, error)
}

// TableSettingsProvider — параметры таблицы по умолчанию.
type TableSettingsProvider interface {
	TopicsTable(ctx context.Context) service.TableSettings
}

// TopicsHandler — обработчик страницы топиков.
type TopicsHandler struct {
	ctrl     *topics.Controller
	lister   TopicLister
	store    *service.TableStore
	settings TableSettingsProvider
	bundle   *i18n.Bundle
	logger   *slog.Logger
}

// NewTopicsHandler создаёт новый TopicsHandler.
func NewTopicsHandler(
	ctrl *topics.Controller,
	lister TopicLister,
	store *service.TableStore,
	settings TableSettingsProvider,
	bundle *i18n.Bundle,
	logger *slog.Logger,
) *TopicsHandler {
	return &TopicsHandler{
		ctrl:     ctrl,
		lister:   lister,
		store:    store,
		settings: settings,
		bundle:   bundle,
		logger:   logger.With(slog.String("component", "ui.topics")),
	}
}

// listParams — параметры отображаемой страницы.
type listParams struct {
	page     int
	pageSize int
	sort     string
	order    string
	query    string
}

// params извлекает параметры страницы из query string; отсутствующие и
// некорректные значения берутся из настроек.
func (h *TopicsHandler) params(r *http.Request) listParams {
	ts := h.settings.TopicsTable(r.Context())
	q := r.URL.Query()

	p := listParams{
		page:     1,
		pageSize: ts.PageSize,
		sort:     ts.Sort,
		order:    ts.Order,
		query:    q.Get("q"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.page = n
	}
	if v := q.Get("sort"); service.ValidSort(v) {
		p.sort = v
	}
	if v := q.Get("order"); service.ValidOrder(v) {
		p.order = v
	}
	return p
}

// load запрашивает страницу топиков и заменяет состояние таблицы сессии.
func (h *TopicsHandler) load(ctx context.Context, sessionID string, p listParams) (*service.TableState, int, error) {
	list, err := h.lister.List(ctx, mgmtclient.ListOptions{
		Page:     p.page,
		PageSize: p.pageSize,
		Query:    p.query,
		Sort:     p.sort,
		Order:    p.order,
	})
	if err != nil {
		return nil, 0, err
	}

	host, err := h.ctrl.NewHost(h.bundle.Tf)
	if err != nil {
		return nil, 0, err
	}
	if err := host.Load(list.Topics); err != nil {
		return nil, 0, err
	}
	return h.store.Put(sessionID, host), list.Total, nil
}

// HandleList обрабатывает GET /admin/topics — страница списка топиков.
func (h *TopicsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := uimiddleware.SessionIDFromContext(ctx)
	p := h.params(r)

	data := pages.TopicsData{
		PartialsPath: TopicsPartialsPath,
		Page:         p.page,
		PageSize:     p.pageSize,
		Sort:         p.sort,
		Order:        p.order,
		Query:        p.query,
	}

	st, total, err := h.load(ctx, sessionID, p)
	status := http.StatusOK
	if err != nil {
		h.logger.Error("Ошибка получения списка топиков",
			slog.String("error", err.Error()),
		)
		status, data.Error = h.describe(ctx, err)
		// Пустая таблица: действия по строкам будут отклонены как устаревшие.
		data.Body = datatable.NewTable[model.Topic](h.ctrl.Binding())
		if host, hostErr := h.ctrl.NewHost(h.bundle.Tf); hostErr == nil {
			h.store.Put(sessionID, host)
		} else {
			h.store.Delete(sessionID)
		}
	} else {
		data.Body = st.Host.Table()
		data.Total = total
	}

	h.render(w, r, status, pages.TopicsPage(data))
}

// state возвращает состояние таблицы сессии. Если оно истекло, первая
// страница загружается заново.
func (h *TopicsHandler) state(w http.ResponseWriter, r *http.Request) (*service.TableState, bool) {
	ctx := r.Context()
	sessionID := uimiddleware.SessionIDFromContext(ctx)
	if st, ok := h.store.Get(sessionID); ok {
		return st, true
	}

	h.logger.Debug("Состояние таблицы отсутствует, загрузка первой страницы",
		slog.String("session_id", sessionID),
	)
	p := h.params(r)
	p.page = 1
	st, _, err := h.load(ctx, sessionID, p)
	if err != nil {
		h.renderError(w, r, err)
		return nil, false
	}
	return st, true
}

// HandleCreateForm обрабатывает GET /admin/partials/topics/form.
func (h *TopicsHandler) HandleCreateForm(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	form, err := h.ctrl.Create(r.Context(), st.Host)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pages.TopicForm(TopicsPartialsPath, form))
}

// HandleEditForm обрабатывает GET /admin/partials/topics/{id}/form.
func (h *TopicsHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.topicID(w, r)
	if !ok {
		return
	}
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	form, err := h.ctrl.Edit(r.Context(), st.Host, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pages.TopicForm(TopicsPartialsPath, form))
}

// HandleCreate обрабатывает POST /admin/partials/topics.
// Ответ — новая строка (добавляется в конец tbody) и уведомление.
func (h *TopicsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	form, err := h.ctrl.Create(r.Context(), st.Host)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.submit(w, r, st, form)
}

// HandleUpdate обрабатывает PUT /admin/partials/topics/{id}.
// Ответ — изменённая строка (заменяет tr_<id> на месте) и уведомление.
func (h *TopicsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.topicID(w, r)
	if !ok {
		return
	}
	st, ok := h.state(w, r)
	if !ok {
		return
	}
	form, err := h.ctrl.Edit(r.Context(), st.Host, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.submit(w, r, st, form)
}

func (h *TopicsHandler) submit(w http.ResponseWriter, r *http.Request, st *service.TableState, form datatable.Form) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pages.Alert("error", i18n.T(ctx, "errors.bad_form")))
		return
	}

	out, err := h.ctrl.Submit(ctx, st.Host, form, r.PostForm)
	if err != nil {
		var fe *datatable.FormError
		if errors.As(err, &fe) {
			// Форма остаётся открытой с введёнными значениями.
			status, msg := h.describe(ctx, fe.Err)
			fe.Form.Error = msg
			w.Header().Set("HX-Retarget", "#modal")
			w.Header().Set("HX-Reswap", "innerHTML")
			h.render(w, r, status, pages.TopicForm(TopicsPartialsPath, fe.Form))
			return
		}
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("HX-Trigger", "closeModal")
	h.render(w, r, http.StatusOK, templ.Join(
		h.rowComponent(st, out.ID),
		pages.AlertOOB("success", out.Message),
	))
}

// HandleDeleteConfirm обрабатывает GET /admin/partials/topics/{id}/delete.
// Выдаёт диалог подтверждения с одноразовым токеном.
func (h *TopicsHandler) HandleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.topicID(w, r)
	if !ok {
		return
	}
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	// Текст подтверждения формирует хост; отказ не обращается к API.
	var message string
	prompt := datatable.ConfirmFunc(func(_ context.Context, msg string) bool {
		message = msg
		return false
	})
	_, err := h.ctrl.Delete(r.Context(), st.Host, id, prompt)
	if !errors.Is(err, datatable.ErrDeclined) {
		h.renderError(w, r, err)
		return
	}

	token := st.IssueToken(id)
	h.render(w, r, http.StatusOK, pages.ConfirmDelete(TopicsPartialsPath, id, message, token))
}

// HandleDelete обрабатывает DELETE /admin/partials/topics/{id}.
// Без действующего токена подтверждения запрос считается отказом.
func (h *TopicsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.topicID(w, r)
	if !ok {
		return
	}
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	token := r.FormValue("token")
	confirm := datatable.ConfirmFunc(func(context.Context, string) bool {
		return st.ConsumeToken(id, token)
	})

	out, err := h.ctrl.Delete(r.Context(), st.Host, id, confirm)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	// Пустое основное содержимое удаляет строку (outerHTML).
	w.Header().Set("HX-Trigger", "closeModal")
	h.render(w, r, http.StatusOK, pages.AlertOOB("success", out.Message))
}

// HandleClear обрабатывает POST /admin/partials/topics/{id}/clear.
func (h *TopicsHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.topicID(w, r)
	if !ok {
		return
	}
	st, ok := h.state(w, r)
	if !ok {
		return
	}

	out, err := h.ctrl.Clear(r.Context(), st.Host, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, pages.Alert("success", out.Message))
}

// --- Вспомогательные функции ---

// topicID извлекает {id} из пути так же, как это делают chi-серверы,
// сгенерированные oapi-codegen.
func (h *TopicsHandler) topicID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id <= 0 {
		h.render(w, r, http.StatusBadRequest, pages.Alert("error", i18n.T(r.Context(), "errors.bad_id")))
		return 0, false
	}
	return id, true
}

// rowComponent выводит строку id из таблицы сессии.
func (h *TopicsHandler) rowComponent(st *service.TableState, id int64) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return st.Host.Table().RenderRow(w, id)
	})
}

// describe возвращает HTTP-статус и текст ошибки для оператора.
// Сообщения management API показываются как есть.
func (h *TopicsHandler) describe(ctx context.Context, err error) (int, string) {
	var apiErr *mgmtclient.APIError
	var verrs validation.Errors

	switch {
	case datatable.IsStale(err), errors.Is(err, mgmtclient.ErrNotFound):
		return http.StatusNotFound, i18n.T(ctx, "errors.stale_row")
	case errors.Is(err, datatable.ErrBusy):
		return http.StatusConflict, i18n.T(ctx, "errors.busy")
	case errors.Is(err, datatable.ErrDeclined):
		return http.StatusBadRequest, i18n.T(ctx, "errors.not_confirmed")
	case errors.Is(err, datatable.ErrHostUnavailable):
		return http.StatusServiceUnavailable, i18n.T(ctx, "errors.host_unavailable")
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, verrs.Error()
	case errors.As(err, &apiErr):
		switch {
		case errors.Is(err, mgmtclient.ErrValidation):
			return http.StatusUnprocessableEntity, apiErr.Message
		case errors.Is(err, mgmtclient.ErrConflict):
			return http.StatusConflict, apiErr.Message
		case errors.Is(err, mgmtclient.ErrUnavailable):
			return http.StatusBadGateway, i18n.T(ctx, "errors.unavailable") + ": " + apiErr.Message
		default:
			return http.StatusBadGateway, apiErr.Message
		}
	case errors.Is(err, mgmtclient.ErrInvalidResponse), errors.Is(err, mgmtclient.ErrUnavailable):
		return http.StatusBadGateway, i18n.T(ctx, "errors.unavailable")
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// renderError отрисовывает alert с описанием ошибки.
func (h *TopicsHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := h.describe(r.Context(), err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Ошибка обработки запроса",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	h.render(w, r, status, pages.Alert("error", msg))
}

// render отрисовывает компонент с указанным статусом.
func (h *TopicsHandler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
