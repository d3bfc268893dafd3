package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/topic-console/internal/domain/model"
	"github.com/bigkaa/goartstore/topic-console/internal/mgmtclient"
	"github.com/bigkaa/goartstore/topic-console/internal/service"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/topic-console/internal/ui/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/topics"
)

// fakeAPI — management API в памяти.
type fakeAPI struct {
	mu      sync.Mutex
	topics  []model.Topic
	nextID  int64
	listErr error
	deleted []int64
	cleared []int64

	// clearStarted закрывается при входе в ClearTopic, который затем ждёт clearRelease.
	clearStarted chan struct{}
	clearRelease chan struct{}
}

func (f *fakeAPI) List(_ context.Context, _ mgmtclient.ListOptions) (*mgmtclient.TopicList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := append([]model.Topic(nil), f.topics...)
	return &mgmtclient.TopicList{Topics: out, Total: len(out)}, nil
}

func (f *fakeAPI) CreateTopic(_ context.Context, in model.TopicInput) (model.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.topics {
		if t.Name == in.Name {
			return model.Topic{}, &mgmtclient.APIError{
				Op: "create", Status: http.StatusConflict, Code: "CONFLICT",
				Message: "topic already exists", Err: mgmtclient.ErrConflict,
			}
		}
	}
	f.nextID++
	t := model.Topic{
		ID:             f.nextID,
		Name:           in.Name,
		MaxDepth:       in.MaxDepth,
		IsActive:       true,
		PublishersLink: "/admin/topics/publishers",
	}
	f.topics = append(f.topics, t)
	return t, nil
}

func (f *fakeAPI) UpdateTopic(_ context.Context, in model.TopicInput) (model.Topic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.topics {
		if t.ID == in.ID {
			f.topics[i].Name = in.Name
			f.topics[i].MaxDepth = in.MaxDepth
			return f.topics[i], nil
		}
	}
	return model.Topic{}, &mgmtclient.APIError{Op: "update", Status: http.StatusNotFound, Message: "not found", Err: mgmtclient.ErrNotFound}
}

func (f *fakeAPI) DeleteTopic(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	for i, t := range f.topics {
		if t.ID == id {
			f.topics = append(f.topics[:i], f.topics[i+1:]...)
			return nil
		}
	}
	return &mgmtclient.APIError{Op: "delete", Status: http.StatusNotFound, Message: "not found", Err: mgmtclient.ErrNotFound}
}

func (f *fakeAPI) ClearTopic(_ context.Context, id int64) error {
	if f.clearStarted != nil {
		close(f.clearStarted)
		<-f.clearRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, id)
	return nil
}

// fakeSettings — настройки в памяти.
type fakeSettings struct {
	mu     sync.Mutex
	ts     service.TableSettings
	err    error
	saved  map[string]string
	byWhom string
}

func (f *fakeSettings) TopicsTable(context.Context) service.TableSettings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ts
}

func (f *fakeSettings) SetMany(_ context.Context, values map[string]string, updatedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = values
	f.byWhom = updatedBy
	return nil
}

type testEnv struct {
	api      *fakeAPI
	settings *fakeSettings
	router   http.Handler
	cookie   *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return buildTestEnv(t, true)
}

// buildTestEnv собирает маршруты консоли; initialize — регистрировать ли
// привязку топиков в реестре.
func buildTestEnv(t *testing.T, initialize bool) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bundle, err := i18n.LoadEmbedded(logger)
	if err != nil {
		t.Fatalf("LoadEmbedded() ошибка: %v", err)
	}

	api := &fakeAPI{
		nextID: 100,
		topics: []model.Topic{
			{ID: 1, Name: "orders", MaxDepth: 500, IsActive: true},
			{ID: 2, Name: "billing", MaxDepth: 10000, IsActive: true},
		},
	}
	settings := &fakeSettings{ts: service.TableSettings{PageSize: 50, Sort: "name", Order: "asc"}}

	ctrl := topics.NewController(TopicsPartialsPath, api, logger)
	if initialize {
		if err := ctrl.Initialize(datatable.NewRegistry()); err != nil {
			t.Fatalf("Initialize() ошибка: %v", err)
		}
	}
	th := NewTopicsHandler(ctrl, api, service.NewTableStore(16, time.Minute), settings, bundle, logger)
	sh := NewSettingsHandler(settings, logger)

	r := chi.NewRouter()
	r.Use(bundle.Middleware())
	r.Use(uimiddleware.NewSession(false, logger).Middleware())
	r.Get("/admin/topics", th.HandleList)
	r.Get("/admin/settings", sh.HandleSettings)
	r.Post("/admin/set-language", NewLanguageHandler(bundle).HandleSetLanguage)
	r.Route(TopicsPartialsPath, func(r chi.Router) {
		r.Post("/", th.HandleCreate)
		r.Get("/form", th.HandleCreateForm)
		r.Get("/{id}/form", th.HandleEditForm)
		r.Put("/{id}", th.HandleUpdate)
		r.Get("/{id}/delete", th.HandleDeleteConfirm)
		r.Delete("/{id}", th.HandleDelete)
		r.Post("/{id}/clear", th.HandleClear)
	})
	r.Put("/admin/partials/settings", sh.HandleUpdate)

	return &testEnv{api: api, settings: settings, router: r}
}

// do выполняет запрос в рамках одной сессии оператора.
func (e *testEnv) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("HX-Request", "true")
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == uimiddleware.SessionCookieName {
			e.cookie = c
		}
	}
	return rec
}

func (e *testEnv) openPage(t *testing.T) {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/admin/topics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/topics: код %d, тело: %s", rec.Code, rec.Body.String())
	}
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(body, w) {
			t.Errorf("ответ не содержит %q:\n%s", w, body)
		}
	}
}

// --- Страница ---

func TestHandleList(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/admin/topics", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа = %d, ожидался 200", rec.Code)
	}
	if env.cookie == nil {
		t.Fatal("cookie сессии не выдан")
	}
	assertContains(t, rec.Body.String(),
		`id="data-table"`,
		`id="tr_1"`,
		`id="tr_2"`,
		"orders",
		"billing",
		"Total: 2",
	)
	if strings.Contains(rec.Body.String(), `class="updated"`) {
		t.Error("строки загруженной страницы помечены как изменённые")
	}
}

func TestHandlers_ControllerNotInitialized(t *testing.T) {
	env := buildTestEnv(t, false)

	rec := env.do(t, http.MethodGet, "/admin/topics", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /admin/topics: код %d, ожидался 503", rec.Code)
	}
	assertContains(t, rec.Body.String(), "The topic table is not initialized", `id="data-table"`)
	if strings.Contains(rec.Body.String(), `id="tr_1"`) {
		t.Error("строки отрисованы без инициализированного контроллера")
	}

	rec = env.do(t, http.MethodPost, TopicsPartialsPath, url.Values{"name": {"payments"}, "max_depth": {"10"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("POST create: код %d, ожидался 503", rec.Code)
	}
	if len(env.api.topics) != 2 {
		t.Errorf("топик создан без инициализированного контроллера: %d", len(env.api.topics))
	}
}

func TestHandleList_APIUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.api.listErr = &mgmtclient.APIError{Op: "list", Status: http.StatusServiceUnavailable, Message: "maintenance", Err: mgmtclient.ErrUnavailable}

	rec := env.do(t, http.MethodGet, "/admin/topics", nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("код ответа = %d, ожидался 502", rec.Code)
	}
	assertContains(t, rec.Body.String(), "The management API is unavailable: maintenance", `id="data-table"`)

	// Таблица пуста: действие по строке отклоняется как устаревшее без запроса к API.
	env.api.listErr = nil
	rec = env.do(t, http.MethodPost, TopicsPartialsPath+"/1/clear", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("clear по пустой таблице: код %d, ожидался 404", rec.Code)
	}
	if len(env.api.cleared) != 0 {
		t.Error("запрос к API по отсутствующей строке")
	}
}

// --- Формы ---

func TestHandleForms(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodGet, TopicsPartialsPath+"/form", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create form: код %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Create a new pub/sub topic", `value="10000"`, `hx-post="/admin/partials/topics"`)

	rec = env.do(t, http.MethodGet, TopicsPartialsPath+"/1/form", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit form: код %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Update the pub/sub topic", `value="orders"`, `value="500"`, `hx-put="/admin/partials/topics/1"`)

	rec = env.do(t, http.MethodGet, TopicsPartialsPath+"/999/form", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("edit form устаревшей строки: код %d, ожидался 404", rec.Code)
	}
}

func TestHandleBadID(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	for _, target := range []string{
		TopicsPartialsPath + "/abc/form",
		TopicsPartialsPath + "/-5/form",
		TopicsPartialsPath + "/0/form",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s: код %d, ожидался 400", target, rec.Code)
		}
	}
}

// --- Создание и изменение ---

func TestHandleCreate(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodPost, TopicsPartialsPath, url.Values{"name": {" payments "}, "max_depth": {"250"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа = %d, тело: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("HX-Trigger") != "closeModal" {
		t.Error("ожидался HX-Trigger closeModal")
	}
	assertContains(t, rec.Body.String(),
		`<tr id="tr_101" class="updated">`,
		"payments",
		"250",
		"Pub/sub topic `payments` created",
		`hx-swap-oob="innerHTML"`,
	)

	// Новая строка доступна для последующих действий
	rec = env.do(t, http.MethodGet, TopicsPartialsPath+"/101/form", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("форма новой строки: код %d", rec.Code)
	}
}

func TestHandleCreate_Failures(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   []string
	}{
		{
			name:       "пустое имя",
			form:       url.Values{"name": {""}, "max_depth": {"77"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"name", `value="77"`},
		},
		{
			name:       "max_depth не число",
			form:       url.Values{"name": {"x"}, "max_depth": {"many"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   []string{"max_depth", `value="many"`},
		},
		{
			name:       "дубликат на сервере",
			form:       url.Values{"name": {"orders"}, "max_depth": {"5"}},
			wantStatus: http.StatusConflict,
			wantBody:   []string{"topic already exists", `value="orders"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.openPage(t)

			rec := env.do(t, http.MethodPost, TopicsPartialsPath, tt.form)
			if rec.Code != tt.wantStatus {
				t.Errorf("код ответа = %d, ожидался %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("HX-Retarget") != "#modal" {
				t.Error("форма должна остаться в модальном окне")
			}
			assertContains(t, rec.Body.String(), tt.wantBody...)
			if len(env.api.topics) != 2 {
				t.Errorf("топиков = %d, ожидалось 2", len(env.api.topics))
			}
		})
	}
}

func TestHandleUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodPut, TopicsPartialsPath+"/1", url.Values{"name": {"orders-v2"}, "max_depth": {"900"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа = %d, тело: %s", rec.Code, rec.Body.String())
	}
	assertContains(t, rec.Body.String(),
		`<tr id="tr_1" class="updated">`,
		"orders-v2",
		"900",
		"Pub/sub topic `orders-v2` updated",
	)

	// Страница сохраняет порядок строк
	page := env.do(t, http.MethodGet, "/admin/topics", nil).Body.String()
	if strings.Index(page, `id="tr_1"`) > strings.Index(page, `id="tr_2"`) {
		t.Error("изменённая строка сменила позицию")
	}
}

func TestHandleUpdate_StaleRow(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodPut, TopicsPartialsPath+"/999", url.Values{"name": {"x"}, "max_depth": {"1"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("код ответа = %d, ожидался 404", rec.Code)
	}
	assertContains(t, rec.Body.String(), "no longer on this page")
}

// --- Удаление ---

var tokenRe = regexp.MustCompile(`token&#34;:&#34;([0-9a-f-]{36})`)

func TestHandleDelete_Flow(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	// Без токена — отказ, запроса к API нет
	rec := env.do(t, http.MethodDelete, TopicsPartialsPath+"/1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE без токена: код %d, ожидался 400", rec.Code)
	}
	if len(env.api.deleted) != 0 {
		t.Fatal("DELETE без подтверждения обратился к API")
	}

	// Диалог подтверждения называет топик по имени
	rec = env.do(t, http.MethodGet, TopicsPartialsPath+"/1/delete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("диалог: код %d", rec.Code)
	}
	body := rec.Body.String()
	assertContains(t, body, "Are you sure you want to delete the pub/sub topic `orders`?")
	m := tokenRe.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("токен не найден в диалоге:\n%s", body)
	}
	if len(env.api.deleted) != 0 {
		t.Fatal("диалог подтверждения обратился к API")
	}

	// Подтверждение
	rec = env.do(t, http.MethodDelete, TopicsPartialsPath+"/1?token="+m[1], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE с токеном: код %d, тело: %s", rec.Code, rec.Body.String())
	}
	assertContains(t, rec.Body.String(), "Pub/sub topic `orders` deleted")
	if len(env.api.deleted) != 1 || env.api.deleted[0] != 1 {
		t.Errorf("deleted = %v, ожидалось [1]", env.api.deleted)
	}

	// Строки больше нет: повтор с тем же токеном — устаревшая строка
	rec = env.do(t, http.MethodDelete, TopicsPartialsPath+"/1?token="+m[1], nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("повторный DELETE: код %d, ожидался 404", rec.Code)
	}
	if len(env.api.deleted) != 1 {
		t.Error("повторный DELETE обратился к API")
	}
}

func TestHandleDelete_TokenOfOtherRow(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodGet, TopicsPartialsPath+"/1/delete", nil)
	m := tokenRe.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatal("токен не найден")
	}

	rec = env.do(t, http.MethodDelete, TopicsPartialsPath+"/2?token="+m[1], nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("код ответа = %d, ожидался 400", rec.Code)
	}
	if len(env.api.deleted) != 0 {
		t.Error("токен другой строки привёл к удалению")
	}
}

func TestHandleDelete_BusyRowKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodGet, TopicsPartialsPath+"/1/delete", nil)
	m := tokenRe.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatal("токен не найден")
	}

	// Очистка строки 1 выполняется, пока оператор подтверждает удаление.
	env.api.clearStarted = make(chan struct{})
	env.api.clearRelease = make(chan struct{})
	clearReq := httptest.NewRequest(http.MethodPost, TopicsPartialsPath+"/1/clear", nil)
	clearReq.AddCookie(env.cookie)
	clearDone := make(chan int, 1)
	go func() {
		out := httptest.NewRecorder()
		env.router.ServeHTTP(out, clearReq)
		clearDone <- out.Code
	}()
	<-env.api.clearStarted

	rec = env.do(t, http.MethodDelete, TopicsPartialsPath+"/1?token="+m[1], nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("DELETE по занятой строке: код %d, ожидался 409", rec.Code)
	}

	close(env.api.clearRelease)
	if code := <-clearDone; code != http.StatusOK {
		t.Fatalf("очистка: код %d", code)
	}

	// Токен не погашен отказом по занятой строке.
	rec = env.do(t, http.MethodDelete, TopicsPartialsPath+"/1?token="+m[1], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("повторный DELETE: код %d, тело: %s", rec.Code, rec.Body.String())
	}
	if len(env.api.deleted) != 1 || env.api.deleted[0] != 1 {
		t.Errorf("deleted = %v, ожидалось [1]", env.api.deleted)
	}
}

// --- Очистка ---

func TestHandleClear(t *testing.T) {
	env := newTestEnv(t)
	env.openPage(t)

	rec := env.do(t, http.MethodPost, TopicsPartialsPath+"/2/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа = %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Pub/sub topic `billing` cleared", "alert-success")
	if len(env.api.cleared) != 1 || env.api.cleared[0] != 2 {
		t.Errorf("cleared = %v, ожидалось [2]", env.api.cleared)
	}
}

// TestHandleClear_ExpiredState проверяет перезагрузку состояния при его отсутствии.
func TestHandleClear_ExpiredState(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, TopicsPartialsPath+"/1/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("код ответа = %d, тело: %s", rec.Code, rec.Body.String())
	}
	if len(env.api.cleared) != 1 {
		t.Error("очистка не выполнена")
	}
}

// --- Настройки и язык ---

func TestSettingsHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/admin/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /admin/settings: код %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), `value="50"`, `max="500"`)

	rec = env.do(t, http.MethodPut, "/admin/partials/settings", url.Values{
		"page_size": {"20"}, "sort": {"max_depth"}, "order": {"desc"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT settings: код %d", rec.Code)
	}
	assertContains(t, rec.Body.String(), "Settings saved")
	if env.settings.saved[service.KeyTopicsSort] != "max_depth" || env.settings.byWhom != env.cookie.Value {
		t.Errorf("сохранено %v от %q", env.settings.saved, env.settings.byWhom)
	}

	env.settings.err = errors.Join(service.ErrValidation, errors.New("topics.page_size"))
	rec = env.do(t, http.MethodPut, "/admin/partials/settings", url.Values{"page_size": {"0"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("некорректные настройки: код %d, ожидался 422", rec.Code)
	}
}

func TestHandleSetLanguage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/admin/set-language", url.Values{"lang": {"ru"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("код ответа = %d, ожидался 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/admin/topics" {
		t.Errorf("Location = %q", loc)
	}

	var lang *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == i18n.LangCookieName {
			lang = c
		}
	}
	if lang == nil || lang.Value != "ru" {
		t.Fatalf("cookie языка = %+v", lang)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/topics", nil)
	req.AddCookie(lang)
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	assertContains(t, out.Body.String(), "Топики pub/sub")
}
