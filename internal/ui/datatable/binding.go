// Пакет datatable — обобщённый табличный хост консоли.
//
// Хост не знает ничего о конкретном типе ресурса: разметку строк, список
// полей формы и тексты сообщений поставляет привязка (Binding), которая
// передаётся хосту явно. Хост держит модель отображаемой страницы
// (id → запись, id → узел строки), выполняет submit/delete через Backend и
// гарантирует, что строка и запись появляются и исчезают только вместе.
package datatable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"golang.org/x/net/html"
)

// Ошибки хоста.
var (
	// ErrStaleRow — строки с таким id нет на отображаемой странице.
	ErrStaleRow = errors.New("строка не найдена на странице")
	// ErrDuplicateRow — строка с таким id уже отображается.
	ErrDuplicateRow = errors.New("строка с таким id уже отображается")
	// ErrBusy — по строке уже выполняется запрос.
	ErrBusy = errors.New("по строке уже выполняется запрос")
	// ErrDeclined — оператор отказался от подтверждения.
	ErrDeclined = errors.New("действие не подтверждено")
	// ErrAlreadyRegistered — привязка для типа ресурса уже зарегистрирована.
	ErrAlreadyRegistered = errors.New("привязка ресурса уже зарегистрирована")
	// ErrHostUnavailable — хост не инициализирован.
	ErrHostUnavailable = errors.New("табличный хост недоступен")
)

// Messages — ключи сообщений привязки. Значения — ключи каталога переводов
// (или готовые format-строки), единственный аргумент — отображаемое имя записи.
type Messages struct {
	CreateTitle   string
	EditTitle     string
	Created       string
	Updated       string
	Deleted       string
	DeleteConfirm string
}

// Registration — описание типа ресурса, достаточное для реестра и форм.
type Registration interface {
	// Kind — имя типа ресурса ("topic").
	Kind() string
	// Fields — редактируемые поля формы, в порядке отображения.
	Fields() []string
	// PasswordRequired — нужна ли в форме пара полей пароля.
	PasswordRequired() bool
}

// Binding связывает тип записи R с табличным хостом.
type Binding[R any] interface {
	Registration

	// Messages возвращает ключи сообщений для форм и уведомлений.
	Messages() Messages
	// RecordID возвращает ключ записи.
	RecordID(rec R) int64
	// DisplayName возвращает имя записи для сообщений (не сырой id).
	DisplayName(rec R) string

	// RenderRow строит разметку строки. item — то, что отправил оператор,
	// data — ответ сервера. Строка с обёрткой помечается FreshClass.
	// Должна быть чистой функцией.
	RenderRow(item, data R, includeWrapper bool) *html.Node
	// ParseRow восстанавливает запись из строки таблицы (обратна RenderRow).
	ParseRow(tr *html.Node) (R, error)

	// BeforeSubmit нормализует значения формы перед отправкой.
	BeforeSubmit(values url.Values) error
	// FromForm строит запись из значений формы.
	FromForm(values url.Values) (R, error)
	// FormValues возвращает значения формы для записи (предзаполнение edit).
	FormValues(rec R) url.Values
}

// Backend — CRUD-операции внешнего API для типа записи R.
type Backend[R any] interface {
	Create(ctx context.Context, rec R) (R, error)
	Update(ctx context.Context, rec R) (R, error)
	Delete(ctx context.Context, id int64) error
}

// Confirmer запрашивает у оператора подтверждение разрушающего действия.
type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

// ConfirmFunc — адаптер функции к Confirmer.
type ConfirmFunc func(ctx context.Context, message string) bool

// Confirm вызывает f.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) bool {
	return f(ctx, message)
}

// Registry — реестр привязок по типу ресурса. Каждый тип регистрируется
// ровно один раз.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Registration
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Registration)}
}

// Register добавляет привязку. Повторная регистрация типа — ErrAlreadyRegistered.
func (r *Registry) Register(b Registration) error {
	if r == nil {
		return ErrHostUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[b.Kind()]; ok {
		return ErrAlreadyRegistered
	}
	r.bindings[b.Kind()] = b
	return nil
}

// Lookup возвращает привязку по типу ресурса.
func (r *Registry) Lookup(kind string) (Registration, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[kind]
	return b, ok
}

// Kinds возвращает зарегистрированные типы ресурсов в алфавитном порядке.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// HostFor создаёт хост для зарегистрированного типа ресурса kind.
// Незарегистрированный тип (или nil-реестр) — ErrHostUnavailable.
func HostFor[R any](reg *Registry, kind string, backend Backend[R], logger *slog.Logger, opts ...Option) (*Host[R], error) {
	b, ok := reg.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: тип %q не зарегистрирован", ErrHostUnavailable, kind)
	}
	binding, ok := b.(Binding[R])
	if !ok {
		return nil, fmt.Errorf("%w: привязка %q не подходит для %T", ErrHostUnavailable, kind, *new(R))
	}
	return NewHost(binding, backend, logger, opts...), nil
}
