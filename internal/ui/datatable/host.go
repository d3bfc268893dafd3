package datatable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
)

// Translator возвращает текст сообщения по ключу с подстановкой аргументов.
// Подходит метод (*i18n.Bundle).Tf.
type Translator func(ctx context.Context, key string, args ...any) string

// Defaulter — необязательное расширение Binding: значения формы создания.
type Defaulter interface {
	FormDefaults() url.Values
}

// Option — функциональная опция Host.
type Option func(*hostOptions)

type hostOptions struct {
	translate Translator
}

// WithTranslator задаёт функцию перевода сообщений хоста.
func WithTranslator(tr Translator) Option {
	return func(o *hostOptions) {
		if tr != nil {
			o.translate = tr
		}
	}
}

func sprintf(_ context.Context, key string, args ...any) string {
	if len(args) == 0 {
		return key
	}
	return fmt.Sprintf(key, args...)
}

// Host — табличный хост одного типа ресурса: модель страницы, привязка и
// внешний API. Допускает не более одного незавершённого запроса на строку.
type Host[R any] struct {
	binding   Binding[R]
	backend   Backend[R]
	table     *Table[R]
	translate Translator
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewHost создаёт хост с пустой таблицей.
func NewHost[R any](binding Binding[R], backend Backend[R], logger *slog.Logger, opts ...Option) *Host[R] {
	o := hostOptions{translate: sprintf}
	for _, opt := range opts {
		opt(&o)
	}
	return &Host[R]{
		binding:   binding,
		backend:   backend,
		table:     NewTable(binding),
		translate: o.translate,
		logger:    logger.With(slog.String("component", "datatable"), slog.String("kind", binding.Kind())),
		pending:   make(map[int64]struct{}),
	}
}

// Table возвращает модель отображаемой страницы.
func (h *Host[R]) Table() *Table[R] {
	return h.table
}

// Binding возвращает привязку хоста.
func (h *Host[R]) Binding() Binding[R] {
	return h.binding
}

// Load заполняет таблицу записями страницы.
func (h *Host[R]) Load(records []R) error {
	return h.table.Load(records)
}

// Resolve возвращает запись отображаемой строки.
func (h *Host[R]) Resolve(id int64) (R, error) {
	rec, ok := h.table.Get(id)
	if !ok {
		return rec, fmt.Errorf("%w: %d", ErrStaleRow, id)
	}
	return rec, nil
}

// Translate переводит сообщение транслятором хоста.
func (h *Host[R]) Translate(ctx context.Context, key string, args ...any) string {
	return h.translate(ctx, key, args...)
}

// OpenCreate возвращает пустую форму создания. Сетевых вызовов нет.
func (h *Host[R]) OpenCreate(ctx context.Context) Form {
	values := url.Values{}
	if d, ok := h.binding.(Defaulter); ok {
		values = d.FormDefaults()
	}
	return Form{
		Mode:             ModeCreate,
		Title:            h.translate(ctx, h.binding.Messages().CreateTitle),
		Fields:           h.binding.Fields(),
		Values:           values,
		PasswordRequired: h.binding.PasswordRequired(),
	}
}

// OpenEdit возвращает форму изменения, заполненную из записи строки id.
func (h *Host[R]) OpenEdit(ctx context.Context, id int64) (Form, error) {
	rec, err := h.Resolve(id)
	if err != nil {
		return Form{}, err
	}
	return Form{
		Mode:             ModeEdit,
		ID:               id,
		Title:            h.translate(ctx, h.binding.Messages().EditTitle),
		Fields:           h.binding.Fields(),
		Values:           h.binding.FormValues(rec),
		PasswordRequired: h.binding.PasswordRequired(),
	}, nil
}

// Submit отправляет форму: create добавляет новую строку, edit заменяет
// строку с тем же id на месте. При любой ошибке таблица не меняется,
// а *FormError сохраняет введённые значения.
func (h *Host[R]) Submit(ctx context.Context, form Form, values url.Values) (Outcome, error) {
	submitted := cloneValues(values)
	form.Values = submitted

	if form.Mode == ModeEdit {
		if _, err := h.Resolve(form.ID); err != nil {
			return Outcome{}, h.formError(form, err)
		}
		release, err := h.acquire(form.ID)
		if err != nil {
			return Outcome{}, h.formError(form, err)
		}
		defer release()
	}

	// Нормализация работает с копией, в форме остаются введённые значения.
	payload := cloneValues(submitted)
	if form.Mode == ModeEdit {
		payload.Set("id", strconv.FormatInt(form.ID, 10))
	}
	if err := h.binding.BeforeSubmit(payload); err != nil {
		return Outcome{}, h.formError(form, err)
	}
	item, err := h.binding.FromForm(payload)
	if err != nil {
		return Outcome{}, h.formError(form, err)
	}

	msgs := h.binding.Messages()

	switch form.Mode {
	case ModeEdit:
		data, err := h.backend.Update(ctx, item)
		if err != nil {
			h.logger.Warn("Ошибка изменения записи",
				slog.Int64("id", form.ID),
				slog.String("error", err.Error()),
			)
			return Outcome{}, h.formError(form, err)
		}
		// Сервер не может сменить ключ записи при изменении.
		if got := h.binding.RecordID(data); got != form.ID {
			return Outcome{}, h.formError(form, fmt.Errorf("сервер вернул запись %d вместо %d", got, form.ID))
		}
		row, err := h.table.Replace(item, data)
		if err != nil {
			return Outcome{}, h.formError(form, err)
		}
		return Outcome{
			ID:      form.ID,
			Row:     row,
			Message: h.translate(ctx, msgs.Updated, h.binding.DisplayName(data)),
		}, nil

	default:
		data, err := h.backend.Create(ctx, item)
		if err != nil {
			h.logger.Warn("Ошибка создания записи", slog.String("error", err.Error()))
			return Outcome{}, h.formError(form, err)
		}
		row, err := h.table.Insert(item, data)
		if err != nil {
			return Outcome{}, h.formError(form, err)
		}
		id := h.binding.RecordID(data)
		h.logger.Info("Запись создана", slog.Int64("id", id))
		return Outcome{
			ID:      id,
			Row:     row,
			Message: h.translate(ctx, msgs.Created, h.binding.DisplayName(data)),
		}, nil
	}
}

// Delete удаляет запись после подтверждения оператора. Сообщение
// подтверждения содержит отображаемое имя записи. Отказ (или отсутствие
// Confirmer) — ErrDeclined без сетевого вызова. Строка занимается до
// подтверждения: по занятой строке Confirmer не вызывается. Строка и запись
// удаляются вместе только после успешного ответа сервера.
func (h *Host[R]) Delete(ctx context.Context, id int64, c Confirmer) (Outcome, error) {
	rec, err := h.Resolve(id)
	if err != nil {
		return Outcome{}, err
	}
	name := h.binding.DisplayName(rec)
	msgs := h.binding.Messages()

	release, err := h.acquire(id)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	if c == nil || !c.Confirm(ctx, h.translate(ctx, msgs.DeleteConfirm, name)) {
		return Outcome{}, ErrDeclined
	}

	if err := h.backend.Delete(ctx, id); err != nil {
		h.logger.Warn("Ошибка удаления записи",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return Outcome{}, err
	}
	if err := h.table.Remove(id); err != nil {
		return Outcome{}, err
	}

	h.logger.Info("Запись удалена", slog.Int64("id", id))
	return Outcome{ID: id, Message: h.translate(ctx, msgs.Deleted, name)}, nil
}

// Run выполняет операцию над строкой id, не меняя её (например, очистку).
// Строка должна отображаться, параллельный запрос по ней — ErrBusy.
func (h *Host[R]) Run(ctx context.Context, id int64, fn func(ctx context.Context, rec R) error) (R, error) {
	rec, err := h.Resolve(id)
	if err != nil {
		return rec, err
	}
	release, err := h.acquire(id)
	if err != nil {
		return rec, err
	}
	defer release()
	return rec, fn(ctx, rec)
}

// acquire помечает строку как занятую запросом.
func (h *Host[R]) acquire(id int64) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, busy := h.pending[id]; busy {
		return nil, fmt.Errorf("%w: %d", ErrBusy, id)
	}
	h.pending[id] = struct{}{}
	return func() {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
	}, nil
}

func (h *Host[R]) formError(form Form, err error) *FormError {
	form.Error = err.Error()
	return &FormError{Form: form, Message: err.Error(), Err: err}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// IsStale сообщает, что ошибка вызвана устаревшей строкой.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleRow)
}
