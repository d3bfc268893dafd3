package topics

import (
	"context"
	"log/slog"
	"net/url"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/domain/model"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
)

// API — операции management API над топиками, нужные контроллеру.
type API interface {
	CreateTopic(ctx context.Context, in model.TopicInput) (model.Topic, error)
	UpdateTopic(ctx context.Context, in model.TopicInput) (model.Topic, error)
	DeleteTopic(ctx context.Context, id int64) error
	ClearTopic(ctx context.Context, id int64) error
}

// Host — табличный хост топиков.
type Host = datatable.Host[model.Topic]

// Controller — контроллер списка топиков. Один на приложение; состояние
// отображаемой страницы живёт в Host (по одному на сессию оператора).
// Хосты создаются только после Initialize.
type Controller struct {
	binding  *Binding
	api      API
	logger   *slog.Logger
	registry atomic.Pointer[datatable.Registry]
}

// NewController создаёт контроллер. basePath — префикс partial-маршрутов.
func NewController(basePath string, api API, logger *slog.Logger) *Controller {
	return &Controller{
		binding: NewBinding(basePath),
		api:     api,
		logger:  logger.With(slog.String("component", "ui.topics")),
	}
}

// Binding возвращает привязку топиков.
func (c *Controller) Binding() *Binding {
	return c.binding
}

// Initialize регистрирует привязку топиков в реестре хоста.
// Повторная регистрация — datatable.ErrAlreadyRegistered,
// отсутствующий реестр — datatable.ErrHostUnavailable.
func (c *Controller) Initialize(reg *datatable.Registry) error {
	if err := reg.Register(c.binding); err != nil {
		return err
	}
	c.registry.Store(reg)
	c.logger.Info("Привязка топиков зарегистрирована",
		slog.Any("fields", c.binding.Fields()),
		slog.Bool("password_required", c.binding.PasswordRequired()),
	)
	return nil
}

// NewHost создаёт табличный хост топиков для одной сессии по привязке из
// реестра. До Initialize — datatable.ErrHostUnavailable.
func (c *Controller) NewHost(tr datatable.Translator) (*Host, error) {
	return datatable.HostFor[model.Topic](c.registry.Load(), Kind, apiBackend{api: c.api}, c.logger, datatable.WithTranslator(tr))
}

// Create открывает форму создания топика. Сетевых вызовов нет.
func (c *Controller) Create(ctx context.Context, h *Host) (datatable.Form, error) {
	if h == nil {
		return datatable.Form{}, datatable.ErrHostUnavailable
	}
	return h.OpenCreate(ctx), nil
}

// Edit открывает форму изменения топика id, заполненную из отображаемой строки.
func (c *Controller) Edit(ctx context.Context, h *Host, id int64) (datatable.Form, error) {
	if h == nil {
		return datatable.Form{}, datatable.ErrHostUnavailable
	}
	return h.OpenEdit(ctx, id)
}

// Submit отправляет форму создания или изменения.
func (c *Controller) Submit(ctx context.Context, h *Host, form datatable.Form, values url.Values) (datatable.Outcome, error) {
	if h == nil {
		return datatable.Outcome{}, datatable.ErrHostUnavailable
	}
	return h.Submit(ctx, form, values)
}

// RenderRow строит разметку строки топика.
func (c *Controller) RenderRow(item, data model.Topic, includeRowWrapper bool) *html.Node {
	return c.binding.RenderRow(item, data, includeRowWrapper)
}

// Delete удаляет топик после подтверждения оператора.
func (c *Controller) Delete(ctx context.Context, h *Host, id int64, confirm datatable.Confirmer) (datatable.Outcome, error) {
	if h == nil {
		return datatable.Outcome{}, datatable.ErrHostUnavailable
	}
	return h.Delete(ctx, id, confirm)
}

// Clear очищает содержимое топика id. Строка таблицы не меняется.
func (c *Controller) Clear(ctx context.Context, h *Host, id int64) (datatable.Outcome, error) {
	if h == nil {
		return datatable.Outcome{}, datatable.ErrHostUnavailable
	}
	rec, err := h.Run(ctx, id, func(ctx context.Context, t model.Topic) error {
		return c.api.ClearTopic(ctx, t.ID)
	})
	if err != nil {
		c.logger.Warn("Ошибка очистки топика",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return datatable.Outcome{}, err
	}

	c.logger.Info("Топик очищен", slog.String("topic", rec.String()))
	return datatable.Outcome{
		ID:      id,
		Message: h.Translate(ctx, msgCleared, c.binding.DisplayName(rec)),
	}, nil
}

// apiBackend — datatable.Backend поверх management API.
type apiBackend struct {
	api API
}

func (b apiBackend) Create(ctx context.Context, t model.Topic) (model.Topic, error) {
	return b.api.CreateTopic(ctx, t.Input())
}

func (b apiBackend) Update(ctx context.Context, t model.Topic) (model.Topic, error) {
	return b.api.UpdateTopic(ctx, t.Input())
}

func (b apiBackend) Delete(ctx context.Context, id int64) error {
	return b.api.DeleteTopic(ctx, id)
}
