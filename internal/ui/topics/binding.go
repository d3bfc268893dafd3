// Пакет topics — контроллер списка pub/sub топиков консоли.
// Поставляет табличному хосту разметку строк, поля формы и тексты
// сообщений, а также связывает действия строки (edit, clear, delete)
// с management API.
package topics

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/domain/model"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/view"
)

// Kind — тип ресурса в реестре табличного хоста.
const Kind = "topic"

// NoValue — маркер пустого значения в ячейке.
const NoValue = "---"

// Порядок колонок строки таблицы.
const (
	colNumbering = iota
	colSelect
	colName
	colMaxDepth
	colReserved1
	colReserved2
	colPublishers
	colSubscribers
	colEdit
	colClear
	colDelete
	colID
	colInternal
	colActive

	columnCount
)

// ErrMalformedRow — строка таблицы не соответствует разметке топика.
var ErrMalformedRow = errors.New("строка таблицы топика повреждена")

// Ключи сообщений каталога i18n.
const (
	msgCreateTitle   = "topics.create_title"
	msgEditTitle     = "topics.edit_title"
	msgCreated       = "topics.created"
	msgUpdated       = "topics.updated"
	msgDeleted       = "topics.deleted"
	msgCleared       = "topics.cleared"
	msgDeleteConfirm = "topics.delete_confirm"
)

// Binding — привязка model.Topic к табличному хосту.
// Действия строки адресуются к HTMX-обработчикам под basePath.
type Binding struct {
	basePath string
}

// NewBinding создаёт привязку. basePath — префикс partial-маршрутов топиков,
// например "/admin/partials/topics".
func NewBinding(basePath string) *Binding {
	return &Binding{basePath: strings.TrimRight(basePath, "/")}
}

var _ datatable.Binding[model.Topic] = (*Binding)(nil)

// Kind возвращает тип ресурса.
func (b *Binding) Kind() string { return Kind }

// Fields возвращает редактируемые поля формы.
func (b *Binding) Fields() []string { return []string{"name", "max_depth"} }

// PasswordRequired — у топика нет пароля.
func (b *Binding) PasswordRequired() bool { return false }

// Messages возвращает ключи сообщений топика.
func (b *Binding) Messages() datatable.Messages {
	return datatable.Messages{
		CreateTitle:   msgCreateTitle,
		EditTitle:     msgEditTitle,
		Created:       msgCreated,
		Updated:       msgUpdated,
		Deleted:       msgDeleted,
		DeleteConfirm: msgDeleteConfirm,
	}
}

// RecordID возвращает ключ топика.
func (b *Binding) RecordID(t model.Topic) int64 { return t.ID }

// DisplayName возвращает имя топика для сообщений.
func (b *Binding) DisplayName(t model.Topic) string {
	if t.Name == "" {
		return t.String()
	}
	return t.Name
}

// RowPath возвращает путь partial-маршрута строки.
func (b *Binding) RowPath(id int64, suffix string) string {
	p := b.basePath + "/" + strconv.FormatInt(id, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// RenderRow строит строку таблицы. Имя и max_depth берутся из item
// (то, что отправил оператор), ключ, ссылки и флаги из data (ответ сервера).
func (b *Binding) RenderRow(item, data model.Topic, includeWrapper bool) *html.Node {
	id := strconv.FormatInt(data.ID, 10)

	maxDepth := ""
	if item.MaxDepth != 0 {
		maxDepth = strconv.Itoa(item.MaxDepth)
	}

	cells := make([]*html.Node, columnCount)
	cells[colNumbering] = view.El("td", view.Attrs("class", "numbering"), view.Text("\u00a0"))
	cells[colSelect] = view.El("td", view.Attrs("class", "impexp"),
		view.El("input", view.Attrs("type", "checkbox", "name", "impexp", "value", id)))
	cells[colName] = view.El("td", nil, valueOrMarker(item.Name))
	cells[colMaxDepth] = view.El("td", nil, valueOrMarker(maxDepth))
	cells[colReserved1] = view.El("td", nil, marker())
	cells[colReserved2] = view.El("td", nil, marker())
	cells[colPublishers] = view.El("td", nil, link(data.PublishersLink, "Publishers"))
	cells[colSubscribers] = view.El("td", nil, link(data.SubscribersLink, "Subscribers"))
	cells[colEdit] = view.El("td", nil, view.El("a", view.Attrs(
		"href", "#",
		"hx-get", b.RowPath(data.ID, "form"),
		"hx-target", "#modal",
	), view.Text("Edit")))
	cells[colClear] = view.El("td", nil, view.El("a", view.Attrs(
		"href", "#",
		"hx-post", b.RowPath(data.ID, "clear"),
		"hx-target", "#alerts",
	), view.Text("Clear")))
	cells[colDelete] = view.El("td", nil, view.El("a", view.Attrs(
		"href", "#",
		"hx-get", b.RowPath(data.ID, "delete"),
		"hx-target", "#modal",
	), view.Text("Delete")))
	cells[colID] = view.El("td", view.Attrs("class", "ignore item_id_"+id), view.Text(id))
	cells[colInternal] = view.El("td", view.Attrs("class", "ignore"), view.Text(strconv.FormatBool(data.IsInternal)))
	cells[colActive] = view.El("td", view.Attrs("class", "ignore"), view.Text(strconv.FormatBool(data.IsActive)))

	if !includeWrapper {
		return view.Fragment(cells...)
	}
	return view.El("tr", view.Attrs("id", "tr_"+id, "class", datatable.FreshClass), cells...)
}

// ParseRow восстанавливает топик из строки таблицы.
func (b *Binding) ParseRow(tr *html.Node) (model.Topic, error) {
	cells := view.ChildElements(tr, "td")
	if len(cells) != columnCount {
		return model.Topic{}, fmt.Errorf("%w: %d ячеек вместо %d", ErrMalformedRow, len(cells), columnCount)
	}

	idText := view.TextContent(cells[colID])
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || id <= 0 {
		return model.Topic{}, fmt.Errorf("%w: некорректный id %q", ErrMalformedRow, idText)
	}
	if !view.HasClass(cells[colID], "item_id_"+idText) {
		return model.Topic{}, fmt.Errorf("%w: ячейка id без класса item_id_%s", ErrMalformedRow, idText)
	}

	t := model.Topic{
		ID:              id,
		Name:            cellValue(cells[colName]),
		PublishersLink:  linkHref(cells[colPublishers]),
		SubscribersLink: linkHref(cells[colSubscribers]),
	}
	if depth := cellValue(cells[colMaxDepth]); depth != "" {
		if t.MaxDepth, err = strconv.Atoi(depth); err != nil {
			return model.Topic{}, fmt.Errorf("%w: некорректный max_depth %q", ErrMalformedRow, depth)
		}
	}
	if t.IsInternal, err = strconv.ParseBool(view.TextContent(cells[colInternal])); err != nil {
		return model.Topic{}, fmt.Errorf("%w: is_internal: %v", ErrMalformedRow, err)
	}
	if t.IsActive, err = strconv.ParseBool(view.TextContent(cells[colActive])); err != nil {
		return model.Topic{}, fmt.Errorf("%w: is_active: %v", ErrMalformedRow, err)
	}
	return t, nil
}

// FormDefaults — значения формы создания.
func (b *Binding) FormDefaults() url.Values {
	return url.Values{
		"name":      {""},
		"max_depth": {strconv.Itoa(model.DefaultMaxDepth)},
	}
}

// BeforeSubmit нормализует значения формы: обрезает пробелы и подставляет
// max_depth по умолчанию.
func (b *Binding) BeforeSubmit(values url.Values) error {
	values.Set("name", strings.TrimSpace(values.Get("name")))
	depth := strings.TrimSpace(values.Get("max_depth"))
	if depth == "" {
		depth = strconv.Itoa(model.DefaultMaxDepth)
	}
	values.Set("max_depth", depth)
	return nil
}

// FromForm строит топик из значений формы и проверяет его.
func (b *Binding) FromForm(values url.Values) (model.Topic, error) {
	var in model.TopicInput

	if raw := values.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return model.Topic{}, validation.Errors{"id": errors.New("must be a positive integer")}
		}
		in.ID = id
	}

	in.Name = values.Get("name")
	depth, err := strconv.Atoi(values.Get("max_depth"))
	if err != nil {
		return model.Topic{}, validation.Errors{"max_depth": errors.New("must be an integer")}
	}
	in.MaxDepth = depth

	if err := in.Validate(); err != nil {
		return model.Topic{}, err
	}
	return model.Topic{ID: in.ID, Name: in.Name, MaxDepth: in.MaxDepth}, nil
}

// FormValues возвращает значения формы изменения.
func (b *Binding) FormValues(t model.Topic) url.Values {
	return url.Values{
		"name":      {t.Name},
		"max_depth": {strconv.Itoa(t.MaxDepth)},
	}
}

// --- Вспомогательные функции разметки ---

func marker() *html.Node {
	return view.El("span", view.Attrs("class", "form_hint"), view.Text(NoValue))
}

func valueOrMarker(s string) *html.Node {
	if s == "" {
		return marker()
	}
	return view.Text(s)
}

// link строит ссылку, если адрес относительный или http(s); иначе маркер.
func link(href, label string) *html.Node {
	if !safeHref(href) {
		return marker()
	}
	return view.El("a", view.Attrs("href", href), view.Text(label))
}

func safeHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "":
		return strings.HasPrefix(href, "/")
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// cellValue возвращает текст ячейки, маркер пустого значения — как "".
func cellValue(td *html.Node) string {
	if view.Find(td, func(n *html.Node) bool { return view.HasClass(n, "form_hint") }) != nil {
		return ""
	}
	return view.TextContent(td)
}

func linkHref(td *html.Node) string {
	a := view.Find(td, view.IsElement("a"))
	if a == nil {
		return ""
	}
	return view.AttrValue(a, "href")
}
