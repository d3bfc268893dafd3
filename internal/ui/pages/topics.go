package pages

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/view"
)

// TableBody — tbody отображаемой таблицы (datatable.Table).
type TableBody interface {
	Render(w io.Writer) error
	Len() int
}

// TopicsData — данные страницы списка топиков.
type TopicsData struct {
	// PartialsPath — префикс partial-маршрутов топиков
	PartialsPath string
	Body         TableBody
	Total        int
	Page         int
	PageSize     int
	Sort         string
	Order        string
	Query        string
	// Error — ошибка загрузки страницы (таблица пуста)
	Error string
}

// query возвращает строку запроса страницы с заменой параметров.
func (d TopicsData) query(overrides ...string) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(d.Page))
	v.Set("sort", d.Sort)
	v.Set("order", d.Order)
	if d.Query != "" {
		v.Set("q", d.Query)
	}
	for i := 0; i+1 < len(overrides); i += 2 {
		v.Set(overrides[i], overrides[i+1])
	}
	return TopicsPath + "?" + v.Encode()
}

// TopicsPage — страница списка топиков.
func TopicsPage(d TopicsData) templ.Component {
	return Layout("topics.page_title", func(ctx context.Context) *html.Node {
		return topicsContent(ctx, d)
	})
}

// TopicsContent — содержимое страницы без layout (HTMX-навигация по
// сортировке и страницам).
func TopicsContent(d TopicsData) templ.Component {
	return view.Build(func(ctx context.Context) *html.Node {
		return topicsContent(ctx, d)
	})
}

func topicsContent(ctx context.Context, d TopicsData) *html.Node {
	var body strings.Builder
	if err := d.Body.Render(&body); err != nil {
		return alertNode("error", err.Error())
	}

	toolbar := view.El("div", view.Attrs("class", "toolbar"),
		view.El("h1", nil, view.Text(i18n.T(ctx, "topics.page_title"))),
		view.El("button", view.Attrs(
			"type", "button",
			"hx-get", d.PartialsPath+"/form",
			"hx-target", "#modal",
		), view.Text(i18n.T(ctx, "topics.create_button"))),
		view.El("form", view.Attrs("method", "get", "action", TopicsPath),
			view.El("input", view.Attrs("type", "search", "name", "q", "value", d.Query)),
			view.El("input", view.Attrs("type", "hidden", "name", "sort", "value", d.Sort)),
			view.El("input", view.Attrs("type", "hidden", "name", "order", "value", d.Order)),
			view.El("button", view.Attrs("type", "submit"), view.Text(i18n.T(ctx, "topics.search"))),
		),
	)

	head := view.El("tr", nil,
		view.El("th", nil),
		view.El("th", nil),
		sortHeader(ctx, d, "name", "topics.col.name"),
		sortHeader(ctx, d, "max_depth", "topics.col.max_depth"),
		view.El("th", nil, view.Text(i18n.T(ctx, "topics.col.current_depth"))),
		view.El("th", nil, view.Text(i18n.T(ctx, "topics.col.last_pub_time"))),
		view.El("th", nil, view.Text(i18n.T(ctx, "topics.col.publishers"))),
		view.El("th", nil, view.Text(i18n.T(ctx, "topics.col.subscribers"))),
		view.El("th", nil),
		view.El("th", nil),
		view.El("th", nil),
		view.El("th", view.Attrs("class", "ignore")),
		view.El("th", view.Attrs("class", "ignore")),
		view.El("th", view.Attrs("class", "ignore")),
	)

	table := view.El("table", view.Attrs("id", "data-table"),
		view.El("thead", nil, head),
		view.Raw(body.String()),
	)

	var loadErr, empty *html.Node
	if d.Error != "" {
		loadErr = alertNode("error", d.Error)
	}
	if d.Body.Len() == 0 {
		empty = view.El("p", view.Attrs("class", "form_hint"), view.Text(i18n.T(ctx, "topics.empty")))
	}

	return view.El("div", view.Attrs("id", "content"),
		toolbar,
		loadErr,
		table,
		empty,
		view.El("p", nil, view.Text(i18n.Tf(ctx, "topics.total", d.Total))),
		pager(ctx, d),
	)
}

// sortHeader — заголовок колонки с переключением направления сортировки.
func sortHeader(ctx context.Context, d TopicsData, column, key string) *html.Node {
	order := "asc"
	label := i18n.T(ctx, key)
	if d.Sort == column {
		if d.Order == "asc" {
			order = "desc"
			label += " ▲"
		} else {
			label += " ▼"
		}
	}
	href := d.query("sort", column, "order", order, "page", "1")
	return view.El("th", nil, view.El("a", view.Attrs(
		"href", href,
		"hx-get", href,
		"hx-target", "#content",
		"hx-select", "#content",
		"hx-swap", "outerHTML",
		"hx-push-url", "true",
	), view.Text(label)))
}

func pager(ctx context.Context, d TopicsData) *html.Node {
	nav := view.El("div", view.Attrs("class", "pager"))
	if d.Page > 1 {
		nav.AppendChild(view.El("a", view.Attrs("href", d.query("page", strconv.Itoa(d.Page-1))),
			view.Text(i18n.T(ctx, "topics.prev"))))
	}
	if d.PageSize > 0 && d.Page*d.PageSize < d.Total {
		nav.AppendChild(view.El("a", view.Attrs("href", d.query("page", strconv.Itoa(d.Page+1))),
			view.Text(i18n.T(ctx, "topics.next"))))
	}
	return nav
}
