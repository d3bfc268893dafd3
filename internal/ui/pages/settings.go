package pages

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/view"
)

// SettingsPartialPath — маршрут сохранения настроек.
const SettingsPartialPath = "/admin/partials/settings"

// SettingsData — текущие настройки таблицы топиков.
type SettingsData struct {
	PageSize    int
	MaxPageSize int
	Sort        string
	Order       string
}

// SettingsPage — страница настроек консоли.
func SettingsPage(d SettingsData) templ.Component {
	return Layout("settings.title", func(ctx context.Context) *html.Node {
		return view.El("div", view.Attrs("id", "content"),
			view.El("h1", nil, view.Text(i18n.T(ctx, "settings.title"))),
			view.El("form", view.Attrs(
				"hx-put", SettingsPartialPath,
				"hx-target", "#alerts",
			),
				view.El("label", nil,
					view.Text(i18n.T(ctx, "settings.page_size")+" "),
					view.El("input", view.Attrs(
						"type", "number",
						"name", "page_size",
						"min", "1",
						"max", strconv.Itoa(d.MaxPageSize),
						"value", strconv.Itoa(d.PageSize),
					)),
				),
				view.El("label", nil,
					view.Text(i18n.T(ctx, "settings.sort")+" "),
					selectNode("sort", d.Sort,
						option{"name", i18n.T(ctx, "topics.col.name")},
						option{"max_depth", i18n.T(ctx, "topics.col.max_depth")},
					),
				),
				view.El("label", nil,
					view.Text(i18n.T(ctx, "settings.order")+" "),
					selectNode("order", d.Order,
						option{"asc", i18n.T(ctx, "settings.order.asc")},
						option{"desc", i18n.T(ctx, "settings.order.desc")},
					),
				),
				view.El("button", view.Attrs("type", "submit"), view.Text(i18n.T(ctx, "settings.save"))),
			),
		)
	})
}

type option struct {
	value string
	label string
}

func selectNode(name, current string, opts ...option) *html.Node {
	sel := view.El("select", view.Attrs("name", name))
	for _, o := range opts {
		attrs := view.Attrs("value", o.value)
		if o.value == current {
			attrs = append(attrs, view.Attr("selected", ""))
		}
		sel.AppendChild(view.El("option", attrs, view.Text(o.label)))
	}
	return sel
}
