// Пакет pages — страницы и partial-компоненты UI консоли.
// Компоненты реализуют templ.Component и строятся из узлов view;
// тексты берутся из каталогов i18n по языку запроса.
package pages

import (
	"context"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/view"
)

// HTMXScriptURL — адрес библиотеки HTMX.
const HTMXScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// Маршруты страниц консоли.
const (
	TopicsPath      = "/admin/topics"
	SettingsPath    = "/admin/settings"
	SetLanguagePath = "/admin/set-language"
)

// Layout — полная страница: шапка с навигацией, область уведомлений
// (#alerts), содержимое и контейнер модальных окон (#modal).
// titleKey — ключ каталога i18n заголовка страницы.
func Layout(titleKey string, content func(ctx context.Context) *html.Node) templ.Component {
	return view.Build(func(ctx context.Context) *html.Node {
		lang := i18n.LangFromContext(ctx)

		head := view.El("head", nil,
			view.El("meta", view.Attrs("charset", "utf-8")),
			view.El("title", nil, view.Text(i18n.T(ctx, titleKey)+" | "+i18n.T(ctx, "app.title"))),
			view.El("link", view.Attrs("rel", "stylesheet", "href", "/static/css/console.css")),
			view.El("script", view.Attrs("src", HTMXScriptURL)),
			view.El("script", view.Attrs("src", "/static/js/console.js", "defer", "")),
		)

		header := view.El("header", nil,
			view.El("a", view.Attrs("href", TopicsPath), view.El("strong", nil, view.Text(i18n.T(ctx, "app.title")))),
			view.El("nav", nil,
				view.El("a", view.Attrs("href", TopicsPath), view.Text(i18n.T(ctx, "nav.topics"))),
				view.Text(" "),
				view.El("a", view.Attrs("href", SettingsPath), view.Text(i18n.T(ctx, "nav.settings"))),
			),
			languageSwitch(ctx, lang),
		)

		body := view.El("body", nil,
			header,
			view.El("main", nil,
				view.El("div", view.Attrs("id", "alerts")),
				content(ctx),
			),
			view.El("div", view.Attrs("id", "modal")),
		)

		return view.Fragment(
			&html.Node{Type: html.DoctypeNode, Data: "html"},
			view.El("html", view.Attrs("lang", lang), head, body),
		)
	})
}

func languageSwitch(ctx context.Context, current string) *html.Node {
	form := view.El("form", view.Attrs("method", "post", "action", SetLanguagePath),
		view.El("span", nil, view.Text(i18n.T(ctx, "lang.label")+": ")),
	)
	for _, lang := range i18n.Languages(ctx) {
		attrs := view.Attrs("type", "submit", "name", "lang", "value", lang)
		if lang == current {
			attrs = append(attrs, view.Attr("disabled", ""))
		}
		form.AppendChild(view.El("button", attrs, view.Text(lang)))
	}
	return form
}

// Alert — уведомление (variant: "success" или "error").
func Alert(variant, message string) templ.Component {
	return view.Component(alertNode(variant, message))
}

// AlertOOB — уведомление для out-of-band вставки в #alerts рядом с
// основным фрагментом ответа.
func AlertOOB(variant, message string) templ.Component {
	return view.Component(view.El("div", view.Attrs("id", "alerts", "hx-swap-oob", "innerHTML"),
		alertNode(variant, message),
	))
}

func alertNode(variant, message string) *html.Node {
	return view.El("div", view.Attrs("class", "alert alert-"+variant, "role", "alert"), view.Text(message))
}
