package pages

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/view"
)

// numericFields — поля формы с числовым вводом.
var numericFields = map[string]bool{"max_depth": true}

// TopicForm — модальная форма создания или изменения топика.
// Создание добавляет строку в конец tbody, изменение заменяет строку tr_<id>.
func TopicForm(partialsPath string, f datatable.Form) templ.Component {
	return view.Build(func(ctx context.Context) *html.Node {
		attrs := view.Attrs("id", "topic-form")
		if f.Mode == datatable.ModeEdit {
			id := strconv.FormatInt(f.ID, 10)
			attrs = append(attrs,
				view.Attr("hx-put", partialsPath+"/"+id),
				view.Attr("hx-target", "#tr_"+id),
				view.Attr("hx-swap", "outerHTML"),
			)
		} else {
			attrs = append(attrs,
				view.Attr("hx-post", partialsPath),
				view.Attr("hx-target", "#data-table tbody"),
				view.Attr("hx-swap", "beforeend"),
			)
		}

		form := view.El("form", attrs,
			view.El("h2", nil, view.Text(f.Title)),
		)
		if f.Error != "" {
			form.AppendChild(alertNode("error", f.Error))
		}
		for _, field := range f.Fields {
			typ := "text"
			if numericFields[field] {
				typ = "number"
			}
			form.AppendChild(view.El("label", nil,
				view.Text(i18n.T(ctx, "form."+field)),
				view.El("input", view.Attrs("type", typ, "name", field, "value", f.Value(field))),
			))
		}
		if f.PasswordRequired {
			form.AppendChild(view.El("label", nil,
				view.Text(i18n.T(ctx, "form.password")),
				view.El("input", view.Attrs("type", "password", "name", "password")),
			))
		}
		form.AppendChild(view.El("div", view.Attrs("class", "buttons"),
			view.El("button", view.Attrs("type", "submit"), view.Text(i18n.T(ctx, "form.submit"))),
			view.El("button", view.Attrs("type", "button", "data-close-modal", ""), view.Text(i18n.T(ctx, "form.cancel"))),
		))

		return dialog(form)
	})
}

// ConfirmDelete — диалог подтверждения удаления. Кнопка «Да» отправляет
// DELETE с одноразовым токеном; «Нет» закрывает диалог без запроса.
func ConfirmDelete(partialsPath string, id int64, message, token string) templ.Component {
	return view.Build(func(ctx context.Context) *html.Node {
		rowID := strconv.FormatInt(id, 10)
		vals, _ := json.Marshal(map[string]string{"token": token})

		return dialog(view.El("div", nil,
			view.El("h2", nil, view.Text(i18n.T(ctx, "confirm.title"))),
			view.El("p", nil, view.Text(message)),
			view.El("div", view.Attrs("class", "buttons"),
				view.El("button", view.Attrs(
					"type", "button",
					"hx-delete", partialsPath+"/"+rowID,
					"hx-vals", string(vals),
					"hx-target", "#tr_"+rowID,
					"hx-swap", "outerHTML",
				), view.Text(i18n.T(ctx, "confirm.yes"))),
				view.El("button", view.Attrs("type", "button", "data-close-modal", ""),
					view.Text(i18n.T(ctx, "confirm.no"))),
			),
		))
	})
}

func dialog(content *html.Node) *html.Node {
	return view.El("div", view.Attrs("class", "dialog", "role", "dialog"), content)
}
