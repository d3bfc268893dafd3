package datatable

import (
	"net/url"

	"golang.org/x/net/html"
)

// Mode — режим формы редактирования.
type Mode string

const (
	// ModeCreate — создание новой записи (идентификатора нет).
	ModeCreate Mode = "create"
	// ModeEdit — изменение существующей записи.
	ModeEdit Mode = "edit"
)

// Form — состояние формы редактирования, которое хост отдаёт на отрисовку.
type Form struct {
	Mode             Mode
	ID               int64
	Title            string
	Fields           []string
	Values           url.Values
	PasswordRequired bool
	Error            string
}

// Value возвращает значение поля формы.
func (f Form) Value(field string) string {
	return f.Values.Get(field)
}

// Outcome — результат успешной операции хоста.
type Outcome struct {
	ID      int64
	Row     *html.Node
	Message string
}

// FormError — ошибка отправки формы. Форма сохраняет введённые значения,
// чтобы оператор мог исправить их и отправить повторно.
type FormError struct {
	Form    Form
	Message string
	Err     error
}

func (e *FormError) Error() string {
	return e.Message
}

func (e *FormError) Unwrap() error {
	return e.Err
}
