package datatable

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Table — модель отображаемой страницы таблицы.
// Строки и записи хранятся парами: операция над одной без другой невозможна.
// Поиск строки идёт по индексу id → узел, без сопоставления строк DOM-id.
type Table[R any] struct {
	binding Binding[R]

	mu    sync.RWMutex
	body  *html.Node
	order []int64
	rows  map[int64]*tableRow[R]
}

type tableRow[R any] struct {
	record R
	node   *html.Node
}

// NewTable создаёт пустую таблицу для привязки b.
func NewTable[R any](b Binding[R]) *Table[R] {
	return &Table[R]{
		binding: b,
		body:    newBody(),
		rows:    make(map[int64]*tableRow[R]),
	}
}

func newBody() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "tbody", DataAtom: atom.Tbody}
}

// FreshClass — класс строки, только что созданной или изменённой оператором.
const FreshClass = "updated"

// Load заменяет содержимое таблицы записями (в заданном порядке). Строки
// выводятся без FreshClass, запись каждой строки восстанавливается из её
// разметки (ParseRow), поэтому модель совпадает с тем, что видит оператор.
// При ошибке состояние таблицы не меняется.
func (t *Table[R]) Load(records []R) error {
	body := newBody()
	rows := make(map[int64]*tableRow[R], len(records))
	order := make([]int64, 0, len(records))

	for _, rec := range records {
		node := t.binding.RenderRow(rec, rec, true)
		settle(node)
		parsed, err := t.binding.ParseRow(node)
		if err != nil {
			return fmt.Errorf("разбор строки %d: %w", t.binding.RecordID(rec), err)
		}
		id := t.binding.RecordID(parsed)
		if _, dup := rows[id]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateRow, id)
		}
		body.AppendChild(node)
		rows[id] = &tableRow[R]{record: parsed, node: node}
		order = append(order, id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.body, t.rows, t.order = body, rows, order
	return nil
}

// Insert добавляет новую строку в конец таблицы. Ключ берётся из data
// (ответ сервера). Существующие строки не меняются.
func (t *Table[R]) Insert(item, data R) (*html.Node, error) {
	id := t.binding.RecordID(data)
	node := t.binding.RenderRow(item, data, true)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrDuplicateRow, id)
	}
	t.body.AppendChild(node)
	t.rows[id] = &tableRow[R]{record: data, node: node}
	t.order = append(t.order, id)
	return node, nil
}

// Replace обновляет строку на месте: позиция и id сохраняются.
func (t *Table[R]) Replace(item, data R) (*html.Node, error) {
	id := t.binding.RecordID(data)
	node := t.binding.RenderRow(item, data, true)

	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrStaleRow, id)
	}
	t.body.InsertBefore(node, row.node)
	t.body.RemoveChild(row.node)
	row.node = node
	row.record = data
	return node, nil
}

// Remove удаляет строку и запись вместе.
func (t *Table[R]) Remove(id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStaleRow, id)
	}
	t.body.RemoveChild(row.node)
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(v int64) bool { return v == id })
	return nil
}

// Get возвращает запись по id.
func (t *Table[R]) Get(id int64) (R, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		var zero R
		return zero, false
	}
	return row.record, true
}

// Row возвращает узел строки по id (nil, если строки нет).
func (t *Table[R]) Row(id int64) *html.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if row, ok := t.rows[id]; ok {
		return row.node
	}
	return nil
}

// IDs возвращает ключи строк в порядке отображения.
func (t *Table[R]) IDs() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// Len возвращает количество строк.
func (t *Table[R]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Render выводит tbody со всеми строками.
func (t *Table[R]) Render(w io.Writer) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return html.Render(w, t.body)
}

// RenderRow выводит одну строку по id.
func (t *Table[R]) RenderRow(w io.Writer, id int64) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrStaleRow, id)
	}
	return html.Render(w, row.node)
}

// --- Вспомогательные функции ---

// settle снимает с узла строки FreshClass.
func settle(tr *html.Node) {
	for i, a := range tr.Attr {
		if a.Key != "class" {
			continue
		}
		classes := slices.DeleteFunc(strings.Fields(a.Val), func(c string) bool { return c == FreshClass })
		if len(classes) == 0 {
			tr.Attr = slices.Delete(tr.Attr, i, i+1)
		} else {
			tr.Attr[i].Val = strings.Join(classes, " ")
		}
		return
	}
}
