// Пакет view — построение HTML как дерева узлов golang.org/x/net/html.
// Разметка собирается из типизированных узлов, экранирование текста и
// атрибутов выполняет html.Render, поэтому строковые шаблоны не нужны.
package view

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr создаёт атрибут элемента.
func Attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// Attrs — удобный конструктор списка атрибутов из пар ключ/значение.
// Нечётный хвост игнорируется.
func Attrs(kv ...string) []html.Attribute {
	attrs := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return attrs
}

// El создаёт элемент tag с атрибутами и дочерними узлами.
// nil-дети пропускаются.
func El(tag string, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

// Text создаёт текстовый узел.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Fragment объединяет узлы без обёртки: при рендеринге выводятся только дети.
func Fragment(children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.DocumentNode}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

// Raw вставляет готовую разметку без экранирования. Допустим только для
// разметки, уже построенной через html.Render.
func Raw(markup string) *html.Node {
	return &html.Node{Type: html.RawNode, Data: markup}
}

// Component оборачивает узлы в templ.Component.
func Component(nodes ...*html.Node) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if err := html.Render(w, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// Build — компонент, узлы которого строятся при рендеринге (нужен контекст
// запроса, например для переводов).
func Build(fn func(ctx context.Context) *html.Node) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		n := fn(ctx)
		if n == nil {
			return nil
		}
		return html.Render(w, n)
	})
}

// --- Чтение дерева ---

// AttrValue возвращает значение атрибута key или пустую строку.
func AttrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Classes возвращает список CSS-классов элемента.
func Classes(n *html.Node) []string {
	return strings.Fields(AttrValue(n, "class"))
}

// HasClass проверяет наличие CSS-класса.
func HasClass(n *html.Node, class string) bool {
	for _, c := range Classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// ChildElements возвращает дочерние элементы с тегом tag.
func ChildElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// Find возвращает первый узел в обходе в глубину, для которого match == true.
func Find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := Find(c, match); found != nil {
			return found
		}
	}
	return nil
}

// IsElement возвращает предикат для Find по имени тега.
func IsElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// TextContent собирает текст всех потомков, обрезая пробелы по краям.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
