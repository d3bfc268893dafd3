// Пакет i18n — переводы UI консоли на golang.org/x/text/message.
//
// Каталоги (locales/<язык>.json, плоские key → format-строка) загружаются
// в *Bundle при старте и передаются потребителям явно. Bundle.Middleware
// определяет язык запроса и кладёт в контекст пару bundle+язык, которой
// пользуются T и Tf при рендеринге страниц.
package i18n

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// defaultLanguage — язык по умолчанию и источник отсутствующих переводов.
var defaultLanguage = language.English

// Bundle — каталоги переводов всех загруженных языков. После Load не меняется.
type Bundle struct {
	catalog *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
	// keys — ключи каталога каждого языка (base → ключи).
	keys map[string]map[string]struct{}
}

// Languages возвращает коды загруженных языков; первым идёт язык по умолчанию.
func (b *Bundle) Languages() []string {
	out := make([]string, 0, len(b.tags))
	for _, tag := range b.tags {
		out = append(out, code(tag))
	}
	return out
}

// Supported сообщает, загружен ли каталог языка lang ("en", "ru").
func (b *Bundle) Supported(lang string) bool {
	_, ok := b.keys[lang]
	return ok
}

// Match выбирает язык по заголовку Accept-Language.
// Без совпадений — язык по умолчанию.
func (b *Bundle) Match(acceptLanguage string) string {
	_, idx := language.MatchStrings(b.matcher, acceptLanguage)
	return code(b.tags[idx])
}

// Translatef возвращает перевод ключа на язык lang с подстановкой args.
// Отсутствующий в lang ключ берётся из языка по умолчанию, неизвестный
// ключ возвращается как есть.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	if _, ok := b.keys[lang][key]; !ok {
		lang = code(defaultLanguage)
		if _, ok := b.keys[lang][key]; !ok {
			return key
		}
	}
	p := message.NewPrinter(language.Make(lang), message.Catalog(b.catalog))
	return p.Sprintf(key, args...)
}

// Tf переводит ключ на язык из контекста запроса.
// Подходит как datatable.Translator.
func (b *Bundle) Tf(ctx context.Context, key string, args ...any) string {
	return b.Translatef(LangFromContext(ctx), key, args...)
}

// --- Контекст запроса ---

type contextKey struct{}

type localizer struct {
	bundle *Bundle
	lang   string
}

// NewContext возвращает контекст с каталогом и языком запроса.
func NewContext(ctx context.Context, b *Bundle, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, localizer{bundle: b, lang: lang})
}

// LangFromContext возвращает язык запроса. По умолчанию "en".
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(contextKey{}).(localizer); ok && l.lang != "" {
		return l.lang
	}
	return code(defaultLanguage)
}

// Languages возвращает коды языков каталога из контекста.
func Languages(ctx context.Context) []string {
	if l, ok := ctx.Value(contextKey{}).(localizer); ok && l.bundle != nil {
		return l.bundle.Languages()
	}
	return []string{code(defaultLanguage)}
}

// T возвращает перевод ключа на язык запроса.
func T(ctx context.Context, key string) string {
	return Tf(ctx, key)
}

// Tf возвращает перевод ключа на язык запроса с подстановкой args.
// Без каталога в контексте возвращается ключ.
func Tf(ctx context.Context, key string, args ...any) string {
	l, ok := ctx.Value(contextKey{}).(localizer)
	if !ok || l.bundle == nil {
		return key
	}
	return l.bundle.Translatef(l.lang, key, args...)
}

// code — двухбуквенный код языка тега.
func code(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// sortTags ставит язык по умолчанию первым, остальные — по алфавиту.
func sortTags(tags []language.Tag) {
	slices.SortFunc(tags, func(a, b language.Tag) int {
		switch {
		case a == defaultLanguage:
			return -1
		case b == defaultLanguage:
			return 1
		default:
			return strings.Compare(a.String(), b.String())
		}
	})
}
