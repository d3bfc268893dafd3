// loader.go — загрузка каталогов переводов.
package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// ErrNoDefaultCatalog — среди каталогов нет языка по умолчанию.
var ErrNoDefaultCatalog = errors.New("i18n: нет каталога языка по умолчанию")

// LoadEmbedded загружает каталоги, встроенные в бинарник.
func LoadEmbedded(logger *slog.Logger) (*Bundle, error) {
	sub, err := fs.Sub(localeFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: встроенные каталоги: %w", err)
	}
	return Load(sub, logger)
}

// Load загружает каталоги *.json из корня fsys. Имя файла — код языка.
func Load(fsys fs.FS, logger *slog.Logger) (*Bundle, error) {
	files, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("i18n: поиск каталогов: %w", err)
	}

	b := &Bundle{
		catalog: catalog.NewBuilder(catalog.Fallback(defaultLanguage)),
		keys:    make(map[string]map[string]struct{}, len(files)),
	}

	for _, name := range files {
		tag, err := language.Parse(strings.TrimSuffix(path.Base(name), ".json"))
		if err != nil {
			return nil, fmt.Errorf("i18n: каталог %s: %w", name, err)
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: не удалось прочитать %s: %w", name, err)
		}
		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", name, err)
		}

		keys := make(map[string]struct{}, len(messages))
		for key, msg := range messages {
			if err := b.catalog.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("i18n: %s: ключ %q: %w", name, key, err)
			}
			keys[key] = struct{}{}
		}
		b.keys[code(tag)] = keys
		b.tags = append(b.tags, tag)

		logger.Info("i18n каталог загружен",
			slog.String("lang", code(tag)),
			slog.Int("keys", len(messages)),
		)
	}

	if !b.Supported(code(defaultLanguage)) {
		return nil, ErrNoDefaultCatalog
	}
	sortTags(b.tags)
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}
