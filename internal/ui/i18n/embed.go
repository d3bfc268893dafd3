package i18n

import "embed"

// localeFS — каталоги переводов, встроенные при компиляции.
//
//go:embed locales/*.json
var localeFS embed.FS
