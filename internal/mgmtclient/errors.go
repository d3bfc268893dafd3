// errors.go — ошибки клиента management API.
package mgmtclient

import "errors"

var (
	// ErrValidation — сервер отклонил данные (400, 422).
	ErrValidation = errors.New("management API: ошибка валидации")
	// ErrNotFound — топик не найден (404), обычно устаревшая строка.
	ErrNotFound = errors.New("management API: топик не найден")
	// ErrConflict — конфликт, например дублирующееся имя (409).
	ErrConflict = errors.New("management API: конфликт")
	// ErrUnavailable — сервер недоступен (5xx, сетевые ошибки).
	ErrUnavailable = errors.New("management API недоступен")
	// ErrInvalidResponse — ответ не соответствует контракту.
	ErrInvalidResponse = errors.New("management API: некорректный ответ")
	// ErrUnexpectedStatus — прочие статусы.
	ErrUnexpectedStatus = errors.New("management API: неожиданный статус")
)

// APIError — ошибка операции management API. Message — текст сервера,
// который показывается оператору как есть.
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
