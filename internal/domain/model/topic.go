package model

import (
	"fmt"
	"regexp"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Ограничения редактируемых полей топика.
const (
	// DefaultMaxDepth — глубина очереди по умолчанию для нового топика.
	DefaultMaxDepth = 10000
	// MaxDepthLimit — верхняя граница max_depth.
	MaxDepthLimit = 1_000_000_000
	// NameMaxLength — максимальная длина имени топика.
	NameMaxLength = 200
)

// topicNameRe — имя топика без пробельных символов.
var topicNameRe = regexp.MustCompile(`^\S+$`)

// Topic — топик pub/sub в том виде, в каком его возвращает management API.
// Идентификатор назначается сервером и не меняется после создания.
type Topic struct {
	// ID — уникальный ключ топика
	ID int64 `json:"id"`
	// Name — отображаемое имя, уникальное в коллекции
	Name string `json:"name"`
	// MaxDepth — ограничение глубины очереди
	MaxDepth int `json:"max_depth"`
	// IsInternal — служебный топик (только чтение)
	IsInternal bool `json:"is_internal"`
	// IsActive — топик принимает сообщения (только чтение)
	IsActive bool `json:"is_active"`
	// PublishersLink — ссылка на список publishers, вычисляется сервером
	PublishersLink string `json:"publishers_link,omitempty"`
	// SubscribersLink — ссылка на список subscribers, вычисляется сервером
	SubscribersLink string `json:"subscribers_link,omitempty"`
}

// Input возвращает редактируемую часть топика.
func (t Topic) Input() TopicInput {
	return TopicInput{ID: t.ID, Name: t.Name, MaxDepth: t.MaxDepth}
}

// String — короткое представление для логов: <PubSubTopic id:42 name:orders>.
func (t Topic) String() string {
	id := "(none)"
	if t.ID != 0 {
		id = strconv.FormatInt(t.ID, 10)
	}
	name := "(none)"
	if t.Name != "" {
		name = t.Name
	}
	return fmt.Sprintf("<PubSubTopic id:%s name:%s>", id, name)
}

// TopicInput — поля, которые оператор задаёт в форме создания/редактирования.
// При обновлении отправляются все изменяемые поля.
type TopicInput struct {
	ID       int64  `json:"-"`
	Name     string `json:"name"`
	MaxDepth int    `json:"max_depth"`
}

// Validate проверяет поля формы. Ошибки возвращаются как validation.Errors
// с ключами name и max_depth.
func (in TopicInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required,
			validation.Length(1, NameMaxLength),
			validation.Match(topicNameRe).Error("must not contain whitespace"),
		),
		validation.Field(&in.MaxDepth,
			validation.Required,
			validation.Min(1),
			validation.Max(MaxDepthLimit),
		),
	)
}
