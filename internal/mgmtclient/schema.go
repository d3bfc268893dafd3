package mgmtclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// openapiSpec — контракт management API, которым проверяются ответы.
//
//go:embed openapi.yaml
var openapiSpec []byte

// Имена схем контракта.
const (
	schemaTopic     = "Topic"
	schemaTopicList = "TopicList"
	schemaError     = "Error"
)

// Schema — загруженный OpenAPI-контракт management API.
type Schema struct {
	doc *openapi3.T
}

// LoadSchema разбирает и проверяет встроенный контракт.
func LoadSchema(ctx context.Context) (*Schema, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("проверка OpenAPI контракта: %w", err)
	}
	return &Schema{doc: doc}, nil
}

// Validate проверяет JSON-документ по схеме name. Неизвестные поля
// допускаются, отсутствие обязательных и неверные типы — ошибка.
func (s *Schema) Validate(name string, body []byte) error {
	ref, ok := s.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("схема %s не найдена в контракте", name)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("разбор JSON: %w", err)
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("ответ не соответствует схеме %s: %w", name, err)
	}
	return nil
}
