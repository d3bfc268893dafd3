package model

import (
	"errors"
	"strings"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestTopicInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		input     TopicInput
		wantField string
	}{
		{"корректный", TopicInput{Name: "orders.created", MaxDepth: 1000}, ""},
		{"пустое имя", TopicInput{Name: "", MaxDepth: 1000}, "name"},
		{"пробел в имени", TopicInput{Name: "orders created", MaxDepth: 1000}, "name"},
		{"слишком длинное имя", TopicInput{Name: strings.Repeat("a", NameMaxLength+1), MaxDepth: 1}, "name"},
		{"нулевая глубина", TopicInput{Name: "orders", MaxDepth: 0}, "max_depth"},
		{"отрицательная глубина", TopicInput{Name: "orders", MaxDepth: -5}, "max_depth"},
		{"глубина выше предела", TopicInput{Name: "orders", MaxDepth: MaxDepthLimit + 1}, "max_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() вернул ошибку: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() не вернул ошибку, ожидалась ошибка поля %s", tt.wantField)
			}
			var verrs validation.Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("ожидался validation.Errors, получен %T", err)
			}
			if _, ok := verrs[tt.wantField]; !ok {
				t.Errorf("нет ошибки для поля %s: %v", tt.wantField, verrs)
			}
		})
	}
}

func TestTopic_String(t *testing.T) {
	if got := (Topic{ID: 42, Name: "orders"}).String(); got != "<PubSubTopic id:42 name:orders>" {
		t.Errorf("String() = %q", got)
	}
	if got := (Topic{}).String(); got != "<PubSubTopic id:(none) name:(none)>" {
		t.Errorf("String() = %q", got)
	}
}

func TestTopic_Input(t *testing.T) {
	in := Topic{ID: 7, Name: "a", MaxDepth: 3, IsActive: true, PublishersLink: "/p"}.Input()
	if in.ID != 7 || in.Name != "a" || in.MaxDepth != 3 {
		t.Errorf("Input() = %+v", in)
	}
}
