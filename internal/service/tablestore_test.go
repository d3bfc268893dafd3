package service

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/topics"
)

func newTestTopicsHost(t *testing.T) *topics.Host {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := topics.NewController("/admin/partials/topics", nil, logger)
	if err := ctrl.Initialize(datatable.NewRegistry()); err != nil {
		t.Fatalf("Initialize() ошибка: %v", err)
	}
	host, err := ctrl.NewHost(nil)
	if err != nil {
		t.Fatalf("NewHost() ошибка: %v", err)
	}
	return host
}

// TestTableStore_GetPut проверяет базовые операции Get/Put/Delete.
func TestTableStore_GetPut(t *testing.T) {
	store := NewTableStore(10, 5*time.Minute)

	if _, ok := store.Get("session-1"); ok {
		t.Fatal("ожидался промах для новой сессии")
	}

	host := newTestTopicsHost(t)
	store.Put("session-1", host)

	st, ok := store.Get("session-1")
	if !ok {
		t.Fatal("ожидалось попадание после Put")
	}
	if st.Host != host {
		t.Error("Get вернул чужой хост")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, ожидался 1", store.Len())
	}

	store.Delete("session-1")
	if _, ok := store.Get("session-1"); ok {
		t.Error("ожидался промах после Delete")
	}
}

// TestTableStore_TTL проверяет истечение состояния сессии.
func TestTableStore_TTL(t *testing.T) {
	store := NewTableStore(10, 50*time.Millisecond)
	store.Put("session-1", newTestTopicsHost(t))

	time.Sleep(150 * time.Millisecond)

	if _, ok := store.Get("session-1"); ok {
		t.Error("ожидался промах после истечения TTL")
	}
}

// TestTableStore_Eviction проверяет вытеснение самой старой сессии.
func TestTableStore_Eviction(t *testing.T) {
	store := NewTableStore(2, 5*time.Minute)
	store.Put("a", newTestTopicsHost(t))
	store.Put("b", newTestTopicsHost(t))
	store.Put("c", newTestTopicsHost(t))

	if _, ok := store.Get("a"); ok {
		t.Error("сессия a должна быть вытеснена")
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := store.Get(id); !ok {
			t.Errorf("сессия %s должна остаться", id)
		}
	}
}

// TestTableState_Tokens проверяет одноразовость токенов подтверждения.
func TestTableState_Tokens(t *testing.T) {
	store := NewTableStore(10, 5*time.Minute)
	st := store.Put("session-1", newTestTopicsHost(t))

	token := st.IssueToken(42)
	if token == "" {
		t.Fatal("пустой токен")
	}

	tests := []struct {
		name  string
		id    int64
		token string
		want  bool
	}{
		{"пустой токен", 42, "", false},
		{"чужой токен", 42, "not-a-token", false},
		{"другая строка", 43, token, false},
		{"верный токен", 42, token, true},
		{"повторное использование", 42, token, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := st.ConsumeToken(tt.id, tt.token); got != tt.want {
				t.Errorf("ConsumeToken(%d, %q) = %v, ожидалось %v", tt.id, tt.token, got, tt.want)
			}
		})
	}
}

// TestTableState_ReissueToken проверяет, что новый токен аннулирует старый.
func TestTableState_ReissueToken(t *testing.T) {
	st := NewTableStore(10, 5*time.Minute).Put("session-1", newTestTopicsHost(t))

	first := st.IssueToken(7)
	second := st.IssueToken(7)
	if first == second {
		t.Fatal("токены должны различаться")
	}
	if st.ConsumeToken(7, first) {
		t.Error("старый токен не должен приниматься")
	}
	if !st.ConsumeToken(7, second) {
		t.Error("новый токен должен приниматься")
	}
}
