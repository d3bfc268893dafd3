// dephealth_test.go — unit-тесты конструктора мониторинга зависимостей.
package service

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql
	"github.com/prometheus/client_golang/prometheus"
)

// TestNewDephealthService проверяет, что сервис собирается без обращения к
// зависимостям (sql.Open не устанавливает соединение).
func TestNewDephealthService(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://console@127.0.0.1:5432/console?sslmode=disable")
	if err != nil {
		t.Fatalf("sql.Open() ошибка: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name       string
		healthPath string
	}{
		{"путь по умолчанию", ""},
		{"явный путь", "/api/v1/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := NewDephealthServiceWithRegisterer(DephealthConfig{
				ServiceID:     "topic-console",
				Group:         "pubsub",
				DB:            db,
				PGConnURL:     "postgres://console@127.0.0.1:5432/console",
				APIURL:        "http://pubsub-api.local:9000",
				APIHealthPath: tt.healthPath,
				CheckInterval: 15 * time.Second,
			}, logger, prometheus.NewRegistry())
			if err != nil {
				t.Fatalf("NewDephealthServiceWithRegisterer() ошибка: %v", err)
			}
			if ds == nil {
				t.Fatal("сервис не создан")
			}
		})
	}
}
