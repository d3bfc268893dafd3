// Пакет service — бизнес-логика Topic Console.
// TableStore — состояние таблицы топиков по сессиям оператора.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/topic-console/internal/ui/topics"
)

// Prometheus-метрики хранилища состояний таблиц.
var (
	tableStoreHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tc_table_state_hits_total",
		Help: "Общее количество запросов, нашедших состояние таблицы сессии.",
	})
	tableStoreMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tc_table_state_misses_total",
		Help: "Общее количество запросов без состояния таблицы (истекло или вытеснено).",
	})
	tableStoreSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tc_table_state_sessions",
		Help: "Количество сессий с состоянием таблицы.",
	})
)

// TableState — отображаемая страница топиков одной сессии и
// выданные токены подтверждения удаления.
type TableState struct {
	Host *topics.Host

	mu     sync.Mutex
	tokens map[int64]string
}

// IssueToken выдаёт одноразовый токен подтверждения удаления строки id.
// Предыдущий невостребованный токен для той же строки аннулируется.
func (s *TableState) IssueToken(id int64) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = make(map[int64]string)
	}
	s.tokens[id] = token
	return token
}

// ConsumeToken проверяет и гасит токен строки id.
// Пустой, чужой или уже использованный токен — false.
func (s *TableState) ConsumeToken(id int64, token string) bool {
	if token == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.tokens[id]
	if !ok || want != token {
		return false
	}
	delete(s.tokens, id)
	return true
}

// TableStore — LRU-хранилище состояний таблиц с TTL.
// Каждый экземпляр консоли хранит состояния в памяти; при промахе
// обработчик заново загружает страницу из management API.
type TableStore struct {
	cache *expirable.LRU[string, *TableState]
}

// NewTableStore создаёт хранилище.
// maxSessions — максимальное количество сессий.
// ttl — время жизни состояния после последней загрузки страницы.
func NewTableStore(maxSessions int, ttl time.Duration) *TableStore {
	return &TableStore{
		cache: expirable.NewLRU[string, *TableState](maxSessions, nil, ttl),
	}
}

// Get возвращает состояние таблицы сессии.
// Обновляет Prometheus-метрики hit/miss.
func (s *TableStore) Get(sessionID string) (*TableState, bool) {
	st, ok := s.cache.Get(sessionID)
	if ok {
		tableStoreHitsTotal.Inc()
		return st, true
	}
	tableStoreMissesTotal.Inc()
	return nil, false
}

// Put сохраняет новый хост сессии. Выданные ранее токены теряют силу.
func (s *TableStore) Put(sessionID string, host *topics.Host) *TableState {
	st := &TableState{Host: host}
	s.cache.Add(sessionID, st)
	tableStoreSessions.Set(float64(s.Len()))
	return st
}

// Delete удаляет состояние сессии: следующий запрос загрузит страницу заново.
func (s *TableStore) Delete(sessionID string) {
	s.cache.Remove(sessionID)
	tableStoreSessions.Set(float64(s.Len()))
}

// Len возвращает количество хранимых сессий.
func (s *TableStore) Len() int {
	return s.cache.Len()
}
