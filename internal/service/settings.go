// settings.go — сервис управления настройками консоли.
// Предоставляет типизированные геттеры таблицы топиков,
// валидацию ключей и CRUD-операции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/topic-console/internal/repository"
)

// Ключи настроек таблицы топиков.
const (
	KeyTopicsPageSize = "topics.page_size"
	KeyTopicsSort     = "topics.sort"
	KeyTopicsOrder    = "topics.order"
)

// Значения по умолчанию и ограничения.
const (
	DefaultTopicsPageSize = 50
	MaxTopicsPageSize     = 500
	DefaultTopicsSort     = "name"
	DefaultTopicsOrder    = "asc"
)

// Допустимые ключи настроек (dot-notation).
// Используется для валидации при Set.
var validSettingKeys = map[string]string{
	KeyTopicsPageSize: "Размер страницы таблицы топиков (1-500)",
	KeyTopicsSort:     "Колонка сортировки: name или max_depth",
	KeyTopicsOrder:    "Направление сортировки: asc или desc",
}

// TableSettings — параметры отображения таблицы топиков.
type TableSettings struct {
	PageSize int
	Sort     string
	Order    string
}

// Transactor выполняет функцию в транзакции (repository.TxRunner).
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// SettingsService — сервис для работы с настройками консоли.
type SettingsService struct {
	repo   repository.SettingsRepository
	tx     Transactor
	logger *slog.Logger
}

// NewSettingsService создаёт сервис настроек. tx может быть nil — тогда
// SetMany сохраняет значения без транзакции.
func NewSettingsService(
	repo repository.SettingsRepository,
	tx Transactor,
	logger *slog.Logger,
) *SettingsService {
	return &SettingsService{
		repo:   repo,
		tx:     tx,
		logger: logger.With(slog.String("service", "settings")),
	}
}

// Get возвращает значение настройки по ключу.
// Возвращает ErrNotFound если настройка не существует.
func (s *SettingsService) Get(ctx context.Context, key string) (*repository.Setting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения настройки %q: %w", key, err)
	}
	return setting, nil
}

// Set устанавливает значение настройки. Валидирует ключ и значение.
// updatedBy — идентификатор сессии оператора.
func (s *SettingsService) Set(ctx context.Context, key, value, updatedBy string) error {
	if err := validateSetting(key, value); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, key, value, updatedBy); err != nil {
		return fmt.Errorf("ошибка сохранения настройки %q: %w", key, err)
	}

	s.logger.Info("Настройка обновлена",
		slog.String("key", key),
		slog.String("updated_by", updatedBy),
	)
	return nil
}

// SetMany сохраняет несколько настроек атомарно: сначала проверяются все
// значения, затем они записываются в одной транзакции.
func (s *SettingsService) SetMany(ctx context.Context, values map[string]string, updatedBy string) error {
	keys := slices.Sorted(maps.Keys(values))
	for _, key := range keys {
		if err := validateSetting(key, values[key]); err != nil {
			return err
		}
	}

	save := func(repo repository.SettingsRepository) error {
		for _, key := range keys {
			if err := repo.Set(ctx, key, values[key], updatedBy); err != nil {
				return fmt.Errorf("ошибка сохранения настройки %q: %w", key, err)
			}
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
			return save(repository.NewSettingsRepository(tx))
		})
	} else {
		err = save(s.repo)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Настройки обновлены",
		slog.Any("keys", keys),
		slog.String("updated_by", updatedBy),
	)
	return nil
}

// List возвращает все настройки.
func (s *SettingsService) List(ctx context.Context) ([]repository.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка настроек: %w", err)
	}
	return settings, nil
}

// Delete удаляет настройку по ключу (возврат к значению по умолчанию).
func (s *SettingsService) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления настройки %q: %w", key, err)
	}

	s.logger.Info("Настройка удалена", slog.String("key", key))
	return nil
}

// --- Типизированные геттеры таблицы топиков --- //

// TopicsTable возвращает параметры таблицы топиков. Отсутствующие или
// некорректные значения (в том числе при недоступной БД) заменяются
// значениями по умолчанию.
func (s *SettingsService) TopicsTable(ctx context.Context) TableSettings {
	ts := TableSettings{
		PageSize: DefaultTopicsPageSize,
		Sort:     DefaultTopicsSort,
		Order:    DefaultTopicsOrder,
	}

	settings, err := s.repo.ListByPrefix(ctx, "topics.")
	if err != nil {
		s.logger.Warn("Настройки таблицы недоступны, используются значения по умолчанию",
			slog.String("error", err.Error()),
		)
		return ts
	}

	for _, st := range settings {
		if validateSetting(st.Key, st.Value) != nil {
			continue
		}
		switch st.Key {
		case KeyTopicsPageSize:
			ts.PageSize, _ = strconv.Atoi(st.Value)
		case KeyTopicsSort:
			ts.Sort = st.Value
		case KeyTopicsOrder:
			ts.Order = st.Value
		}
	}
	return ts
}

// --- Валидация значений --- //

// validateSetting проверяет ключ и корректность значения для него.
func validateSetting(key, value string) error {
	if _, ok := validSettingKeys[key]; !ok {
		return fmt.Errorf("%w: недопустимый ключ настройки %q", ErrValidation, key)
	}

	switch key {
	case KeyTopicsPageSize:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > MaxTopicsPageSize {
			return fmt.Errorf("%w: %s должен быть целым числом 1-%d", ErrValidation, key, MaxTopicsPageSize)
		}
	case KeyTopicsSort:
		if !ValidSort(value) {
			return fmt.Errorf("%w: %s должен быть name или max_depth", ErrValidation, key)
		}
	case KeyTopicsOrder:
		if !ValidOrder(value) {
			return fmt.Errorf("%w: %s должен быть asc или desc", ErrValidation, key)
		}
	}
	return nil
}

// ValidSort проверяет колонку сортировки таблицы топиков.
func ValidSort(v string) bool {
	return v == "name" || v == "max_depth"
}

// ValidOrder проверяет направление сортировки.
func ValidOrder(v string) bool {
	return v == "asc" || v == "desc"
}
