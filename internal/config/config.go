// Пакет config — загрузка и валидация конфигурации Topic Console
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Topic Console.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Secure flag для cookie консоли (включать за HTTPS)
	SecureCookie bool

	// --- PostgreSQL (настройки консоли) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Management API ---

	// Базовый URL management API (CRUD топиков)
	APIURL string
	// API-ключ, передаётся в заголовке X-API-Key (опционально)
	APIKey string
	// Путь к CA-сертификату для TLS-соединений с management API (опционально)
	APICACertPath string
	// Таймаут одного запроса к management API
	APITimeout time.Duration

	// --- Состояние таблиц ---

	// Максимальное количество сессий, для которых хранится состояние таблицы
	SessionCacheSize int
	// Время жизни состояния таблицы без обращений
	SessionTTL time.Duration

	// --- topologymetrics ---

	// Группа сервиса в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Путь health endpoint management API для HTTP-проверки
	DephealthAPIHealthPath string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// TC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("TC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("TC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("TC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// TC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("TC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("TC_LOG_LEVEL: %w", err)
	}

	// TC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("TC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("TC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.SecureCookie, err = getEnvBool("TC_SECURE_COOKIE", false)
	if err != nil {
		return nil, fmt.Errorf("TC_SECURE_COOKIE: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("TC_DB_HOST")
	if err != nil {
		return nil, err
	}

	cfg.DBPort, err = getEnvInt("TC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("TC_DB_PORT: %w", err)
	}

	cfg.DBName, err = getEnvRequired("TC_DB_NAME")
	if err != nil {
		return nil, err
	}

	cfg.DBUser, err = getEnvRequired("TC_DB_USER")
	if err != nil {
		return nil, err
	}

	cfg.DBPassword, err = getEnvRequired("TC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("TC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("TC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Management API ---

	// TC_API_URL — обязательный
	cfg.APIURL, err = getEnvRequired("TC_API_URL")
	if err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if u, parseErr := url.Parse(cfg.APIURL); parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("TC_API_URL: некорректный URL %q, ожидается http(s)://host[:port]", cfg.APIURL)
	}

	cfg.APIKey = getEnvDefault("TC_API_KEY", "")
	cfg.APICACertPath = getEnvDefault("TC_API_CA_CERT_PATH", "")

	// TC_API_TIMEOUT — таймаут запроса к management API (по умолчанию 10s)
	cfg.APITimeout, err = getEnvDuration("TC_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TC_API_TIMEOUT: %w", err)
	}

	// --- Состояние таблиц ---

	// TC_SESSION_CACHE_SIZE — размер LRU состояний таблиц (по умолчанию 1024)
	cfg.SessionCacheSize, err = getEnvInt("TC_SESSION_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("TC_SESSION_CACHE_SIZE: %w", err)
	}
	if cfg.SessionCacheSize < 1 || cfg.SessionCacheSize > 100000 {
		return nil, fmt.Errorf("TC_SESSION_CACHE_SIZE: значение %d вне допустимого диапазона 1-100000", cfg.SessionCacheSize)
	}

	// TC_SESSION_TTL — время жизни состояния таблицы (по умолчанию 30m)
	cfg.SessionTTL, err = getEnvDuration("TC_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("TC_SESSION_TTL: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("TC_DEPHEALTH_GROUP", "pubsub")

	cfg.DephealthCheckInterval, err = getEnvDuration("TC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthAPIHealthPath = getEnvDefault("TC_DEPHEALTH_API_HEALTH_PATH", "/health")
	if !strings.HasPrefix(cfg.DephealthAPIHealthPath, "/") {
		return nil, fmt.Errorf("TC_DEPHEALTH_API_HEALTH_PATH: путь %q должен начинаться с /", cfg.DephealthAPIHealthPath)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("TC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("TC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля.
// Используется только для лейблов метрик topologymetrics.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", c.DBUser, c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
