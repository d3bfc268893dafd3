// Точка входа Topic Console — веб-консоли управления pub/sub топиками.
// Загружает конфигурацию, применяет миграции и подключается к PostgreSQL
// (настройки консоли), создаёт клиент management API, регистрирует привязку
// топиков в реестре таблиц, запускает topologymetrics и HTTP-сервер
// с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/topic-console/internal/api/handlers"
	"github.com/bigkaa/goartstore/topic-console/internal/config"
	"github.com/bigkaa/goartstore/topic-console/internal/database"
	"github.com/bigkaa/goartstore/topic-console/internal/mgmtclient"
	"github.com/bigkaa/goartstore/topic-console/internal/repository"
	"github.com/bigkaa/goartstore/topic-console/internal/server"
	"github.com/bigkaa/goartstore/topic-console/internal/service"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/datatable"
	uihandlers "github.com/bigkaa/goartstore/topic-console/internal/ui/handlers"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/topic-console/internal/ui/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/topics"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Topic Console запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("TC_DEPHEALTH_GROUP") == "" {
		logger.Warn("TC_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент management API
	apiClient, err := mgmtclient.New(mgmtclient.Config{
		BaseURL:    cfg.APIURL,
		APIKey:     cfg.APIKey,
		CACertPath: cfg.APICACertPath,
		Timeout:    cfg.APITimeout,
	}, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента management API", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Клиент management API создан",
		slog.String("url", apiClient.BaseURL()),
		slog.Bool("api_key", cfg.APIKey != ""),
	)

	// 6. Настройки консоли
	settingsRepo := repository.NewSettingsRepository(pool)
	settingsSvc := service.NewSettingsService(settingsRepo, repository.NewTxRunner(pool), logger)

	// 7. Переводы UI
	bundle, err := i18n.LoadEmbedded(logger)
	if err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Реестр таблиц и контроллер топиков
	registry := datatable.NewRegistry()
	topicsCtrl := topics.NewController(uihandlers.TopicsPartialsPath, apiClient, logger)
	if err := topicsCtrl.Initialize(registry); err != nil {
		logger.Error("Ошибка регистрации привязки топиков", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Состояние таблиц сессий
	tableStore := service.NewTableStore(cfg.SessionCacheSize, cfg.SessionTTL)

	// 10. Readiness checkers (PostgreSQL + management API)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker, apiClient)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + management API)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "topic-console",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL(),
		APIURL:        cfg.APIURL,
		APIHealthPath: cfg.DephealthAPIHealthPath,
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. UI консоли
	ui := &server.UIComponents{
		Bundle:  bundle,
		Session: uimiddleware.NewSession(cfg.SecureCookie, logger),
		TopicsHandler: uihandlers.NewTopicsHandler(
			topicsCtrl,
			apiClient,
			tableStore,
			settingsSvc,
			bundle,
			logger,
		),
		SettingsHandler: uihandlers.NewSettingsHandler(settingsSvc, logger),
		LanguageHandler: uihandlers.NewLanguageHandler(bundle),
	}
	logger.Info("UI консоли инициализирован",
		slog.Any("resources", registry.Kinds()),
		slog.Any("languages", bundle.Languages()),
		slog.Int("session_cache_size", cfg.SessionCacheSize),
		slog.String("session_ttl", cfg.SessionTTL.String()),
		slog.Bool("secure_cookie", cfg.SecureCookie),
	)

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, healthHandler, ui)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Topic Console остановлен")
}
