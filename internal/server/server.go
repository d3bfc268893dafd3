// Пакет server — HTTP-сервер Topic Console с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/topic-console/internal/api/errors"
	"github.com/bigkaa/goartstore/topic-console/internal/api/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/config"
	uihandlers "github.com/bigkaa/goartstore/topic-console/internal/ui/handlers"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/topic-console/internal/ui/middleware"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/pages"
	"github.com/bigkaa/goartstore/topic-console/internal/ui/static"
)

// HealthProvider — служебные endpoints.
type HealthProvider interface {
	HealthLive(w http.ResponseWriter, r *http.Request)
	HealthReady(w http.ResponseWriter, r *http.Request)
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// UIComponents — обработчики и middleware UI консоли.
type UIComponents struct {
	Bundle          *i18n.Bundle
	Session         *uimiddleware.Session
	TopicsHandler   *uihandlers.TopicsHandler
	SettingsHandler *uihandlers.SettingsHandler
	LanguageHandler *uihandlers.LanguageHandler
}

// Server — HTTP-сервер Topic Console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, health HealthProvider, ui *UIComponents) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, health, ui),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты консоли.
// ui может быть nil — тогда доступны только служебные endpoints.
func NewRouter(logger *slog.Logger, health HealthProvider, ui *UIComponents) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, "маршрут не найден: "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, "метод "+r.Method+" не поддерживается")
	})

	// Health и metrics проверяются Kubernetes напрямую
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	if ui != nil {
		mountUI(router, ui)
	}

	return router
}

// mountUI регистрирует страницы и HTMX partials консоли.
func mountUI(router chi.Router, ui *UIComponents) {
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, pages.TopicsPath, http.StatusFound)
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(ui.Bundle.Middleware())
		r.Use(ui.Session.Middleware())

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, pages.TopicsPath, http.StatusFound)
		})
		r.Get("/topics", ui.TopicsHandler.HandleList)
		r.Get("/settings", ui.SettingsHandler.HandleSettings)
		r.Post("/set-language", ui.LanguageHandler.HandleSetLanguage)

		r.Route("/partials", func(r chi.Router) {
			r.Route("/topics", func(r chi.Router) {
				r.Post("/", ui.TopicsHandler.HandleCreate)
				r.Get("/form", ui.TopicsHandler.HandleCreateForm)
				r.Get("/{id}/form", ui.TopicsHandler.HandleEditForm)
				r.Put("/{id}", ui.TopicsHandler.HandleUpdate)
				r.Get("/{id}/delete", ui.TopicsHandler.HandleDeleteConfirm)
				r.Delete("/{id}", ui.TopicsHandler.HandleDelete)
				r.Post("/{id}/clear", ui.TopicsHandler.HandleClear)
			})
			r.Put("/settings", ui.SettingsHandler.HandleUpdate)
		})
	})
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
