// Пакет bidbook предоставляет HTTP-слой редактора таблиц торговых систем.
// Он связывает движок разметки richtext с хранилищем: таблицы и ячейки живут
// в базе данных, вложения ячеек - в blob-хранилище.
//
// Основные возможности:
//   - CRUD таблиц торговых систем и их ячеек.
//   - Прием сырой разметки ячейки с канонизацией через санитайзер движка.
//   - Загрузка и раздача файловых вложений ячеек.
//   - Метрики запросов и структурное логирование.
package bidbook

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/bidbook/bidbook.go/internal/bidbook/blobstore"
	"github.com/bidbook/bidbook.go/internal/bidbook/config"
)

type Services struct {
	db      *gorm.DB
	storage blobstore.BlobStore
}

var cfg *config.Config
var appVersion string

// getEditorSettings отдает фронтенду тайминги истории редактора из конфигурации.
func getEditorSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"history_debounce_ms":   cfg.HistoryDebounce().Milliseconds(),
		"history_idle_clear_ms": cfg.HistoryIdleClear().Milliseconds(),
	})
}

// ServerHeader middleware adds a `Server` header to the response.
func ServerHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderServer, "BidBook")
		return next(c)
	}
}

func Server(db *gorm.DB, storage blobstore.BlobStore, c *config.Config, version string) {
	cfg = c
	appVersion = version

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	s := &Services{
		db:      db,
		storage: storage,
	}

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.WebURL.Scheme + "://" + cfg.WebURL.Host},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "2M",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/tables/:tableSlug/cells/:cellId/attachments/"
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
	}))
	if cfg.MetricsEnable {
		e.Use(echoprometheus.NewMiddleware("bidbook"))
		e.GET("/metrics", echoprometheus.NewHandler())

		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bidbook",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))
		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
		}
	}
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	apiGroup := e.Group("/api/")

	s.AddTableServices(apiGroup)

	// Blob serve
	apiGroup.GET("file/:fileName/", s.getBlobFile)

	// Настройки редактора для фронтенда: тайминги истории задаются сервером.
	apiGroup.GET("editor-settings/", getEditorSettings)

	// Version endpoint
	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version": version,
		})
	})

	// Health endpoint
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
		os.Exit(0)
	}()

	if err := e.Start(":8080"); err != nil && err != http.ErrServerClosed {
		slog.Error("Server start", "err", err)
		os.Exit(1)
	}
}
