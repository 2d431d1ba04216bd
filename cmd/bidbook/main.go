// Основной пакет приложения BidBook. Отвечает за запуск приложения, инициализацию базы данных, миграцию моделей, выбор blob-хранилища и запуск HTTP-сервера.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bidbook/bidbook.go/internal/bidbook"
	"github.com/bidbook/bidbook.go/internal/bidbook/blobstore"
	"github.com/bidbook/bidbook.go/internal/bidbook/config"
	"github.com/bidbook/bidbook.go/internal/bidbook/dao"
	"github.com/bidbook/bidbook.go/internal/bidbook/gormlogger"
)

var version string = "DEV"

// Пример запуска: go run main.go --noMigration --trace
func main() {
	noTranslateFlag := flag.Bool("noTranslate", false, "Turn off BD errors translate")
	paramQueries := flag.Bool("paramQueries", true, "Mask queries params in log")
	noMigration := flag.Bool("noMigration", false, "Turn off DB migration")
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	cfg := config.ReadConfig()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("BidBook start.")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: false, // disables implicit prepared statement usage
	}), &gorm.Config{
		TranslateError: !*noTranslateFlag,
		Logger:         gormlogger.NewGormLogger(slog.Default(), time.Second*4, *paramQueries),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Fail set settings to conn pool", "err", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 15)

	if !*noMigration {
		if err := dao.Migrate(db); err != nil {
			slog.Error("DB migration", "err", err)
			os.Exit(1)
		}
	}

	var storage blobstore.BlobStore
	switch cfg.StorageBackend {
	case "minio":
		storage, err = blobstore.NewMinioStorage(
			cfg.MinioEndpoint,
			cfg.MinioAccessKey,
			cfg.MinioSecretKey,
			cfg.MinioUseSSL,
			cfg.MinioBucketName,
		)
	default:
		storage, err = blobstore.NewLocalStorage(cfg.StoragePath)
	}
	if err != nil {
		slog.Error("Fail init blob storage", "backend", cfg.StorageBackend, "err", err)
		os.Exit(1)
	}

	bidbook.Server(db, storage, cfg, version)
}
