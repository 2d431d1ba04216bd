// Управление конфигурацией приложения из переменных окружения.
// Содержит структуру Config для хранения параметров и функцию ReadConfig для их загрузки из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения с использованием тегов struct.
//   - Валидация обязательных переменных.
//   - Преобразование типов данных из переменных окружения (string, int, bool).
//   - Маскировка секретных значений (passwords) в логах.
//   - Значения по умолчанию и ограничение диапазонов для таймингов редактора.
package config

import (
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_URL"`

	// Бэкенд blob-хранилища: local либо minio.
	StorageBackend string `env:"STORAGE_BACKEND"`
	StoragePath    string `env:"STORAGE_PATH"`

	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretKey  string `env:"MINIO_SECRET_ACCESS_KEY"`
	MinioBucketName string `env:"MINIO_BUCKET_NAME"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	// Тайминги истории редактора, миллисекунды.
	HistoryDebounceMs  int `env:"HISTORY_DEBOUNCE_MS"`
	HistoryIdleClearMs int `env:"HISTORY_IDLE_CLEAR_MS"`

	MetricsEnable bool `env:"METRICS"`
}

// ReadConfig загружает конфигурацию приложения из переменных окружения и выполняет валидацию. Возвращает структуру Config с загруженными параметрами. Если WebURL не задан, приложение завершает работу с ошибкой. Тайминги редактора ограничиваются разумными диапазонами, бэкенд хранилища по умолчанию - локальный каталог.
func ReadConfig() *Config {
	config := &Config{}

	envConfig("env", config)

	// Check required envs
	if config.WebURLRaw == "" {
		slog.Error("WEB_URL is required")
		os.Exit(1)
	} else {
		var err error
		config.WebURL, err = url.Parse(config.WebURLRaw)
		if err != nil {
			slog.Error("WEB_URL incorrect", "err", err)
			os.Exit(1)
		}
	}

	if config.StorageBackend == "" {
		config.StorageBackend = "local"
	}
	if config.StoragePath == "" {
		config.StoragePath = "./blobs"
	}

	if config.HistoryDebounceMs <= 0 || config.HistoryDebounceMs > 5000 {
		config.HistoryDebounceMs = 750
	}
	if config.HistoryIdleClearMs <= 0 {
		config.HistoryIdleClearMs = int((10 * time.Minute).Milliseconds())
	}

	return config
}

func (c *Config) HistoryDebounce() time.Duration {
	return time.Duration(c.HistoryDebounceMs) * time.Millisecond
}

func (c *Config) HistoryIdleClear() time.Duration {
	return time.Duration(c.HistoryIdleClearMs) * time.Millisecond
}

// Присваивает полям в переданной структуре значения переменных. Название переменной для каждого поля лежит в теге этого поля.
func envConfig(key string, s interface{}) {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		fName := typeParam.Field(i).Name
		fEnvTag := typeParam.Field(i).Tag.Get(key)

		if !Exist(fEnvTag) {
			continue
		}

		logValue := GetEnv(fEnvTag)
		if logValue == "" {
			continue
		}

		// Secure passwords in log
		if strings.Contains(strings.ToLower(fName), "pass") || strings.Contains(strings.ToLower(fName), "secret") || strings.Contains(strings.ToLower(fName), "token") {
			pass := strings.Split(GetEnv(fEnvTag), "")
			logValue = pass[0]
			for i := 1; i < len(pass)-1; i++ {
				logValue += "*"
			}
			logValue += pass[len(pass)-1]
		}
		slog.Info("Set config value",
			slog.String("key", typeParam.Name()+"."+fName),
			slog.String("value", logValue),
			slog.String("source", "ENVIRONMENT"),
		)

		switch v.Field(i).Interface().(type) {
		case string:
			v.Field(i).SetString(GetEnv(fEnvTag))
		case int:
			v.Field(i).SetInt(int64(GetIntEnv(fEnvTag)))
		case bool:
			v.Field(i).SetBool(GetBoolEnv(fEnvTag))
		}
	}
}
