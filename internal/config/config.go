// Пакет config — загрузка и валидация конфигурации File Link Service
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Link Service.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории промежуточного хранения загружаемых файлов
	StagingDir string
	// Срок хранения файла в удалённом хранилище
	Retention time.Duration
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64
	// Интервал запуска sweeper
	SweepInterval time.Duration
	// Таймаут одного delete-запроса к хранилищу внутри sweep
	DeleteTimeout time.Duration

	// Базовый URL API удалённого хранилища
	StorageBaseURL string
	// Access token удалённого хранилища
	StorageToken string
	// Имя логической папки для загрузок в хранилище
	StorageFolder string
	// Таймаут HTTP-запросов к хранилищу (кроме delete в sweep)
	StorageTimeout time.Duration

	// Базовый URL сервиса сокращения ссылок
	ShortenerBaseURL string
	// Таймаут запроса к сервису сокращения ссылок
	ShortenerTimeout time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FL_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FL_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FL_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FL_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FL_STAGING_DIR — обязательный
	cfg.StagingDir, err = getEnvRequired("FL_STAGING_DIR")
	if err != nil {
		return nil, err
	}

	// FL_RETENTION — срок хранения файла (по умолчанию 720h = 30 дней)
	cfg.Retention, err = getEnvDuration("FL_RETENTION", 720*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FL_RETENTION: %w", err)
	}
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("FL_RETENTION: значение должно быть положительным")
	}

	// FL_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 1 GiB)
	maxFileSize, err := getEnvInt64("FL_MAX_FILE_SIZE", 1073741824)
	if err != nil {
		return nil, fmt.Errorf("FL_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("FL_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// FL_SWEEP_INTERVAL — интервал sweeper (по умолчанию 12h)
	cfg.SweepInterval, err = getEnvDuration("FL_SWEEP_INTERVAL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FL_SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("FL_SWEEP_INTERVAL: значение должно быть положительным")
	}

	// FL_DELETE_TIMEOUT — таймаут одного delete внутри sweep (по умолчанию 30s).
	// Зависший бэкенд не должен останавливать обработку остальных записей.
	cfg.DeleteTimeout, err = getEnvDuration("FL_DELETE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FL_DELETE_TIMEOUT: %w", err)
	}

	// FL_STORAGE_BASE_URL — обязательный
	cfg.StorageBaseURL, err = getEnvRequired("FL_STORAGE_BASE_URL")
	if err != nil {
		return nil, err
	}

	// FL_STORAGE_TOKEN — обязательный
	cfg.StorageToken, err = getEnvRequired("FL_STORAGE_TOKEN")
	if err != nil {
		return nil, err
	}

	// FL_STORAGE_FOLDER — имя папки для загрузок (по умолчанию "uploads")
	cfg.StorageFolder = getEnvDefault("FL_STORAGE_FOLDER", "uploads")

	// FL_STORAGE_TIMEOUT — таймаут запросов к хранилищу (по умолчанию 10m,
	// загрузка 1 GiB по медленному каналу занимает минуты)
	cfg.StorageTimeout, err = getEnvDuration("FL_STORAGE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FL_STORAGE_TIMEOUT: %w", err)
	}

	// FL_SHORTENER_BASE_URL — сервис сокращения ссылок (по умолчанию is.gd)
	cfg.ShortenerBaseURL = getEnvDefault("FL_SHORTENER_BASE_URL", "https://is.gd")

	// FL_SHORTENER_TIMEOUT — таймаут запроса к сокращателю (по умолчанию 5s)
	cfg.ShortenerTimeout, err = getEnvDuration("FL_SHORTENER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FL_SHORTENER_TIMEOUT: %w", err)
	}

	// FL_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FL_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FL_LOG_LEVEL: %w", err)
	}

	// FL_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FL_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FL_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FL_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FL_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FL_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
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

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 12h, 720h)", val)
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
