// Точка входа File Link Service — сервиса временных публичных ссылок на файлы.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bigkaa/gofilelink/internal/api/handlers"
	"github.com/bigkaa/gofilelink/internal/config"
	"github.com/bigkaa/gofilelink/internal/pcloud"
	"github.com/bigkaa/gofilelink/internal/registry"
	"github.com/bigkaa/gofilelink/internal/server"
	"github.com/bigkaa/gofilelink/internal/service"
	"github.com/bigkaa/gofilelink/internal/shortener"
	"github.com/bigkaa/gofilelink/internal/staging"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("File Link Service запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Duration("retention", cfg.Retention),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	// --- Инициализация компонентов ---

	// 1. Staging-директория
	stage, err := staging.New(cfg.StagingDir)
	if err != nil {
		logger.Error("Ошибка инициализации staging", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. In-memory реестр отслеживаемых файлов
	reg := registry.New(logger)

	// 3. Клиенты внешних сервисов
	backend := pcloud.New(cfg.StorageBaseURL, cfg.StorageToken, cfg.StorageTimeout, logger)
	short := shortener.New(cfg.ShortenerBaseURL, cfg.ShortenerTimeout, logger)

	// 4. Сервисы
	uploadSvc := service.NewUploadService(cfg, stage, backend, short, reg, logger)
	statusSvc := service.NewStatusService(reg)

	// 5. Фоновый sweeper — периодическое удаление истёкших файлов
	ctx := context.Background()
	sweeper := service.NewSweeper(reg, backend, cfg.SweepInterval, cfg.DeleteTimeout, logger)
	sweeper.Start(ctx)

	// 6. HTTP-сервер
	srv := server.New(cfg, logger, server.Handlers{
		Files:  handlers.NewFilesHandler(uploadSvc),
		Status: handlers.NewStatusHandler(statusSvc),
		Health: handlers.NewHealthHandler(stage),
	})

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		sweeper.Stop()
		os.Exit(1)
	}

	// Останавливаем фоновые процессы после остановки HTTP-сервера
	sweeper.Stop()
	logger.Info("File Link Service остановлен")
}
