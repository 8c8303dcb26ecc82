// Пакет service — бизнес-логика File Link Service.
// upload.go — пайплайн загрузки: staging → хранилище → ссылка → реестр.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apierrors "github.com/bigkaa/gofilelink/internal/api/errors"
	"github.com/bigkaa/gofilelink/internal/config"
	"github.com/bigkaa/gofilelink/internal/registry"
	"github.com/bigkaa/gofilelink/internal/staging"
)

// Метрики пайплайна загрузки
var (
	// uploadsTotal — количество загрузок по результату.
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fl_uploads_total",
			Help: "Общее количество загрузок файлов",
		},
		[]string{"result"},
	)

	// shortenFallbacksTotal — количество деградаций до длинной ссылки.
	shortenFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl_shorten_fallbacks_total",
		Help: "Количество загрузок, вернувших длинную ссылку из-за отказа сокращателя",
	})
)

// StorageBackend — абстракция удалённого хранилища файлов.
// Реализуется клиентом internal/pcloud.
type StorageBackend interface {
	EnsureFolder(ctx context.Context, name string) (int64, error)
	Upload(ctx context.Context, folderID int64, localPath string) (string, error)
	CreateShareLink(ctx context.Context, resourceID string) (string, error)
	Delete(ctx context.Context, resourceID string) error
}

// LinkShortener — абстракция сервиса сокращения ссылок.
// Реализуется клиентом internal/shortener.
type LinkShortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// UploadParams — параметры загрузки файла.
type UploadParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// DisplayName — оригинальное имя файла
	DisplayName string
	// Size — заявленный размер файла в байтах
	Size int64
}

// UploadResult — результат успешной загрузки.
type UploadResult struct {
	// ResourceID — идентификатор файла, выданный хранилищем
	ResourceID string
	// DisplayName — оригинальное имя файла
	DisplayName string
	// Link — ссылка для скачивания (короткая, при отказе сокращателя — длинная)
	Link string
	// ExpiresAt — момент истечения срока хранения
	ExpiresAt time.Time
}

// UploadError — ошибка загрузки с HTTP-кодом.
type UploadError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UploadService — сервис загрузки файлов.
type UploadService struct {
	cfg       *config.Config
	stage     *staging.Store
	backend   StorageBackend
	shortener LinkShortener
	reg       *registry.Registry
	logger    *slog.Logger

	// folderID кэшируется после первого успешного EnsureFolder
	folderMu sync.Mutex
	folderID int64
	folderOK bool
}

// NewUploadService создаёт сервис загрузки файлов.
func NewUploadService(
	cfg *config.Config,
	stage *staging.Store,
	backend StorageBackend,
	shortener LinkShortener,
	reg *registry.Registry,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		cfg:       cfg,
		stage:     stage,
		backend:   backend,
		shortener: shortener,
		reg:       reg,
		logger:    logger.With(slog.String("component", "upload_service")),
	}
}

// Upload проводит файл через пайплайн загрузки.
//
// Поток:
//  1. Проверка заявленного размера (без обращения к бэкенду)
//  2. Staging потока на локальный диск (удаляется на любом пути выхода)
//  3. EnsureFolder (идентификатор папки кэшируется)
//  4. Upload staged-файла в хранилище
//  5. CreateShareLink
//  6. Shorten — отказ не фатален, остаётся длинная ссылка
//  7. Регистрация в реестре с retention TTL
//
// Реестр изменяется только после успешного завершения всего I/O;
// ни один шаг не выполняется под блокировкой реестра.
func (s *UploadService) Upload(ctx context.Context, params UploadParams) (*UploadResult, *UploadError) {
	// 1. Проверяем заявленный размер до каких-либо побочных эффектов
	if params.Size > s.cfg.MaxFileSize {
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", params.Size, s.cfg.MaxFileSize),
		}
	}

	// 2. Staging потока на локальный диск
	staged, err := s.stage.Save(params.Reader, params.DisplayName)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка staging",
			slog.String("display_name", params.DisplayName),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка промежуточного сохранения файла",
		}
	}

	// Staging-копия удаляется на каждом пути выхода
	defer func() {
		if rmErr := s.stage.Remove(staged.Path); rmErr != nil {
			s.logger.Warn("Не удалось удалить staging-файл",
				slog.String("path", staged.Path),
				slog.String("error", rmErr.Error()),
			)
		}
	}()

	// Фактический размер тоже проверяем: заявленный мог быть занижен
	if staged.Size > s.cfg.MaxFileSize {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, &UploadError{
			StatusCode: 413,
			Code:       apierrors.CodeFileTooLarge,
			Message:    fmt.Sprintf("Размер файла %d байт превышает максимум %d байт", staged.Size, s.cfg.MaxFileSize),
		}
	}

	// 3. Папка назначения в хранилище
	folderID, err := s.ensureFolder(ctx)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка создания папки в хранилище", slog.String("error", err.Error()))
		return nil, &UploadError{
			StatusCode: 502,
			Code:       apierrors.CodeStorageUploadFailed,
			Message:    "Хранилище недоступно",
		}
	}

	// 4. Загрузка в хранилище
	resourceID, err := s.backend.Upload(ctx, folderID, staged.Path)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка загрузки в хранилище",
			slog.String("display_name", params.DisplayName),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 502,
			Code:       apierrors.CodeStorageUploadFailed,
			Message:    "Ошибка загрузки файла в хранилище",
		}
	}

	// 5. Публичная ссылка
	link, err := s.backend.CreateShareLink(ctx, resourceID)
	if err != nil {
		// Файл без ссылки бесполезен: best-effort удаляем его из хранилища,
		// запись в реестре не создаётся
		if delErr := s.backend.Delete(ctx, resourceID); delErr != nil {
			s.logger.Warn("Не удалось удалить файл после отказа выпуска ссылки",
				slog.String("resource_id", resourceID),
				slog.String("error", delErr.Error()),
			)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка выпуска публичной ссылки",
			slog.String("resource_id", resourceID),
			slog.String("error", err.Error()),
		)
		return nil, &UploadError{
			StatusCode: 502,
			Code:       apierrors.CodeLinkCreationFailed,
			Message:    "Ошибка выпуска ссылки на файл",
		}
	}

	// 6. Сокращение ссылки — отказ не фатален
	finalLink := link
	if short, shortenErr := s.shortener.Shorten(ctx, link); shortenErr != nil {
		shortenFallbacksTotal.Inc()
		s.logger.Warn("Сокращатель недоступен, возвращаем длинную ссылку",
			slog.String("resource_id", resourceID),
			slog.String("error", shortenErr.Error()),
		)
	} else {
		finalLink = short
	}

	// 7. Регистрация в реестре
	s.reg.Register(resourceID, params.DisplayName, s.cfg.Retention)
	expiresAt := time.Now().UTC().Add(s.cfg.Retention)

	uploadsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Файл загружен",
		slog.String("resource_id", resourceID),
		slog.String("display_name", params.DisplayName),
		slog.Int64("size", staged.Size),
		slog.Time("expires_at", expiresAt),
	)

	return &UploadResult{
		ResourceID:  resourceID,
		DisplayName: params.DisplayName,
		Link:        finalLink,
		ExpiresAt:   expiresAt,
	}, nil
}

// ensureFolder возвращает идентификатор папки назначения, создавая её
// при первом обращении. Успешный результат кэшируется; после ошибки
// следующий вызов повторяет попытку.
func (s *UploadService) ensureFolder(ctx context.Context) (int64, error) {
	s.folderMu.Lock()
	defer s.folderMu.Unlock()

	if s.folderOK {
		return s.folderID, nil
	}

	folderID, err := s.backend.EnsureFolder(ctx, s.cfg.StorageFolder)
	if err != nil {
		return 0, err
	}

	s.folderID = folderID
	s.folderOK = true
	return folderID, nil
}
