// sweeper.go — фоновое сметание истёкших файлов.
//
// Sweeper на каждом тике запрашивает у реестра истёкшие записи,
// удаляет соответствующие файлы из удалённого хранилища и снимает
// записи с учёта. Запись удаляется из реестра только после
// подтверждённого (или заведомо состоявшегося ранее) удаления в
// хранилище: транзиентная ошибка оставляет запись до следующего тика.
//
// Запускается как горутина с периодическим тикером (FL_SWEEP_INTERVAL).
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofilelink/internal/domain/model"
	"github.com/bigkaa/gofilelink/internal/registry"
)

// Метрики sweeper
var (
	// sweepRunsTotal — количество запусков sweep.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl_sweep_runs_total",
		Help: "Общее количество запусков sweep",
	})

	// resourcesReapedTotal — количество удалённых из хранилища файлов.
	resourcesReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl_resources_reaped_total",
		Help: "Общее количество файлов, удалённых sweeper из хранилища",
	})

	// sweepDeleteErrorsTotal — количество транзиентных ошибок delete.
	sweepDeleteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl_sweep_delete_errors_total",
		Help: "Общее количество транзиентных ошибок удаления внутри sweep",
	})

	// sweepDurationSeconds — длительность выполнения sweep.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fl_sweep_duration_seconds",
		Help:    "Длительность выполнения sweep в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// ResourceDeleter — delete-возможность удалённого хранилища.
// Sweeper'у не нужны остальные операции StorageBackend.
type ResourceDeleter interface {
	Delete(ctx context.Context, resourceID string) error
}

// SweepResult — результат одного запуска sweep.
type SweepResult struct {
	// Reaped — количество файлов, удалённых из хранилища и снятых с учёта
	Reaped int
	// Gone — из них: файлов, которых в хранилище уже не было (аномалия)
	Gone int
	// Failed — количество транзиентных ошибок (записи оставлены до следующего тика)
	Failed int
	// Duration — длительность выполнения
	Duration time.Duration
}

// Sweeper — фоновый процесс сметания истёкших файлов.
type Sweeper struct {
	reg           *registry.Registry
	deleter       ResourceDeleter
	interval      time.Duration
	deleteTimeout time.Duration
	logger        *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewSweeper создаёт sweeper.
// interval — период тиков (FL_SWEEP_INTERVAL).
// deleteTimeout — предел ожидания одного delete-вызова (FL_DELETE_TIMEOUT),
// чтобы зависший бэкенд не останавливал обработку остальных записей.
func NewSweeper(
	reg *registry.Registry,
	deleter ResourceDeleter,
	interval time.Duration,
	deleteTimeout time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		reg:           reg,
		deleter:       deleter,
		interval:      interval,
		deleteTimeout: deleteTimeout,
		logger:        logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновую горутину sweeper с периодическим тикером.
// Вызывается один раз при старте приложения.
func (s *Sweeper) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(sweepCtx)

	s.logger.Info("Sweeper запущен",
		slog.String("interval", s.interval.String()),
		slog.String("delete_timeout", s.deleteTimeout.String()),
	)
}

// Stop останавливает фоновый процесс sweeper.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("Sweeper остановлен")
}

// run — основной цикл фоновой горутины.
func (s *Sweeper) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один цикл сметания.
// Потокобезопасен: mutex исключает параллельные запуски, поэтому два
// sweep никогда не гонятся на Remove одной записи.
//
// Для каждой истёкшей записи:
//   - delete в хранилище с таймаутом deleteTimeout;
//   - успех → запись удаляется из реестра;
//   - «файл уже отсутствует» → запись удаляется, аномалия логируется;
//   - транзиентная ошибка → запись остаётся до следующего тика.
//
// Порядок обработки записей внутри тика не определён и не важен.
func (s *Sweeper) RunOnce(ctx context.Context) *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	expired := s.reg.ListExpired(time.Now().UTC())
	if len(expired) > 0 {
		s.logger.Debug("Sweep начат", slog.Int("expired", len(expired)))
	}

	for _, resourceID := range expired {
		if ctx.Err() != nil {
			break
		}

		delCtx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
		err := s.deleter.Delete(delCtx, resourceID)
		cancel()

		switch {
		case err == nil:
			s.reg.Remove(resourceID)
			result.Reaped++

		case errors.Is(err, model.ErrResourceGone):
			// Конечное состояние достигнуто, но файл пропал не нашими руками
			s.logger.Warn("Файл уже отсутствовал в хранилище",
				slog.String("resource_id", resourceID),
			)
			s.reg.Remove(resourceID)
			result.Reaped++
			result.Gone++

		default:
			// Транзиентная ошибка: запись остаётся, retry на следующем тике
			s.logger.Error("Ошибка удаления файла из хранилища",
				slog.String("resource_id", resourceID),
				slog.String("error", err.Error()),
			)
			result.Failed++
		}
	}

	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	sweepRunsTotal.Inc()
	resourcesReapedTotal.Add(float64(result.Reaped))
	sweepDeleteErrorsTotal.Add(float64(result.Failed))
	sweepDurationSeconds.Observe(result.Duration.Seconds())

	if result.Reaped > 0 || result.Failed > 0 {
		s.logger.Info("Sweep завершён",
			slog.Int("reaped", result.Reaped),
			slog.Int("gone", result.Gone),
			slog.Int("failed", result.Failed),
			slog.Duration("duration", result.Duration),
		)
	}

	return result
}
