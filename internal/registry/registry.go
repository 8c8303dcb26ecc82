// Пакет registry — потокобезопасный in-memory реестр загруженных файлов.
//
// Реестр — единственное разделяемое изменяемое состояние процесса.
// Писатели: пайплайн загрузки (Register) и sweeper (Remove).
// Читатели: статус-отчёт (Snapshot) и sweeper (ListExpired).
// Все операции сериализуются через sync.RWMutex, наружу отдаются
// только копии записей.
//
// Не персистентный: при рестарте процесса реестр пуст.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofilelink/internal/domain/model"
)

// resourcesTracked — текущее количество отслеживаемых файлов (gauge).
var resourcesTracked = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "fl_resources_tracked",
	Help: "Текущее количество файлов под наблюдением реестра",
})

// Registry — реестр записей о загруженных файлах.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*model.Record // resource_id → record
	logger  *slog.Logger
}

// New создаёт пустой реестр.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		records: make(map[string]*model.Record),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// Register добавляет запись о файле со сроком хранения ttl от текущего момента.
// Если resource_id уже присутствует, запись перезаписывается: хранилище выдаёт
// свежие идентификаторы на каждую загрузку, а last-writer-wins делает Register
// идемпотентным при повторах со стороны фронтенда.
func (r *Registry) Register(resourceID, displayName string, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[resourceID] = &model.Record{
		ResourceID:  resourceID,
		DisplayName: displayName,
		ExpiresAt:   time.Now().UTC().Add(ttl),
	}
	resourcesTracked.Set(float64(len(r.records)))

	r.logger.Debug("Файл зарегистрирован",
		slog.String("resource_id", resourceID),
		slog.String("display_name", displayName),
		slog.Duration("ttl", ttl),
	)
}

// ListExpired возвращает идентификаторы записей с истёкшим сроком хранения
// (ExpiresAt <= now). Состояние не изменяет, порядок не определён.
func (r *Registry) ListExpired(now time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []string
	for id, rec := range r.records {
		if rec.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	return expired
}

// Remove удаляет запись по resource_id.
// Возвращает false, если записи нет — это не ошибка: повторный Remove
// после retry сметания должен быть no-op.
func (r *Registry) Remove(resourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[resourceID]; !ok {
		return false
	}
	delete(r.records, resourceID)
	resourcesTracked.Set(float64(len(r.records)))
	return true
}

// Snapshot возвращает моментальный срез живых записей с оставшимся временем
// хранения, вычисленным на момент вызова. Записи с Remaining <= 0 не входят
// в срез (они уже ждут sweeper). Форматирование результата выполняется
// вызывающим кодом без удержания блокировки.
func (r *Registry) Snapshot(now time.Time) []model.ResourceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var statuses []model.ResourceStatus
	for _, rec := range r.records {
		remaining := rec.ExpiresAt.Sub(now)
		if remaining <= 0 {
			continue
		}
		statuses = append(statuses, model.ResourceStatus{
			ResourceID:  rec.ResourceID,
			DisplayName: rec.DisplayName,
			Remaining:   remaining,
		})
	}
	return statuses
}

// Count возвращает общее количество записей в реестре.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
