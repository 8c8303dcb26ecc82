// status.go — статус-отчёт по отслеживаемым файлам.
// Чистое чтение реестра: снимок берётся один раз, форматирование
// выполняется без удержания блокировки.
package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bigkaa/gofilelink/internal/domain/model"
	"github.com/bigkaa/gofilelink/internal/registry"
)

// StatusReport — отчёт о текущем состоянии реестра.
type StatusReport struct {
	// Total — количество отслеживаемых файлов
	Total int `json:"total"`
	// Resources — живые записи с оставшимся временем хранения
	Resources []model.ResourceStatus `json:"resources"`
}

// StatusService — построение статус-отчётов.
type StatusService struct {
	reg *registry.Registry
}

// NewStatusService создаёт сервис статус-отчётов.
func NewStatusService(reg *registry.Registry) *StatusService {
	return &StatusService{reg: reg}
}

// Report возвращает снимок реестра на момент now.
// Записи отсортированы по оставшемуся времени (ближайшие к удалению первые),
// ExpiresIn заполнен человекочитаемой длительностью с точностью до секунды.
func (s *StatusService) Report(now time.Time) *StatusReport {
	resources := s.reg.Snapshot(now)

	sort.Slice(resources, func(i, j int) bool {
		return resources[i].Remaining < resources[j].Remaining
	})

	for i := range resources {
		resources[i].ExpiresIn = formatRemaining(resources[i].Remaining)
	}

	return &StatusReport{
		Total:     len(resources),
		Resources: resources,
	}
}

// Text рендерит отчёт в человекочитаемый вид.
// Пустой реестр описывается явной строкой, а не пустым выводом.
func (r *StatusReport) Text() string {
	if r.Total == 0 {
		return "Нет файлов, ожидающих удаления."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Файлов под наблюдением: %d\n", r.Total)
	for _, res := range r.Resources {
		fmt.Fprintf(&b, "\n%s\nID: %s\nИстекает через: %s\n",
			res.DisplayName, res.ResourceID, res.ExpiresIn)
	}
	return b.String()
}

// formatRemaining форматирует оставшееся время с точностью до секунды.
func formatRemaining(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
