// status.go — HTTP handler статус-отчёта по отслеживаемым файлам.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/bigkaa/gofilelink/internal/domain/model"
	"github.com/bigkaa/gofilelink/internal/service"
)

// StatusHandler — обработчик GET /api/v1/status.
type StatusHandler struct {
	statusSvc *service.StatusService
}

// NewStatusHandler создаёт обработчик статус-отчёта.
func NewStatusHandler(statusSvc *service.StatusService) *StatusHandler {
	return &StatusHandler{statusSvc: statusSvc}
}

// statusResponse — тело ответа статус-отчёта.
// Report — человекочитаемое представление того же снимка.
type statusResponse struct {
	Total     int                    `json:"total"`
	Resources []model.ResourceStatus `json:"resources"`
	Report    string                 `json:"report"`
}

// GetStatus обрабатывает GET /api/v1/status.
// Возвращает живые записи реестра с оставшимся временем хранения.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	report := h.statusSvc.Report(time.Now().UTC())

	resp := statusResponse{
		Total:     report.Total,
		Resources: report.Resources,
		Report:    report.Text(),
	}
	if resp.Resources == nil {
		resp.Resources = []model.ResourceStatus{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
