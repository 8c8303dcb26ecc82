// files.go — HTTP handler загрузки файлов.
// POST /api/v1/files: multipart form с полем file.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bigkaa/gofilelink/internal/api/errors"
	"github.com/bigkaa/gofilelink/internal/service"
)

// FilesHandler — обработчик endpoint'ов загрузки.
type FilesHandler struct {
	uploadSvc *service.UploadService
}

// NewFilesHandler создаёт обработчик endpoint'ов загрузки.
func NewFilesHandler(uploadSvc *service.UploadService) *FilesHandler {
	return &FilesHandler{uploadSvc: uploadSvc}
}

// uploadResponse — тело ответа успешной загрузки.
type uploadResponse struct {
	ResourceID  string    `json:"resource_id"`
	DisplayName string    `json:"display_name"`
	Link        string    `json:"link"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadFile обрабатывает POST /api/v1/files.
// Multipart form: file (обязательно).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Парсим multipart form; тело файла остаётся потоком
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		errors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		errors.ValidationError(w, "Имя файла не должно быть пустым")
		return
	}

	result, uploadErr := h.uploadSvc.Upload(r.Context(), service.UploadParams{
		Reader:      file,
		DisplayName: header.Filename,
		Size:        header.Size,
	})
	if uploadErr != nil {
		errors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	resp := uploadResponse{
		ResourceID:  result.ResourceID,
		DisplayName: result.DisplayName,
		Link:        result.Link,
		ExpiresAt:   result.ExpiresAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}
