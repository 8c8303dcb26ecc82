// Пакет staging — промежуточное локальное хранение загружаемых файлов.
// Файл живёт только на время upload-вызова к удалённому хранилищу
// и удаляется на каждом пути выхода из пайплайна загрузки.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store — управление файлами в staging-директории.
type Store struct {
	// dir — корневая директория промежуточного хранения (FL_STAGING_DIR)
	dir string
}

// StagedFile — результат сохранения потока в staging.
type StagedFile struct {
	// Path — абсолютный путь файла на диске
	Path string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт новый Store. Создаёт директорию, если она не существует.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию %s: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// Save записывает данные из reader во временный файл staging-директории.
// Имя файла уникально: {name}_{timestamp}_{uuid8}{ext}.
// При ошибке записи частичный файл удаляется.
func (s *Store) Save(reader io.Reader, displayName string) (*StagedFile, error) {
	path := filepath.Join(s.dir, generateStagingName(displayName))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания staging-файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return &StagedFile{
		Path: path,
		Size: size,
	}, nil
}

// Remove удаляет staging-файл.
// Возвращает nil, если файл уже не существует.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления staging-файла %s: %w", path, err)
	}
	return nil
}

// Writable проверяет, что staging-директория доступна для записи.
// Используется readiness-проверкой.
func (s *Store) Writable() bool {
	probe := filepath.Join(s.dir, ".probe_"+uuid.New().String()[:8])
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// Dir возвращает путь к staging-директории.
func (s *Store) Dir() string {
	return s.dir
}

// generateStagingName генерирует уникальное имя staging-файла.
// Формат: {name}_{timestamp}_{uuid8}{ext}
// Пример: report_20260901150405_a1b2c3d4.pdf
func generateStagingName(displayName string) string {
	ext := filepath.Ext(displayName)
	name := sanitize(strings.TrimSuffix(displayName, ext))

	// Ограничиваем длину имени для предотвращения проблем с FS
	if len(name) > 50 {
		name = name[:50]
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8] // Короткий UUID для уникальности

	return fmt.Sprintf("%s_%s_%s%s", name, ts, uid, ext)
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
