package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	staged, err := store.Save(strings.NewReader("hello staging"), "report.pdf")
	if err != nil {
		t.Fatalf("Save вернул ошибку: %v", err)
	}

	if staged.Size != int64(len("hello staging")) {
		t.Errorf("Size: хотели %d, получили %d", len("hello staging"), staged.Size)
	}

	data, err := os.ReadFile(staged.Path)
	if err != nil {
		t.Fatalf("Ошибка чтения staging-файла: %v", err)
	}
	if string(data) != "hello staging" {
		t.Errorf("Содержимое: хотели %q, получили %q", "hello staging", string(data))
	}

	if err := store.Remove(staged.Path); err != nil {
		t.Errorf("Remove вернул ошибку: %v", err)
	}
	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Errorf("Файл не удалён: %s", staged.Path)
	}
}

func TestRemove_MissingFile_NoError(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	missing := filepath.Join(store.Dir(), "nonexistent.bin")
	if err := store.Remove(missing); err != nil {
		t.Errorf("Remove несуществующего файла: хотели nil, получили %v", err)
	}
}

func TestSave_UniqueNames(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	first, err := store.Save(strings.NewReader("a"), "same.txt")
	if err != nil {
		t.Fatalf("Первый Save: %v", err)
	}
	second, err := store.Save(strings.NewReader("b"), "same.txt")
	if err != nil {
		t.Fatalf("Второй Save: %v", err)
	}

	if first.Path == second.Path {
		t.Errorf("Staging-файлы с одинаковым исходным именем получили одинаковый путь: %s", first.Path)
	}
}

func TestGenerateStagingName_Sanitized(t *testing.T) {
	name := generateStagingName("../../etc/passwd")
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		t.Errorf("Имя staging-файла содержит небезопасные символы: %s", name)
	}

	// Расширение сохраняется
	name = generateStagingName("архив данных.tar.gz")
	if !strings.HasSuffix(name, ".gz") {
		t.Errorf("Расширение потеряно: %s", name)
	}
}

func TestWritable(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	if !store.Writable() {
		t.Error("Writable для временной директории: хотели true")
	}
}
