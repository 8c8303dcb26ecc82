package service

import (
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/gofilelink/internal/registry"
)

func TestReport_EmptyRegistry(t *testing.T) {
	reg := registry.New(testLogger())
	svc := NewStatusService(reg)

	report := svc.Report(time.Now().UTC())

	if report.Total != 0 {
		t.Errorf("Total: хотели 0, получили %d", report.Total)
	}

	text := report.Text()
	if text == "" {
		t.Fatal("Text для пустого реестра не должен быть пустой строкой")
	}
	if !strings.Contains(text, "Нет файлов") {
		t.Errorf("Text для пустого реестра должен явно это сообщать, получили: %q", text)
	}
}

func TestReport_ListsResources(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("r1", "doc.pdf", 30*24*time.Hour)
	reg.Register("r2", "photo.jpg", time.Hour)
	svc := NewStatusService(reg)

	report := svc.Report(time.Now().UTC())

	if report.Total != 2 {
		t.Fatalf("Total: хотели 2, получили %d", report.Total)
	}

	// Сортировка: ближайшая к удалению запись первая
	if report.Resources[0].ResourceID != "r2" {
		t.Errorf("Первая запись: хотели r2, получили %s", report.Resources[0].ResourceID)
	}

	for _, res := range report.Resources {
		if res.ExpiresIn == "" {
			t.Errorf("ExpiresIn пустой для %s", res.ResourceID)
		}
	}

	text := report.Text()
	for _, want := range []string{"doc.pdf", "photo.jpg", "r1", "r2", "Файлов под наблюдением: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text не содержит %q:\n%s", want, text)
		}
	}
}

func TestReport_ExcludesExpired(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("live", "live.txt", time.Hour)
	reg.Register("dead", "dead.txt", -time.Minute)
	svc := NewStatusService(reg)

	report := svc.Report(time.Now().UTC())

	if report.Total != 1 {
		t.Fatalf("Total: хотели 1, получили %d", report.Total)
	}
	if report.Resources[0].ResourceID != "live" {
		t.Errorf("В отчёте неожиданная запись: %s", report.Resources[0].ResourceID)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * time.Second, "1m30s"},
		{time.Hour + 500*time.Millisecond, "1h0m0s"},
		{719*time.Hour + 59*time.Minute, "719h59m0s"},
	}

	for _, tt := range tests {
		if got := formatRemaining(tt.in); got != tt.want {
			t.Errorf("formatRemaining(%v): хотели %s, получили %s", tt.in, tt.want, got)
		}
	}
}
