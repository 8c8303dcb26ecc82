package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/gofilelink/internal/domain/model"
	"github.com/bigkaa/gofilelink/internal/registry"
)

// fakeDeleter — управляемая реализация ResourceDeleter.
type fakeDeleter struct {
	mu    sync.Mutex
	errs  map[string]error
	calls map[string]int
	// block блокирует Delete до закрытия канала (для проверки отсутствия
	// параллельных запусков)
	block chan struct{}
}

func newFakeDeleter() *fakeDeleter {
	return &fakeDeleter{
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeDeleter) Delete(ctx context.Context, resourceID string) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[resourceID]++
	return f.errs[resourceID]
}

func (f *fakeDeleter) callCount(resourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resourceID]
}

func newTestSweeper(reg *registry.Registry, deleter ResourceDeleter) *Sweeper {
	return NewSweeper(reg, deleter, time.Hour, time.Second, testLogger())
}

func TestRunOnce_EmptyRegistry(t *testing.T) {
	reg := registry.New(testLogger())
	deleter := newFakeDeleter()

	result := newTestSweeper(reg, deleter).RunOnce(context.Background())

	if result.Reaped != 0 || result.Failed != 0 {
		t.Errorf("Пустой реестр: хотели Reaped=0 Failed=0, получили %+v", result)
	}
}

func TestRunOnce_ReapsExpiredOnly(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("expired-1", "old.txt", -time.Minute)
	reg.Register("live-1", "fresh.txt", time.Hour)

	deleter := newFakeDeleter()
	result := newTestSweeper(reg, deleter).RunOnce(context.Background())

	if result.Reaped != 1 {
		t.Errorf("Reaped: хотели 1, получили %d", result.Reaped)
	}
	if deleter.callCount("expired-1") != 1 {
		t.Errorf("Delete для expired-1: хотели 1 вызов, получили %d", deleter.callCount("expired-1"))
	}
	if deleter.callCount("live-1") != 0 {
		t.Errorf("Delete для live-1 не должен вызываться, получили %d", deleter.callCount("live-1"))
	}

	// Истёкшая запись снята с учёта, живая осталась
	if reg.Count() != 1 {
		t.Errorf("Count: хотели 1, получили %d", reg.Count())
	}
	if len(reg.ListExpired(time.Now().UTC())) != 0 {
		t.Error("Истёкшие записи остались после sweep")
	}
}

func TestRunOnce_TransientFailureKeepsRecord(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("a", "a.txt", -time.Minute)
	reg.Register("b", "b.txt", -time.Minute)

	deleter := newFakeDeleter()
	deleter.errs["a"] = errors.New("таймаут хранилища")

	sweeper := newTestSweeper(reg, deleter)
	result := sweeper.RunOnce(context.Background())

	if result.Reaped != 1 {
		t.Errorf("Reaped: хотели 1, получили %d", result.Reaped)
	}
	if result.Failed != 1 {
		t.Errorf("Failed: хотели 1, получили %d", result.Failed)
	}

	// a осталась в реестре для retry, b снята с учёта
	expired := reg.ListExpired(time.Now().UTC())
	if len(expired) != 1 || expired[0] != "a" {
		t.Errorf("ListExpired: хотели [a], получили %v", expired)
	}

	// Следующий тик повторяет удаление a
	deleter.errs = map[string]error{}
	result = sweeper.RunOnce(context.Background())
	if result.Reaped != 1 {
		t.Errorf("Retry Reaped: хотели 1, получили %d", result.Reaped)
	}
	if reg.Count() != 0 {
		t.Errorf("Count после retry: хотели 0, получили %d", reg.Count())
	}
	if deleter.callCount("a") != 2 {
		t.Errorf("Delete для a: хотели 2 вызова (retry), получили %d", deleter.callCount("a"))
	}
}

func TestRunOnce_ResourceGoneRemovesRecord(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("ghost", "ghost.txt", -time.Minute)

	deleter := newFakeDeleter()
	deleter.errs["ghost"] = model.ErrResourceGone

	result := newTestSweeper(reg, deleter).RunOnce(context.Background())

	// Конечное состояние достигнуто: запись снята, аномалия посчитана
	if result.Reaped != 1 {
		t.Errorf("Reaped: хотели 1, получили %d", result.Reaped)
	}
	if result.Gone != 1 {
		t.Errorf("Gone: хотели 1, получили %d", result.Gone)
	}
	if result.Failed != 0 {
		t.Errorf("Failed: хотели 0, получили %d", result.Failed)
	}
	if reg.Count() != 0 {
		t.Errorf("Count: хотели 0, получили %d", reg.Count())
	}
}

func TestRunOnce_WrappedResourceGone(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("ghost", "ghost.txt", -time.Minute)

	deleter := newFakeDeleter()
	// Клиент хранилища оборачивает sentinel через %w
	deleter.errs["ghost"] = errors.Join(errors.New("удаление файла ghost"), model.ErrResourceGone)

	result := newTestSweeper(reg, deleter).RunOnce(context.Background())
	if result.Gone != 1 {
		t.Errorf("Gone для обёрнутой ошибки: хотели 1, получили %d", result.Gone)
	}
}

func TestRunOnce_NoConcurrentSweeps(t *testing.T) {
	reg := registry.New(testLogger())
	for i := 0; i < 3; i++ {
		reg.Register(string(rune('a'+i)), "f.txt", -time.Minute)
	}

	deleter := newFakeDeleter()
	deleter.block = make(chan struct{})

	sweeper := newTestSweeper(reg, deleter)

	started := make(chan struct{})
	done := make(chan *SweepResult, 2)

	go func() {
		close(started)
		done <- sweeper.RunOnce(context.Background())
	}()
	<-started

	// Второй запуск обязан дождаться первого: mutex сериализует тики
	go func() {
		done <- sweeper.RunOnce(context.Background())
	}()

	// Пока первый sweep заблокирован, результатов нет
	select {
	case <-done:
		t.Fatal("RunOnce завершился, пока Delete заблокирован")
	case <-time.After(50 * time.Millisecond):
	}

	close(deleter.block)

	first := <-done
	second := <-done

	// Все записи сняты суммарно, без двойного учёта
	if first.Reaped+second.Reaped != 3 {
		t.Errorf("Суммарный Reaped: хотели 3, получили %d", first.Reaped+second.Reaped)
	}
	if reg.Count() != 0 {
		t.Errorf("Count: хотели 0, получили %d", reg.Count())
	}
}

func TestRunOnce_DeleteBoundedByTimeout(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("stuck", "stuck.txt", -time.Minute)
	reg.Register("ok", "ok.txt", -time.Minute)

	deleter := newFakeDeleter()
	// Зависший delete: блокируется до отмены контекста
	deleter.block = make(chan struct{})

	sweeper := NewSweeper(reg, deleter, time.Hour, 50*time.Millisecond, testLogger())

	start := time.Now()
	result := sweeper.RunOnce(context.Background())
	elapsed := time.Since(start)

	// Оба delete упёрлись в таймаут, записи остались для retry
	if result.Failed != 2 {
		t.Errorf("Failed: хотели 2, получили %d", result.Failed)
	}
	if reg.Count() != 2 {
		t.Errorf("Count: хотели 2, получили %d", reg.Count())
	}
	// Sweep не завис: два таймаута по 50ms плюс накладные расходы
	if elapsed > 2*time.Second {
		t.Errorf("Sweep выполнялся слишком долго: %v", elapsed)
	}
}

func TestStartStop(t *testing.T) {
	reg := registry.New(testLogger())
	reg.Register("expired-1", "old.txt", -time.Minute)

	deleter := newFakeDeleter()
	sweeper := NewSweeper(reg, deleter, time.Hour, time.Second, testLogger())

	sweeper.Start(context.Background())

	// Первый запуск выполняется сразу после старта
	deadline := time.After(2 * time.Second)
	for reg.Count() != 0 {
		select {
		case <-deadline:
			t.Fatal("Sweeper не обработал истёкшую запись после Start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sweeper.Stop()
}
