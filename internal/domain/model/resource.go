// Пакет model — доменные модели File Link Service.
// Record — запись жизненного цикла одного загруженного файла,
// хранится только в памяти реестра (не персистентна).
package model

import (
	"errors"
	"time"
)

// ErrResourceGone — файл уже отсутствует в удалённом хранилище.
// Бэкенд вернул «file not found» на delete: желаемое конечное состояние
// (нет файла, нет записи) достигнуто, sweeper удаляет запись из реестра,
// но логирует аномалию.
var ErrResourceGone = errors.New("ресурс отсутствует в удалённом хранилище")

// Record — запись реестра о загруженном файле.
type Record struct {
	// ResourceID — идентификатор файла, выданный хранилищем при загрузке.
	// Уникален, неизменяем, первичный ключ реестра.
	ResourceID string

	// DisplayName — оригинальное имя файла для статус-отчёта
	DisplayName string

	// ExpiresAt — момент, после которого файл подлежит удалению
	// (время регистрации + retention window). Не продлевается.
	ExpiresAt time.Time
}

// IsExpired проверяет, истёк ли срок хранения записи.
func (r *Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// ResourceStatus — срез состояния одной записи для статус-отчёта.
// Remaining вычисляется в момент снимка, дальше запись не читается.
type ResourceStatus struct {
	// ResourceID — идентификатор файла в хранилище
	ResourceID string `json:"resource_id"`

	// DisplayName — оригинальное имя файла
	DisplayName string `json:"display_name"`

	// Remaining — оставшееся время до истечения срока хранения
	Remaining time.Duration `json:"-"`

	// ExpiresIn — человекочитаемое оставшееся время (для API-ответа)
	ExpiresIn string `json:"expires_in"`
}
