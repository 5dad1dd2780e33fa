package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewDocNo генерирует номер документа вида PREFIX-yyyyMMddHHmmssfff
func NewDocNo(prefix string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s-%s%03d", prefix, now.Format("20060102150405"), now.Nanosecond()/1e6)
}

// NewInspectionSvcNo генерирует номер сервисного заказа на входной осмотр.
// Индекс и случайный суффикс различают заказы одной приёмки.
func NewInspectionSvcNo(idx int) string {
	now := time.Now().UTC()
	suffix := uuid.New().String()[:6]
	return fmt.Sprintf("SVC-INSP-%s%03d-%d-%s", now.Format("20060102150405"), now.Nanosecond()/1e6, idx, suffix)
}
