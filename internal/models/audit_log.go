package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog представляет запись журнала изменений.
// Записи пишутся отдельным воркером после коммита основной транзакции,
// поэтому сбой аудита никогда не откатывает бизнес-операцию.
type AuditLog struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	Entity     string    `json:"entity" gorm:"type:varchar(100);not null;index"` // Имя сущности: Vehicle, PurchaseOrder...
	EntityID   string    `json:"entity_id" gorm:"type:uuid;not null;index"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"` // CREATE, STATUS_CHANGE, UPDATE, DELETE
	OldValue   string    `json:"old_value" gorm:"type:text"`
	NewValue   string    `json:"new_value" gorm:"type:text"`
	Actor      string    `json:"actor" gorm:"type:varchar(100)"` // Username или system
	OccurredAt time.Time `json:"occurred_at" gorm:"not null;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (al *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if al.ID == "" {
		al.ID = uuid.New().String()
	}
	if al.OccurredAt.IsZero() {
		al.OccurredAt = time.Now().UTC()
	}
	return nil
}
