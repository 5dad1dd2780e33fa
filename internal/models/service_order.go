package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceOrderStatus представляет статус сервисного заказа (входной осмотр)
type ServiceOrderStatus string

const (
	ServiceOrderStatusPlanned    ServiceOrderStatus = "PLANNED"     // Запланирован
	ServiceOrderStatusInProgress ServiceOrderStatus = "IN_PROGRESS" // Осмотр идёт
	ServiceOrderStatusDone       ServiceOrderStatus = "DONE"        // Завершён (терминальный)
	ServiceOrderStatusCancelled  ServiceOrderStatus = "CANCELLED"   // Отменён (терминальный)
)

var serviceOrderTransitions = map[ServiceOrderStatus][]ServiceOrderStatus{
	ServiceOrderStatusPlanned:    {ServiceOrderStatusInProgress, ServiceOrderStatusCancelled},
	ServiceOrderStatusInProgress: {ServiceOrderStatusDone, ServiceOrderStatusCancelled},
	ServiceOrderStatusDone:       {},
	ServiceOrderStatusCancelled:  {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s ServiceOrderStatus) CanTransitionTo(target ServiceOrderStatus) bool {
	for _, allowed := range serviceOrderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal проверяет, является ли статус терминальным
func (s ServiceOrderStatus) IsTerminal() bool {
	return len(serviceOrderTransitions[s]) == 0
}

// ServiceOrder представляет сервисный заказ на входной осмотр автомобиля.
// Создаётся автоматически на каждый принятый автомобиль.
type ServiceOrder struct {
	ID            string             `json:"id" gorm:"type:uuid;primaryKey"`
	SvcNo         string             `json:"svc_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	VehicleID     string             `json:"vehicle_id" gorm:"type:uuid;not null;index"`
	Vehicle       *Vehicle           `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	ModelID       string             `json:"model_id" gorm:"type:uuid;not null;index"`
	POID          *string            `json:"po_id" gorm:"type:uuid;index"` // Заказ-основание для закрытия
	GRID          *string            `json:"gr_id" gorm:"type:uuid;index"`
	ScheduledDate time.Time          `json:"scheduled_date" gorm:"not null;index"`
	Status        ServiceOrderStatus `json:"status" gorm:"type:varchar(30);default:'PLANNED';index"`
	Notes         string             `json:"notes" gorm:"type:text"`

	// Optimistic concurrency
	Version int `json:"version" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ServiceOrder) TableName() string {
	return "service_orders"
}

func (so *ServiceOrder) BeforeCreate(tx *gorm.DB) error {
	if so.ID == "" {
		so.ID = uuid.New().String()
	}
	if so.Status == "" {
		so.Status = ServiceOrderStatusPlanned
	}
	if so.ScheduledDate.IsZero() {
		so.ScheduledDate = time.Now().UTC()
	}
	return nil
}

// IsDone проверяет, завершён ли осмотр
func (so *ServiceOrder) IsDone() bool {
	return so.Status == ServiceOrderStatusDone
}
