package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleRequestStatus представляет статус заявки клиента на автомобиль
type VehicleRequestStatus string

const (
	VehicleRequestStatusNew       VehicleRequestStatus = "NEW"        // Заявка создана
	VehicleRequestStatusAssigned  VehicleRequestStatus = "ASSIGNED"   // Подобран автомобиль со склада
	VehicleRequestStatusPOCreated VehicleRequestStatus = "PO_CREATED" // Создан заказ поставщику под заявку
	VehicleRequestStatusSOCreated VehicleRequestStatus = "SO_CREATED" // Создан заказ на продажу
	VehicleRequestStatusCancelled VehicleRequestStatus = "CANCELLED"  // Заявка отменена
)

var vehicleRequestTransitions = map[VehicleRequestStatus][]VehicleRequestStatus{
	VehicleRequestStatusNew:       {VehicleRequestStatusAssigned, VehicleRequestStatusPOCreated, VehicleRequestStatusCancelled},
	VehicleRequestStatusAssigned:  {VehicleRequestStatusSOCreated, VehicleRequestStatusCancelled},
	VehicleRequestStatusPOCreated: {VehicleRequestStatusAssigned, VehicleRequestStatusCancelled},
	VehicleRequestStatusSOCreated: {},
	VehicleRequestStatusCancelled: {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s VehicleRequestStatus) CanTransitionTo(target VehicleRequestStatus) bool {
	for _, allowed := range vehicleRequestTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// VehicleRequest представляет заявку клиента на автомобиль.
// Закрывается либо подбором со склада, либо заказом поставщику.
type VehicleRequest struct {
	ID             string               `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerID     *string              `json:"customer_id" gorm:"type:uuid;index"`
	Customer       *Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ModelID        string               `json:"model_id" gorm:"type:uuid;not null;index"`
	Model          *VehicleModel        `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	PreferredColor string               `json:"preferred_color" gorm:"type:varchar(50)"`
	Status         VehicleRequestStatus `json:"status" gorm:"type:varchar(30);default:'NEW';index"`
	VehicleID      *string              `json:"vehicle_id" gorm:"type:uuid;index"` // Подобранный автомобиль
	Vehicle        *Vehicle             `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	POID           *string              `json:"po_id" gorm:"type:uuid;index"`
	SOID           *string              `json:"so_id" gorm:"type:uuid;index"`
	Notes          string               `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time            `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt      time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}

func (VehicleRequest) TableName() string {
	return "vehicle_requests"
}

func (vr *VehicleRequest) BeforeCreate(tx *gorm.DB) error {
	if vr.ID == "" {
		vr.ID = uuid.New().String()
	}
	if vr.Status == "" {
		vr.Status = VehicleRequestStatusNew
	}
	return nil
}
