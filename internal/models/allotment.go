package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllotmentStatus представляет статус резерва автомобиля
type AllotmentStatus string

const (
	AllotmentStatusReserved AllotmentStatus = "RESERVED" // Автомобиль закреплён за заказом
	AllotmentStatusReleased AllotmentStatus = "RELEASED" // Резерв снят
)

// Allotment представляет эксклюзивный резерв одного автомобиля
// под один заказ на продажу. На автомобиль одновременно существует
// не более одного активного резерва (частичный уникальный индекс).
type Allotment struct {
	ID           string          `json:"id" gorm:"type:uuid;primaryKey"`
	SalesOrderID string          `json:"sales_order_id" gorm:"type:uuid;not null;index"`
	SalesOrder   *SalesOrder     `gorm:"foreignKey:SalesOrderID" json:"sales_order,omitempty"`
	VehicleID    string          `json:"vehicle_id" gorm:"type:uuid;not null;index:idx_allotments_active,unique,where:status = 'RESERVED'"`
	Vehicle      *Vehicle        `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Status       AllotmentStatus `json:"status" gorm:"type:varchar(30);default:'RESERVED';index"`
	ReservedAt   time.Time       `json:"reserved_at" gorm:"autoCreateTime;index"`
	ReleasedAt   *time.Time      `json:"released_at"`
	CreatedAt    time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Allotment) TableName() string {
	return "allotments"
}

func (a *Allotment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = AllotmentStatusReserved
	}
	return nil
}

// IsReserved проверяет, активен ли резерв
func (a *Allotment) IsReserved() bool {
	return a.Status == AllotmentStatusReserved
}
