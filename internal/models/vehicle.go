package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleStatus представляет статус автомобиля на складе
type VehicleStatus string

const (
	VehicleStatusUnderInspection VehicleStatus = "UNDER_INSPECTION" // Принят, ожидает осмотра
	VehicleStatusInStock         VehicleStatus = "IN_STOCK"         // Осмотр пройден, доступен для продажи
	VehicleStatusReserved        VehicleStatus = "RESERVED"         // Зарезервирован под заявку клиента
	VehicleStatusAllocated       VehicleStatus = "ALLOCATED"        // Закреплён за заказом на продажу
	VehicleStatusPendingPayment  VehicleStatus = "PENDING_PAYMENT"  // Договор подтверждён, ожидает оплаты
	VehicleStatusSold            VehicleStatus = "SOLD"             // Продан (терминальный)
	VehicleStatusReturned        VehicleStatus = "RETURNED"         // Возвращён поставщику (терминальный)
)

// vehicleTransitions — таблица разрешённых переходов статуса.
// Любой переход вне таблицы — конфликт, статус не меняется.
var vehicleTransitions = map[VehicleStatus][]VehicleStatus{
	VehicleStatusUnderInspection: {VehicleStatusInStock, VehicleStatusReturned},
	VehicleStatusInStock:         {VehicleStatusReserved, VehicleStatusAllocated},
	VehicleStatusReserved:        {VehicleStatusAllocated, VehicleStatusInStock},
	VehicleStatusAllocated:       {VehicleStatusPendingPayment, VehicleStatusInStock},
	VehicleStatusPendingPayment:  {VehicleStatusSold},
	VehicleStatusSold:            {},
	VehicleStatusReturned:        {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s VehicleStatus) CanTransitionTo(target VehicleStatus) bool {
	for _, allowed := range vehicleTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal проверяет, является ли статус терминальным
func (s VehicleStatus) IsTerminal() bool {
	return len(vehicleTransitions[s]) == 0
}

// Vehicle представляет единицу товара — конкретный автомобиль
type Vehicle struct {
	ID                 string        `json:"id" gorm:"type:uuid;primaryKey"`
	ModelID            string        `json:"model_id" gorm:"type:uuid;not null;index"`
	Model              *VehicleModel `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	VIN                string        `json:"vin" gorm:"type:varchar(64);uniqueIndex;not null"`
	EngineNo           string        `json:"engine_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	Color              string        `json:"color" gorm:"type:varchar(50)"`
	Year               int           `json:"year" gorm:"not null"`
	Status             VehicleStatus `json:"status" gorm:"type:varchar(30);default:'UNDER_INSPECTION';index"`
	CurrentWarehouseID string        `json:"current_warehouse_id" gorm:"type:uuid;index"`
	Warehouse          *Warehouse    `gorm:"foreignKey:CurrentWarehouseID" json:"warehouse,omitempty"`

	// Цены
	LandedCost   float64 `json:"landed_cost" gorm:"type:decimal(15,2);not null;default:0"`   // Себестоимость при приёмке
	SellingPrice float64 `json:"selling_price" gorm:"type:decimal(15,2);not null;default:0"` // Цена продажи (из модели)

	// Резерв под заявку клиента (статус RESERVED)
	ReservedRequestID     *string `json:"reserved_request_id" gorm:"type:uuid;index"`
	ReservedForCustomerID *string `json:"reserved_for_customer_id" gorm:"type:uuid;index"`

	// Optimistic concurrency: каждый переход выполняется через CAS по версии
	Version int `json:"version" gorm:"not null;default:0"`

	AcquiredAt time.Time `json:"acquired_at" gorm:"autoCreateTime;index"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

// BeforeCreate генерирует UUID и устанавливает статус по умолчанию
func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Status == "" {
		v.Status = VehicleStatusUnderInspection
	}
	return nil
}

// IsInStock проверяет, доступен ли автомобиль для продажи
func (v *Vehicle) IsInStock() bool {
	return v.Status == VehicleStatusInStock
}

// IsSold проверяет, продан ли автомобиль
func (v *Vehicle) IsSold() bool {
	return v.Status == VehicleStatusSold
}

// IsReservedFor проверяет, зарезервирован ли автомобиль за данным клиентом
func (v *Vehicle) IsReservedFor(customerID string) bool {
	return v.Status == VehicleStatusReserved &&
		v.ReservedForCustomerID != nil && *v.ReservedForCustomerID == customerID
}

// InventoryMoveReason представляет причину движения по складу
type InventoryMoveReason string

const (
	MoveReasonReceive            InventoryMoveReason = "RECEIVE"             // Приёмка от поставщика
	MoveReasonInspectionApproved InventoryMoveReason = "INSPECTION_APPROVED" // Осмотр пройден
	MoveReasonReturn             InventoryMoveReason = "RETURN"              // Возврат поставщику
	MoveReasonReserve            InventoryMoveReason = "RESERVE"             // Резерв под заказ
	MoveReasonRelease            InventoryMoveReason = "RELEASE"             // Снятие резерва
	MoveReasonSale               InventoryMoveReason = "SALE"                // Продажа
	MoveReasonTransfer           InventoryMoveReason = "TRANSFER"            // Перемещение между складами
)

// InventoryMove представляет запись в журнале движений автомобиля.
// Журнал только дополняется, записи не изменяются и не удаляются.
type InventoryMove struct {
	ID              string              `json:"id" gorm:"type:uuid;primaryKey"`
	VehicleID       string              `json:"vehicle_id" gorm:"type:uuid;not null;index"`
	Vehicle         *Vehicle            `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	FromWarehouseID *string             `json:"from_warehouse_id" gorm:"type:uuid"`
	ToWarehouseID   *string             `json:"to_warehouse_id" gorm:"type:uuid"`
	Reason          InventoryMoveReason `json:"reason" gorm:"type:varchar(30);not null;index"`
	RefDocNo        string              `json:"ref_doc_no" gorm:"type:varchar(100)"` // Номер документа-основания (GR/GRT/SO)
	CreatedAt       time.Time           `json:"created_at" gorm:"autoCreateTime;index"`
}

func (InventoryMove) TableName() string {
	return "inventory_moves"
}

func (m *InventoryMove) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
