package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseOrderStatus представляет статус заказа на закупку
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusPending   PurchaseOrderStatus = "PENDING"   // Создан, не отправлен поставщику
	PurchaseOrderStatusReceiving PurchaseOrderStatus = "RECEIVING" // Отправлен поставщику, ожидает подтверждения
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "CONFIRMED" // Подтверждён поставщиком по токену
	PurchaseOrderStatusClosed    PurchaseOrderStatus = "CLOSED"    // Все принятые автомобили прошли осмотр
)

var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusPending:   {PurchaseOrderStatusReceiving},
	PurchaseOrderStatusReceiving: {PurchaseOrderStatusConfirmed},
	PurchaseOrderStatusConfirmed: {PurchaseOrderStatusClosed},
	PurchaseOrderStatusClosed:    {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	for _, allowed := range purchaseOrderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PurchaseOrder представляет заказ поставщику на партию автомобилей
type PurchaseOrder struct {
	ID         string              `json:"id" gorm:"type:uuid;primaryKey"`
	PONo       string              `json:"po_no" gorm:"type:varchar(100);uniqueIndex;not null"` // PO-20260830...
	SupplierID string              `json:"supplier_id" gorm:"type:uuid;not null;index"`
	Supplier   *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status     PurchaseOrderStatus `json:"status" gorm:"type:varchar(30);default:'PENDING';index"`
	OrderDate  time.Time           `json:"order_date" gorm:"not null;index"`

	// Сумма заказа фиксируется при создании и не пересчитывается
	// автоматически после частичной приёмки или возврата
	TotalAmount float64 `json:"total_amount" gorm:"type:decimal(15,2);not null;default:0"`

	// Заявка клиента, из которой создан заказ (если есть)
	RequestID *string `json:"request_id" gorm:"type:uuid;index"`

	// Optimistic concurrency
	Version int `json:"version" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// BeforeCreate генерирует UUID и устанавливает значения по умолчанию
func (po *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if po.ID == "" {
		po.ID = uuid.New().String()
	}
	if po.Status == "" {
		po.Status = PurchaseOrderStatusPending
	}
	if po.OrderDate.IsZero() {
		po.OrderDate = time.Now().UTC()
	}
	return nil
}

// IsConfirmed проверяет, подтверждён ли заказ поставщиком
func (po *PurchaseOrder) IsConfirmed() bool {
	return po.Status == PurchaseOrderStatusConfirmed
}

// IsClosed проверяет, закрыт ли заказ
func (po *PurchaseOrder) IsClosed() bool {
	return po.Status == PurchaseOrderStatusClosed
}

// CalculateTotalAmount пересчитывает сумму заказа из позиций
func (po *PurchaseOrder) CalculateTotalAmount() float64 {
	total := 0.0
	for _, item := range po.Items {
		total = Round2(total + item.LineTotal)
	}
	return total
}

// TotalOrderedQty возвращает общее заказанное количество автомобилей
func (po *PurchaseOrder) TotalOrderedQty() int {
	qty := 0
	for _, item := range po.Items {
		qty += item.Qty
	}
	return qty
}

// PurchaseOrderItem представляет позицию заказа: модель, количество, цена
type PurchaseOrderItem struct {
	ID              string         `json:"id" gorm:"type:uuid;primaryKey"`
	PurchaseOrderID string         `json:"purchase_order_id" gorm:"type:uuid;not null;index"`
	ModelID         string         `json:"model_id" gorm:"type:uuid;not null;index"`
	Model           *VehicleModel  `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	Qty             int            `json:"qty" gorm:"not null"`
	UnitPrice       float64        `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	LineTotal       float64        `json:"line_total" gorm:"type:decimal(15,2);not null"`
	PreferredColor  string         `json:"preferred_color" gorm:"type:varchar(50)"` // Цвет из заявки клиента
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// BeforeCreate генерирует UUID и рассчитывает стоимость позиции
func (poi *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	if poi.ID == "" {
		poi.ID = uuid.New().String()
	}
	if poi.LineTotal == 0 {
		poi.LineTotal = LineTotal(poi.Qty, poi.UnitPrice)
	}
	return nil
}
