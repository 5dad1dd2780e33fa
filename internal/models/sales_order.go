package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SalesOrderStatus представляет статус заказа на продажу
type SalesOrderStatus string

const (
	SalesOrderStatusDraft          SalesOrderStatus = "DRAFT"           // Создан, договор не подтверждён
	SalesOrderStatusPendingPayment SalesOrderStatus = "PENDING_PAYMENT" // Договор подтверждён клиентом
	SalesOrderStatusCompleted      SalesOrderStatus = "COMPLETED"       // Оплата подтверждена, счёт выставлен
)

var salesOrderTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusDraft:          {SalesOrderStatusPendingPayment},
	SalesOrderStatusPendingPayment: {SalesOrderStatusCompleted},
	SalesOrderStatusCompleted:      {},
}

// CanTransitionTo проверяет допустимость перехода статуса
func (s SalesOrderStatus) CanTransitionTo(target SalesOrderStatus) bool {
	for _, allowed := range salesOrderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SalesOrder представляет заказ клиента на покупку автомобилей
type SalesOrder struct {
	ID         string           `json:"id" gorm:"type:uuid;primaryKey"`
	SONo       string           `json:"so_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	CustomerID string           `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer   *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	RequestID  *string          `json:"request_id" gorm:"type:uuid;index"` // Заявка клиента (если заказ из заявки)
	Status     SalesOrderStatus `json:"status" gorm:"type:varchar(30);default:'DRAFT';index"`

	Subtotal   float64 `json:"subtotal" gorm:"type:decimal(15,2);not null;default:0"`
	Discount   float64 `json:"discount" gorm:"type:decimal(15,2);not null;default:0"`
	Tax        float64 `json:"tax" gorm:"type:decimal(15,2);not null;default:0"`
	GrandTotal float64 `json:"grand_total" gorm:"type:decimal(15,2);not null;default:0"`

	ContractConfirmedAt *time.Time `json:"contract_confirmed_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Items []SalesOrderItem `gorm:"foreignKey:SalesOrderID" json:"items,omitempty"`
}

func (SalesOrder) TableName() string {
	return "sales_orders"
}

func (so *SalesOrder) BeforeCreate(tx *gorm.DB) error {
	if so.ID == "" {
		so.ID = uuid.New().String()
	}
	if so.Status == "" {
		so.Status = SalesOrderStatusDraft
	}
	return nil
}

// IsCompleted проверяет, завершён ли заказ
func (so *SalesOrder) IsCompleted() bool {
	return so.Status == SalesOrderStatusCompleted
}

// RecalculateTotals пересчитывает суммы заказа из позиций
func (so *SalesOrder) RecalculateTotals() {
	subtotal := 0.0
	for _, item := range so.Items {
		subtotal = Round2(subtotal + item.LineTotal)
	}
	so.Subtotal = subtotal
	so.GrandTotal = GrandTotal(so.Subtotal, so.Discount, so.Tax)
}

// SalesOrderItem представляет позицию заказа — конкретный автомобиль.
// Один автомобиль может входить только в один заказ (уникальный FK).
type SalesOrderItem struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	SalesOrderID string      `json:"sales_order_id" gorm:"type:uuid;not null;index"`
	VehicleID    string      `json:"vehicle_id" gorm:"type:uuid;uniqueIndex;not null"`
	Vehicle      *Vehicle    `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	UnitPrice    float64     `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	LineTotal    float64     `json:"line_total" gorm:"type:decimal(15,2);not null"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

func (SalesOrderItem) TableName() string {
	return "sales_order_items"
}

func (soi *SalesOrderItem) BeforeCreate(tx *gorm.DB) error {
	if soi.ID == "" {
		soi.ID = uuid.New().String()
	}
	if soi.LineTotal == 0 {
		soi.LineTotal = Round2(soi.UnitPrice)
	}
	return nil
}
