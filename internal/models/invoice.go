package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceStatus представляет статус счёта. Статус всегда вычисляется
// из баланса распределений и никогда не устанавливается клиентом напрямую.
type InvoiceStatus string

const (
	InvoiceStatusIssued      InvoiceStatus = "ISSUED"       // Выставлен, оплат нет
	InvoiceStatusPaidPartial InvoiceStatus = "PAID_PARTIAL" // Частично оплачен
	InvoiceStatusPaidFull    InvoiceStatus = "PAID_FULL"    // Оплачен полностью
)

// DeriveInvoiceStatus вычисляет статус счёта из суммы распределений:
// due ≤ 0 → PAID_FULL; allocated > 0 → PAID_PARTIAL; иначе ISSUED
func DeriveInvoiceStatus(grandTotal, allocated float64) InvoiceStatus {
	due := Round2(grandTotal - allocated)
	switch {
	case due <= 0:
		return InvoiceStatusPaidFull
	case allocated > 0:
		return InvoiceStatusPaidPartial
	default:
		return InvoiceStatusIssued
	}
}

// Invoice представляет счёт клиенту
type Invoice struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceNo    string        `json:"invoice_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	CustomerID   string        `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer     *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	SalesOrderID *string       `json:"sales_order_id" gorm:"type:uuid;index"` // Заказ-основание (для ручных счетов пусто)
	Status       InvoiceStatus `json:"status" gorm:"type:varchar(30);default:'ISSUED';index"`

	Subtotal   float64 `json:"subtotal" gorm:"type:decimal(15,2);not null;default:0"`
	Discount   float64 `json:"discount" gorm:"type:decimal(15,2);not null;default:0"`
	Tax        float64 `json:"tax" gorm:"type:decimal(15,2);not null;default:0"`
	GrandTotal float64 `json:"grand_total" gorm:"type:decimal(15,2);not null;default:0"`

	// Optimistic concurrency
	Version int `json:"version" gorm:"not null;default:0"`

	IssuedAt  time.Time `json:"issued_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Items       []InvoiceItem       `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Allocations []PaymentAllocation `gorm:"foreignKey:InvoiceID" json:"allocations,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (inv *Invoice) BeforeCreate(tx *gorm.DB) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = InvoiceStatusIssued
	}
	return nil
}

// AllocatedAmount возвращает сумму, уже распределённую на счёт
func (inv *Invoice) AllocatedAmount() float64 {
	total := 0.0
	for _, a := range inv.Allocations {
		total = Round2(total + a.AmountApplied)
	}
	return total
}

// DueAmount возвращает остаток к оплате по счёту
func (inv *Invoice) DueAmount() float64 {
	return Round2(inv.GrandTotal - inv.AllocatedAmount())
}

// RecalculateTotals пересчитывает суммы счёта из позиций
func (inv *Invoice) RecalculateTotals() {
	subtotal := 0.0
	for _, item := range inv.Items {
		subtotal = Round2(subtotal + item.LineTotal)
	}
	inv.Subtotal = subtotal
	inv.GrandTotal = GrandTotal(inv.Subtotal, inv.Discount, inv.Tax)
}

// InvoiceItem представляет позицию счёта
type InvoiceItem struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	InvoiceID   string    `json:"invoice_id" gorm:"type:uuid;not null;index"`
	VehicleID   *string   `json:"vehicle_id" gorm:"type:uuid;index"` // Для ручных счетов может отсутствовать
	Vehicle     *Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	Qty         int       `json:"qty" gorm:"not null;default:1"`
	UnitPrice   float64   `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	LineTotal   float64   `json:"line_total" gorm:"type:decimal(15,2);not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

func (ii *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if ii.ID == "" {
		ii.ID = uuid.New().String()
	}
	if ii.Qty == 0 {
		ii.Qty = 1
	}
	if ii.LineTotal == 0 {
		ii.LineTotal = LineTotal(ii.Qty, ii.UnitPrice)
	}
	return nil
}
