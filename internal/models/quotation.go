package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotationStatus представляет статус коммерческого предложения
type QuotationStatus string

const (
	QuotationStatusSent      QuotationStatus = "SENT"      // Отправлено клиенту
	QuotationStatusConfirmed QuotationStatus = "CONFIRMED" // Подтверждено, создан заказ на продажу
)

// Quotation представляет коммерческое предложение клиенту
type Quotation struct {
	ID         string          `json:"id" gorm:"type:uuid;primaryKey"`
	QuoteNo    string          `json:"quote_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	CustomerID string          `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status     QuotationStatus `json:"status" gorm:"type:varchar(30);default:'SENT';index"`

	Subtotal   float64 `json:"subtotal" gorm:"type:decimal(15,2);not null;default:0"`
	Discount   float64 `json:"discount" gorm:"type:decimal(15,2);not null;default:0"`
	Tax        float64 `json:"tax" gorm:"type:decimal(15,2);not null;default:0"`
	GrandTotal float64 `json:"grand_total" gorm:"type:decimal(15,2);not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID" json:"items,omitempty"`
}

func (Quotation) TableName() string {
	return "quotations"
}

func (q *Quotation) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Status == "" {
		q.Status = QuotationStatusSent
	}
	return nil
}

// IsConfirmed проверяет, подтверждено ли предложение
func (q *Quotation) IsConfirmed() bool {
	return q.Status == QuotationStatusConfirmed
}

// RecalculateTotals пересчитывает суммы предложения из позиций
func (q *Quotation) RecalculateTotals() {
	subtotal := 0.0
	for _, item := range q.Items {
		subtotal = Round2(subtotal + item.LineTotal)
	}
	q.Subtotal = subtotal
	q.GrandTotal = GrandTotal(q.Subtotal, q.Discount, q.Tax)
}

// QuotationItem представляет позицию предложения: модель, количество, цена
type QuotationItem struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey"`
	QuotationID string        `json:"quotation_id" gorm:"type:uuid;not null;index"`
	ModelID     string        `json:"model_id" gorm:"type:uuid;not null;index"`
	Model       *VehicleModel `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	Qty         int           `json:"qty" gorm:"not null"`
	UnitPrice   float64       `json:"unit_price" gorm:"type:decimal(15,2);not null"`
	LineTotal   float64       `json:"line_total" gorm:"type:decimal(15,2);not null"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

func (QuotationItem) TableName() string {
	return "quotation_items"
}

func (qi *QuotationItem) BeforeCreate(tx *gorm.DB) error {
	if qi.ID == "" {
		qi.ID = uuid.New().String()
	}
	if qi.LineTotal == 0 {
		qi.LineTotal = LineTotal(qi.Qty, qi.UnitPrice)
	}
	return nil
}
