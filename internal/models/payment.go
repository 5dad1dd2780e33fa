package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentMethod представляет способ оплаты
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodBank     PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodFinanced PaymentMethod = "FINANCED" // Кредит/лизинг
)

// Payment представляет поступление денег от клиента.
// Одно поступление может распределяться на несколько счетов.
type Payment struct {
	ID          string        `json:"id" gorm:"type:uuid;primaryKey"`
	ReceiptNo   string        `json:"receipt_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	CustomerID  string        `json:"customer_id" gorm:"type:uuid;not null;index"`
	Customer    *Customer     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	PaymentDate time.Time     `json:"payment_date" gorm:"not null;index"`
	Method      PaymentMethod `json:"method" gorm:"type:varchar(30);not null;default:'BANK_TRANSFER'"`
	Amount      float64       `json:"amount" gorm:"type:decimal(15,2);not null"`
	Notes       string        `json:"notes" gorm:"type:text"`

	// Optimistic concurrency
	Version int `json:"version" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Allocations []PaymentAllocation `gorm:"foreignKey:PaymentID" json:"allocations,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	if p.Method == "" {
		p.Method = PaymentMethodBank
	}
	return nil
}

// AllocatedAmount возвращает сумму, уже распределённую из поступления
func (p *Payment) AllocatedAmount() float64 {
	total := 0.0
	for _, a := range p.Allocations {
		total = Round2(total + a.AmountApplied)
	}
	return total
}

// RemainingAmount возвращает нераспределённый остаток поступления
func (p *Payment) RemainingAmount() float64 {
	return Round2(p.Amount - p.AllocatedAmount())
}

// PaymentAllocation представляет распределение части поступления на счёт.
// Сумма распределений по счёту не превышает итог счёта,
// по поступлению — сумму поступления.
type PaymentAllocation struct {
	ID            string    `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID     string    `json:"payment_id" gorm:"type:uuid;not null;index"`
	Payment       *Payment  `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	InvoiceID     string    `json:"invoice_id" gorm:"type:uuid;not null;index"`
	Invoice       *Invoice  `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	AmountApplied float64   `json:"amount_applied" gorm:"type:decimal(15,2);not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}

func (pa *PaymentAllocation) BeforeCreate(tx *gorm.DB) error {
	if pa.ID == "" {
		pa.ID = uuid.New().String()
	}
	return nil
}
