package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoodsReceipt представляет приёмку автомобилей по заказу поставщику
type GoodsReceipt struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	GRNo        string         `json:"gr_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	POID        *string        `json:"po_id" gorm:"type:uuid;index"`
	PO          *PurchaseOrder `gorm:"foreignKey:POID" json:"po,omitempty"`
	WarehouseID string         `json:"warehouse_id" gorm:"type:uuid;not null;index"`
	Warehouse   *Warehouse     `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"`
	ReceiptDate time.Time      `json:"receipt_date" gorm:"not null;index"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`

	Items []GoodsReceiptItem `gorm:"foreignKey:GoodsReceiptID" json:"items,omitempty"`
}

func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}

func (gr *GoodsReceipt) BeforeCreate(tx *gorm.DB) error {
	if gr.ID == "" {
		gr.ID = uuid.New().String()
	}
	if gr.ReceiptDate.IsZero() {
		gr.ReceiptDate = time.Now().UTC()
	}
	return nil
}

// GoodsReceiptItem связывает приёмку с созданным автомобилем.
// Один автомобиль принимается ровно один раз.
type GoodsReceiptItem struct {
	ID             string        `json:"id" gorm:"type:uuid;primaryKey"`
	GoodsReceiptID string        `json:"goods_receipt_id" gorm:"type:uuid;not null;index"`
	GoodsReceipt   *GoodsReceipt `gorm:"foreignKey:GoodsReceiptID" json:"goods_receipt,omitempty"`
	VehicleID      string        `json:"vehicle_id" gorm:"type:uuid;uniqueIndex;not null"`
	Vehicle        *Vehicle      `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	LandedCost     float64       `json:"landed_cost" gorm:"type:decimal(15,2);not null"`
	CreatedAt      time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

func (GoodsReceiptItem) TableName() string {
	return "goods_receipt_items"
}

func (gri *GoodsReceiptItem) BeforeCreate(tx *gorm.DB) error {
	if gri.ID == "" {
		gri.ID = uuid.New().String()
	}
	return nil
}
