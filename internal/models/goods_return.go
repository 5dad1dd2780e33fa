package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoodsReturn представляет возврат поставщику автомобилей,
// не прошедших входной осмотр
type GoodsReturn struct {
	ID         string         `json:"id" gorm:"type:uuid;primaryKey"`
	GRTNo      string         `json:"grt_no" gorm:"type:varchar(100);uniqueIndex;not null"`
	POID       string         `json:"po_id" gorm:"type:uuid;not null;index"`
	PO         *PurchaseOrder `gorm:"foreignKey:POID" json:"po,omitempty"`
	SupplierID string         `json:"supplier_id" gorm:"type:uuid;not null;index"`
	Supplier   *Supplier      `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ReturnDate time.Time      `json:"return_date" gorm:"not null;index"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`

	Items []GoodsReturnItem `gorm:"foreignKey:GoodsReturnID" json:"items,omitempty"`
}

func (GoodsReturn) TableName() string {
	return "goods_returns"
}

func (grt *GoodsReturn) BeforeCreate(tx *gorm.DB) error {
	if grt.ID == "" {
		grt.ID = uuid.New().String()
	}
	if grt.ReturnDate.IsZero() {
		grt.ReturnDate = time.Now().UTC()
	}
	return nil
}

// GoodsReturnItem представляет возвращаемый автомобиль с причиной возврата
type GoodsReturnItem struct {
	ID            string       `json:"id" gorm:"type:uuid;primaryKey"`
	GoodsReturnID string       `json:"goods_return_id" gorm:"type:uuid;not null;index"`
	GoodsReturn   *GoodsReturn `gorm:"foreignKey:GoodsReturnID" json:"goods_return,omitempty"`
	VehicleID     string       `json:"vehicle_id" gorm:"type:uuid;not null;index"`
	Vehicle       *Vehicle     `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Reason        string       `json:"reason" gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

func (GoodsReturnItem) TableName() string {
	return "goods_return_items"
}

func (gri *GoodsReturnItem) BeforeCreate(tx *gorm.DB) error {
	if gri.ID == "" {
		gri.ID = uuid.New().String()
	}
	return nil
}
