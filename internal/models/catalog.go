package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Brand представляет марку автомобиля
type Brand struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Country   string    `json:"country" gorm:"type:varchar(100)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Brand) TableName() string {
	return "brands"
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// VehicleModel представляет модель автомобиля в каталоге
type VehicleModel struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	BrandID     string    `json:"brand_id" gorm:"type:uuid;not null;index"`
	Brand       *Brand    `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Name        string    `json:"name" gorm:"type:varchar(150);not null"`
	BodyType    string    `json:"body_type" gorm:"type:varchar(50)"` // sedan, suv, hatchback
	BasePrice   float64   `json:"base_price" gorm:"type:decimal(15,2);not null;default:0"` // Рекомендованная цена продажи
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (VehicleModel) TableName() string {
	return "vehicle_models"
}

func (vm *VehicleModel) BeforeCreate(tx *gorm.DB) error {
	if vm.ID == "" {
		vm.ID = uuid.New().String()
	}
	return nil
}

// Supplier представляет поставщика автомобилей
type Supplier struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Email       string    `json:"email" gorm:"type:varchar(255)"` // Адрес для писем с подтверждением заказов
	Phone       string    `json:"phone" gorm:"type:varchar(50)"`
	Address     string    `json:"address" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// SupplierModel связывает поставщика с моделями, которые он поставляет,
// и закупочной ценой. Используется при создании заказа из заявки клиента.
type SupplierModel struct {
	ID            string        `json:"id" gorm:"type:uuid;primaryKey"`
	SupplierID    string        `json:"supplier_id" gorm:"type:uuid;not null;index:idx_supplier_model,unique"`
	Supplier      *Supplier     `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ModelID       string        `json:"model_id" gorm:"type:uuid;not null;index:idx_supplier_model,unique"`
	Model         *VehicleModel `gorm:"foreignKey:ModelID" json:"model,omitempty"`
	PurchasePrice float64       `json:"purchase_price" gorm:"type:decimal(15,2);not null"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

func (SupplierModel) TableName() string {
	return "supplier_models"
}

func (sm *SupplierModel) BeforeCreate(tx *gorm.DB) error {
	if sm.ID == "" {
		sm.ID = uuid.New().String()
	}
	return nil
}

// Warehouse представляет склад/площадку салона
type Warehouse struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(150);not null"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Warehouse) TableName() string {
	return "warehouses"
}

func (w *Warehouse) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	return nil
}

// Customer представляет покупателя
type Customer struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);index"`
	Phone     string    `json:"phone" gorm:"type:varchar(50);index"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
