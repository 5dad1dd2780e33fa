package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// CatalogService управляет справочниками: марки, модели, поставщики,
// склады и клиенты.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService создает новый экземпляр CatalogService
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetBrands возвращает список марок
func (s *CatalogService) GetBrands() ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.db.Order("name").Find(&brands).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения марок: %w", err)
	}
	return brands, nil
}

// CreateBrand создает марку
func (s *CatalogService) CreateBrand(brand *models.Brand) error {
	if strings.TrimSpace(brand.Name) == "" {
		return fmt.Errorf("%w: название марки обязательно", ErrBadRequest)
	}
	if err := s.db.Create(brand).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return fmt.Errorf("%w: марка %s уже существует", ErrConflict, brand.Name)
		}
		return fmt.Errorf("ошибка создания марки: %w", err)
	}
	log.Printf("✅ Создана марка: %s", brand.Name)
	return nil
}

// GetModels возвращает список моделей, опционально по марке
func (s *CatalogService) GetModels(brandID string) ([]models.VehicleModel, error) {
	query := s.db.Preload("Brand").Order("name")
	if brandID != "" {
		query = query.Where("brand_id = ?", brandID)
	}

	var vehicleModels []models.VehicleModel
	if err := query.Find(&vehicleModels).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения моделей: %w", err)
	}
	return vehicleModels, nil
}

// CreateModel создает модель автомобиля
func (s *CatalogService) CreateModel(model *models.VehicleModel) error {
	if strings.TrimSpace(model.Name) == "" {
		return fmt.Errorf("%w: название модели обязательно", ErrBadRequest)
	}
	var brand models.Brand
	if err := s.db.First(&brand, "id = ?", model.BrandID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: марка %s", ErrNotFound, model.BrandID)
		}
		return fmt.Errorf("ошибка проверки марки: %w", err)
	}
	if err := s.db.Create(model).Error; err != nil {
		return fmt.Errorf("ошибка создания модели: %w", err)
	}
	log.Printf("✅ Создана модель: %s %s", brand.Name, model.Name)
	return nil
}

// GetSuppliers возвращает список поставщиков
func (s *CatalogService) GetSuppliers() ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := s.db.Order("name").Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения поставщиков: %w", err)
	}
	return suppliers, nil
}

// CreateSupplier создает поставщика
func (s *CatalogService) CreateSupplier(supplier *models.Supplier) error {
	if strings.TrimSpace(supplier.Name) == "" {
		return fmt.Errorf("%w: название поставщика обязательно", ErrBadRequest)
	}
	if err := s.db.Create(supplier).Error; err != nil {
		return fmt.Errorf("ошибка создания поставщика: %w", err)
	}
	log.Printf("✅ Создан поставщик: %s", supplier.Name)
	return nil
}

// SetSupplierModel привязывает модель к поставщику с закупочной ценой.
// Повторный вызов обновляет цену.
func (s *CatalogService) SetSupplierModel(supplierID, modelID string, purchasePrice float64) (*models.SupplierModel, error) {
	if purchasePrice <= 0 {
		return nil, fmt.Errorf("%w: закупочная цена должна быть положительной", ErrBadRequest)
	}

	var supplier models.Supplier
	if err := s.db.First(&supplier, "id = ?", supplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: поставщик %s", ErrNotFound, supplierID)
		}
		return nil, fmt.Errorf("ошибка проверки поставщика: %w", err)
	}
	var model models.VehicleModel
	if err := s.db.First(&model, "id = ?", modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: модель %s", ErrNotFound, modelID)
		}
		return nil, fmt.Errorf("ошибка проверки модели: %w", err)
	}

	var link models.SupplierModel
	err := s.db.Where("supplier_id = ? AND model_id = ?", supplierID, modelID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		link = models.SupplierModel{
			SupplierID:    supplierID,
			ModelID:       modelID,
			PurchasePrice: models.Round2(purchasePrice),
		}
		if err := s.db.Create(&link).Error; err != nil {
			return nil, fmt.Errorf("ошибка привязки модели к поставщику: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("ошибка проверки привязки: %w", err)
	} else {
		link.PurchasePrice = models.Round2(purchasePrice)
		if err := s.db.Model(&link).Update("purchase_price", link.PurchasePrice).Error; err != nil {
			return nil, fmt.Errorf("ошибка обновления закупочной цены: %w", err)
		}
	}

	log.Printf("✅ Поставщик %s поставляет %s по цене %.2f", supplier.Name, model.Name, link.PurchasePrice)
	return &link, nil
}

// GetSupplierModels возвращает модели, поставляемые поставщиком
func (s *CatalogService) GetSupplierModels(supplierID string) ([]models.SupplierModel, error) {
	var links []models.SupplierModel
	err := s.db.Preload("Model").Preload("Model.Brand").
		Where("supplier_id = ?", supplierID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения моделей поставщика: %w", err)
	}
	return links, nil
}

// GetWarehouses возвращает список складов
func (s *CatalogService) GetWarehouses() ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	if err := s.db.Order("name").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения складов: %w", err)
	}
	return warehouses, nil
}

// CreateWarehouse создает склад
func (s *CatalogService) CreateWarehouse(warehouse *models.Warehouse) error {
	if strings.TrimSpace(warehouse.Name) == "" {
		return fmt.Errorf("%w: название склада обязательно", ErrBadRequest)
	}
	if err := s.db.Create(warehouse).Error; err != nil {
		return fmt.Errorf("ошибка создания склада: %w", err)
	}
	log.Printf("✅ Создан склад: %s", warehouse.Name)
	return nil
}

// GetCustomers возвращает список клиентов, опционально с поиском
func (s *CatalogService) GetCustomers(search string, limit int) ([]models.Customer, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Order("name").Limit(limit)
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", pattern, pattern, pattern)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения клиентов: %w", err)
	}
	return customers, nil
}

// GetCustomer возвращает клиента по ID
func (s *CatalogService) GetCustomer(customerID string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("ошибка получения клиента: %w", err)
	}
	return &customer, nil
}

// CreateCustomer создает клиента
func (s *CatalogService) CreateCustomer(customer *models.Customer) error {
	if strings.TrimSpace(customer.Name) == "" {
		return fmt.Errorf("%w: имя клиента обязательно", ErrBadRequest)
	}
	if err := s.db.Create(customer).Error; err != nil {
		return fmt.Errorf("ошибка создания клиента: %w", err)
	}
	log.Printf("✅ Создан клиент: %s", customer.Name)
	return nil
}
