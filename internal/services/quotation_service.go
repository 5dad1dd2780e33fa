package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// QuotationService управляет коммерческими предложениями
// и их конвертацией в заказы на продажу
type QuotationService struct {
	db         *gorm.DB
	allotments *AllotmentService
	audit      *AuditService
}

// NewQuotationService создает новый экземпляр QuotationService
func NewQuotationService(db *gorm.DB, allotments *AllotmentService, audit *AuditService) *QuotationService {
	return &QuotationService{
		db:         db,
		allotments: allotments,
		audit:      audit,
	}
}

// QuotationItemInput представляет позицию создаваемого предложения
type QuotationItemInput struct {
	ModelID   string  `json:"model_id" binding:"required"`
	Qty       int     `json:"qty" binding:"required"`
	UnitPrice float64 `json:"unit_price" binding:"required"`
}

// GetQuotations возвращает список предложений
func (s *QuotationService) GetQuotations(status string, customerID string, limit int) ([]models.Quotation, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Quotation{}).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Model").
		Order("created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var quotations []models.Quotation
	if err := query.Find(&quotations).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения предложений: %w", err)
	}
	return quotations, nil
}

// GetQuotation возвращает предложение по ID
func (s *QuotationService) GetQuotation(quoteID string) (*models.Quotation, error) {
	var quote models.Quotation
	err := s.db.Preload("Customer").Preload("Items").Preload("Items.Model").
		First(&quote, "id = ?", quoteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: предложение %s", ErrNotFound, quoteID)
		}
		return nil, fmt.Errorf("ошибка получения предложения: %w", err)
	}
	return &quote, nil
}

// CreateQuotation создает предложение клиенту.
// Суммы считаются с округлением на каждом шаге.
func (s *QuotationService) CreateQuotation(customerID string, items []QuotationItemInput, discount, tax float64) (*models.Quotation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: предложение без позиций", ErrBadRequest)
	}

	var customer models.Customer
	if err := s.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("ошибка проверки клиента: %w", err)
	}

	quote := &models.Quotation{
		QuoteNo:    NewDocNo("Q"),
		CustomerID: customerID,
		Status:     models.QuotationStatusSent,
		Discount:   models.Round2(discount),
		Tax:        models.Round2(tax),
	}

	for _, item := range items {
		if item.Qty <= 0 || item.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: количество и цена должны быть положительными", ErrBadRequest)
		}

		var model models.VehicleModel
		if err := s.db.First(&model, "id = ?", item.ModelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: модель %s", ErrNotFound, item.ModelID)
			}
			return nil, fmt.Errorf("ошибка проверки модели: %w", err)
		}

		quote.Items = append(quote.Items, models.QuotationItem{
			ModelID:   item.ModelID,
			Qty:       item.Qty,
			UnitPrice: models.Round2(item.UnitPrice),
			LineTotal: models.LineTotal(item.Qty, item.UnitPrice),
		})
	}
	quote.RecalculateTotals()

	if err := s.db.Create(quote).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания предложения: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("Quotation", quote.ID, "CREATE", "", string(quote.Status), "system")
	}
	log.Printf("✅ Создано предложение %s на сумму %.2f", quote.QuoteNo, quote.GrandTotal)
	return quote, nil
}

// ConfirmQuotation подтверждает предложение и создает заказ на продажу.
// При autoAllocate на каждую позицию подбираются самые дешёвые и самые
// ранние автомобили со склада (FIFO по дате приёмки); нехватка по любой
// модели отменяет всю операцию. Всё в одной транзакции.
func (s *QuotationService) ConfirmQuotation(quoteID string, autoAllocate bool) (*models.SalesOrder, error) {
	quote, err := s.GetQuotation(quoteID)
	if err != nil {
		return nil, err
	}

	if quote.IsConfirmed() {
		return nil, fmt.Errorf("%w: предложение %s уже подтверждено", ErrConflict, quote.QuoteNo)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	salesOrder := &models.SalesOrder{
		SONo:       NewDocNo("SO"),
		CustomerID: quote.CustomerID,
		Status:     models.SalesOrderStatusDraft,
		Subtotal:   quote.Subtotal,
		Discount:   quote.Discount,
		Tax:        quote.Tax,
		GrandTotal: quote.GrandTotal,
	}
	if err := tx.Create(salesOrder).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания заказа на продажу: %w", err)
	}

	batch := s.audit.NewBatch()
	if autoAllocate {
		for _, item := range quote.Items {
			var vehicles []models.Vehicle
			err := tx.Where("model_id = ? AND status = ?", item.ModelID, models.VehicleStatusInStock).
				Order("selling_price ASC, acquired_at ASC, id ASC").
				Limit(item.Qty).
				Find(&vehicles).Error
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("ошибка подбора автомобилей: %w", err)
			}
			if len(vehicles) < item.Qty {
				tx.Rollback()
				return nil, fmt.Errorf("%w: на складе %d автомобилей модели %s, требуется %d",
					ErrConflict, len(vehicles), item.ModelID, item.Qty)
			}

			for _, vehicle := range vehicles {
				if _, err := s.allotments.ReserveTx(tx, salesOrder.ID, vehicle.ID, salesOrder.SONo, batch); err != nil {
					tx.Rollback()
					return nil, err
				}

				soItem := models.SalesOrderItem{
					SalesOrderID: salesOrder.ID,
					VehicleID:    vehicle.ID,
					UnitPrice:    item.UnitPrice,
					LineTotal:    models.Round2(item.UnitPrice),
				}
				if err := tx.Create(&soItem).Error; err != nil {
					tx.Rollback()
					return nil, fmt.Errorf("ошибка создания позиции заказа: %w", err)
				}
			}
		}
	}

	if err := tx.Model(&models.Quotation{}).
		Where("id = ?", quote.ID).
		Update("status", models.QuotationStatusConfirmed).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка подтверждения предложения: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("Quotation", quote.ID, string(models.QuotationStatusSent), string(models.QuotationStatusConfirmed), "system")
		s.audit.Record("SalesOrder", salesOrder.ID, "CREATE", "", string(salesOrder.Status), "system")
	}
	log.Printf("✅ Предложение %s подтверждено, создан заказ %s", quote.QuoteNo, salesOrder.SONo)

	return salesOrder, nil
}
