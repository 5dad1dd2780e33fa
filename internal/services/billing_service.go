package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// BillingService ведёт расчёты с клиентами: счета, поступления
// и распределение поступлений по счетам. Статус счёта всегда
// вычисляется из баланса и не задаётся напрямую.
type BillingService struct {
	db             *gorm.DB
	audit          *AuditService
	defaultTaxRate float64 // НДС по умолчанию для ручных счетов без явного налога
}

// NewBillingService создает новый экземпляр BillingService
func NewBillingService(db *gorm.DB, audit *AuditService, defaultTaxRate float64) *BillingService {
	return &BillingService{
		db:             db,
		audit:          audit,
		defaultTaxRate: defaultTaxRate,
	}
}

// InvoiceItemInput представляет позицию ручного счёта
type InvoiceItemInput struct {
	Description string  `json:"description"`
	Qty         int     `json:"qty" binding:"required"`
	UnitPrice   float64 `json:"unit_price" binding:"required"`
}

// AllocationLineInput представляет строку распределения поступления
type AllocationLineInput struct {
	InvoiceID string  `json:"invoice_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required"`
}

// GetInvoices возвращает список счетов
func (s *BillingService) GetInvoices(status string, customerID string, limit int) ([]models.Invoice, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Invoice{}).
		Preload("Customer").
		Preload("Items").
		Preload("Allocations").
		Order("issued_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения счетов: %w", err)
	}
	return invoices, nil
}

// GetInvoice возвращает счёт по ID
func (s *BillingService) GetInvoice(invoiceID string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.Preload("Customer").Preload("Items").Preload("Allocations").
		First(&invoice, "id = ?", invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: счёт %s", ErrNotFound, invoiceID)
		}
		return nil, fmt.Errorf("ошибка получения счёта: %w", err)
	}
	return &invoice, nil
}

// CreateInvoice создает ручной счёт (вне заказа на продажу)
func (s *BillingService) CreateInvoice(customerID string, items []InvoiceItemInput, discount, tax float64) (*models.Invoice, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: счёт без позиций", ErrBadRequest)
	}

	var customer models.Customer
	if err := s.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("ошибка проверки клиента: %w", err)
	}

	invoice := &models.Invoice{
		InvoiceNo:  NewDocNo("INV"),
		CustomerID: customerID,
		Status:     models.InvoiceStatusIssued,
		Discount:   models.Round2(discount),
		Tax:        models.Round2(tax),
	}

	subtotal := 0.0
	for _, item := range items {
		if item.Qty <= 0 || item.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: количество и цена должны быть положительными", ErrBadRequest)
		}
		lineTotal := models.LineTotal(item.Qty, item.UnitPrice)
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			Description: item.Description,
			Qty:         item.Qty,
			UnitPrice:   models.Round2(item.UnitPrice),
			LineTotal:   lineTotal,
		})
		subtotal = models.Round2(subtotal + lineTotal)
	}

	// Если налог не указан явно, начисляем НДС по ставке из конфигурации
	if tax == 0 && s.defaultTaxRate > 0 {
		invoice.Tax = models.Round2(subtotal * s.defaultTaxRate)
	}
	invoice.RecalculateTotals()

	if err := s.db.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("Invoice", invoice.ID, "CREATE", "", string(invoice.Status), "system")
	}
	log.Printf("✅ Выставлен счёт %s на сумму %.2f", invoice.InvoiceNo, invoice.GrandTotal)
	return invoice, nil
}

// UpdateInvoice обновляет скидку/налог счёта. После первого
// распределения денег счёт неизменяем.
func (s *BillingService) UpdateInvoice(invoiceID string, discount, tax float64) (*models.Invoice, error) {
	invoice, err := s.GetInvoice(invoiceID)
	if err != nil {
		return nil, err
	}

	if len(invoice.Allocations) > 0 {
		return nil, fmt.Errorf("%w: по счёту %s уже есть оплаты, изменение запрещено", ErrConflict, invoice.InvoiceNo)
	}

	invoice.Discount = models.Round2(discount)
	invoice.Tax = models.Round2(tax)
	invoice.GrandTotal = models.GrandTotal(invoice.Subtotal, invoice.Discount, invoice.Tax)

	res := s.db.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version).
		Updates(map[string]interface{}{
			"discount":    invoice.Discount,
			"tax":         invoice.Tax,
			"grand_total": invoice.GrandTotal,
			"version":     invoice.Version + 1,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("ошибка обновления счёта: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: счёт %s изменён параллельным запросом", ErrConflict, invoice.InvoiceNo)
	}

	if s.audit != nil {
		s.audit.Record("Invoice", invoice.ID, "UPDATE", "", "", "system")
	}
	return s.GetInvoice(invoice.ID)
}

// DeleteInvoice удаляет счёт. После первого распределения денег
// счёт неизменяем.
func (s *BillingService) DeleteInvoice(invoiceID string) error {
	invoice, err := s.GetInvoice(invoiceID)
	if err != nil {
		return err
	}

	if len(invoice.Allocations) > 0 {
		return fmt.Errorf("%w: по счёту %s уже есть оплаты, удаление запрещено", ErrConflict, invoice.InvoiceNo)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка удаления позиций счёта: %w", err)
	}
	if err := tx.Delete(invoice).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка удаления счёта: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("ошибка коммита: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("Invoice", invoice.ID, "DELETE", string(invoice.Status), "", "system")
	}
	return nil
}

// GetPayments возвращает список поступлений
func (s *BillingService) GetPayments(customerID string, limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Payment{}).
		Preload("Customer").
		Preload("Allocations").
		Order("payment_date DESC").
		Limit(limit)

	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var payments []models.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения поступлений: %w", err)
	}
	return payments, nil
}

// GetPayment возвращает поступление по ID
func (s *BillingService) GetPayment(paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Preload("Customer").Preload("Allocations").Preload("Allocations.Invoice").
		First(&payment, "id = ?", paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: поступление %s", ErrNotFound, paymentID)
		}
		return nil, fmt.Errorf("ошибка получения поступления: %w", err)
	}
	return &payment, nil
}

// CreatePayment регистрирует поступление денег от клиента
func (s *BillingService) CreatePayment(customerID string, amount float64, method models.PaymentMethod, notes string) (*models.Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: сумма поступления должна быть положительной", ErrBadRequest)
	}

	var customer models.Customer
	if err := s.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("ошибка проверки клиента: %w", err)
	}

	payment := &models.Payment{
		ReceiptNo:  NewDocNo("RCPT"),
		CustomerID: customerID,
		Method:     method,
		Amount:     models.Round2(amount),
		Notes:      notes,
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания поступления: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("Payment", payment.ID, "CREATE", "", payment.ReceiptNo, "system")
	}
	log.Printf("💰 Зарегистрировано поступление %s на сумму %.2f", payment.ReceiptNo, payment.Amount)
	return payment, nil
}

// AllocatePayment распределяет поступление по счетам. Строка не может
// превышать ни нераспределённый остаток поступления, ни остаток к оплате
// по счёту; счёт другого клиента — конфликт. Статусы счетов
// пересчитываются из баланса. Все строки коммитятся атомарно.
func (s *BillingService) AllocatePayment(paymentID string, lines []AllocationLineInput) (*models.Payment, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: не указано ни одной строки распределения", ErrBadRequest)
	}

	payment, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}

	requested := 0.0
	for _, line := range lines {
		if line.Amount <= 0 {
			return nil, fmt.Errorf("%w: сумма распределения должна быть положительной", ErrBadRequest)
		}
		requested = models.Round2(requested + line.Amount)
	}
	if requested > payment.RemainingAmount() {
		return nil, fmt.Errorf("%w: запрошено %.2f, нераспределённый остаток поступления %.2f",
			ErrConflict, requested, payment.RemainingAmount())
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	batch := s.audit.NewBatch()
	for _, line := range lines {
		var invoice models.Invoice
		if err := tx.Preload("Allocations").First(&invoice, "id = ?", line.InvoiceID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: счёт %s", ErrNotFound, line.InvoiceID)
			}
			return nil, fmt.Errorf("ошибка чтения счёта: %w", err)
		}

		if invoice.CustomerID != payment.CustomerID {
			tx.Rollback()
			return nil, fmt.Errorf("%w: счёт %s принадлежит другому клиенту", ErrConflict, invoice.InvoiceNo)
		}

		amount := models.Round2(line.Amount)
		due := invoice.DueAmount()
		if amount > due {
			tx.Rollback()
			return nil, fmt.Errorf("%w: распределение %.2f превышает остаток %.2f по счёту %s",
				ErrConflict, amount, due, invoice.InvoiceNo)
		}

		allocation := models.PaymentAllocation{
			PaymentID:     payment.ID,
			InvoiceID:     invoice.ID,
			AmountApplied: amount,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка создания распределения: %w", err)
		}

		newAllocated := models.Round2(invoice.AllocatedAmount() + amount)
		newStatus := models.DeriveInvoiceStatus(invoice.GrandTotal, newAllocated)

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version).
			Updates(map[string]interface{}{
				"status":  newStatus,
				"version": invoice.Version + 1,
			})
		if res.Error != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка обновления статуса счёта: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: счёт %s изменён параллельным запросом", ErrConflict, invoice.InvoiceNo)
		}

		batch.RecordStatusChange("Invoice", invoice.ID, string(invoice.Status), string(newStatus), "system")
	}

	// CAS по версии поступления закрывает гонку двух параллельных распределений
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Update("version", payment.Version+1)
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления поступления: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: поступление %s изменено параллельным запросом", ErrConflict, payment.ReceiptNo)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита распределения: %w", err)
	}
	batch.Flush()

	log.Printf("💰 Поступление %s распределено: %d строк на сумму %.2f", payment.ReceiptNo, len(lines), requested)
	return s.GetPayment(payment.ID)
}
