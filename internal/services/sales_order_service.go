package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// SalesOrderService управляет жизненным циклом заказа на продажу:
// создание, подтверждение договора клиентом, подтверждение оплаты,
// выставление счёта
type SalesOrderService struct {
	db            *gorm.DB
	inventory     *InventoryService
	allotments    *AllotmentService
	mail          *MailService
	audit         *AuditService
	publicBaseURL string
}

// NewSalesOrderService создает новый экземпляр SalesOrderService
func NewSalesOrderService(db *gorm.DB, inventory *InventoryService, allotments *AllotmentService, mail *MailService, audit *AuditService, publicBaseURL string) *SalesOrderService {
	return &SalesOrderService{
		db:            db,
		inventory:     inventory,
		allotments:    allotments,
		mail:          mail,
		audit:         audit,
		publicBaseURL: publicBaseURL,
	}
}

// SOItemInput представляет позицию создаваемого заказа на продажу.
// Если цена не указана, берётся цена продажи автомобиля.
type SOItemInput struct {
	VehicleID string  `json:"vehicle_id" binding:"required"`
	UnitPrice float64 `json:"unit_price"`
}

// GetSalesOrders возвращает список заказов на продажу
func (s *SalesOrderService) GetSalesOrders(status string, customerID string, limit int) ([]models.SalesOrder, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.SalesOrder{}).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Vehicle").
		Order("created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var orders []models.SalesOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения заказов на продажу: %w", err)
	}
	return orders, nil
}

// GetSalesOrder возвращает заказ на продажу по ID
func (s *SalesOrderService) GetSalesOrder(soID string) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := s.db.Preload("Customer").
		Preload("Items").Preload("Items.Vehicle").Preload("Items.Vehicle.Model").
		First(&order, "id = ?", soID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: заказ на продажу %s", ErrNotFound, soID)
		}
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}
	return &order, nil
}

// CreateSalesOrder создает заказ на продажу. Два пути:
// из заявки клиента (единственная позиция должна совпадать с закреплённым
// за заявкой автомобилем) и прямая продажа (автомобиль со склада или
// из резерва этого же клиента). Автомобили переходят в ALLOCATED.
func (s *SalesOrderService) CreateSalesOrder(customerID string, items []SOItemInput, requestID *string, discount, tax float64) (*models.SalesOrder, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: заказ без позиций", ErrBadRequest)
	}

	var customer models.Customer
	if err := s.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("ошибка проверки клиента: %w", err)
	}

	var request *models.VehicleRequest
	if requestID != nil {
		var req models.VehicleRequest
		if err := s.db.First(&req, "id = ?", *requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: заявка %s", ErrNotFound, *requestID)
			}
			return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
		}
		request = &req

		if request.CustomerID == nil || *request.CustomerID != customerID {
			return nil, fmt.Errorf("%w: заявка принадлежит другому клиенту", ErrBadRequest)
		}
		if request.VehicleID == nil {
			return nil, fmt.Errorf("%w: за заявкой не закреплён автомобиль", ErrBadRequest)
		}
		if len(items) != 1 || items[0].VehicleID != *request.VehicleID {
			return nil, fmt.Errorf("%w: позиция заказа должна совпадать с автомобилем заявки", ErrBadRequest)
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	order := &models.SalesOrder{
		SONo:       NewDocNo("SO"),
		CustomerID: customerID,
		RequestID:  requestID,
		Status:     models.SalesOrderStatusDraft,
		Discount:   models.Round2(discount),
		Tax:        models.Round2(tax),
	}
	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	batch := s.audit.NewBatch()
	subtotal := 0.0
	for _, in := range items {
		var vehicle models.Vehicle
		if err := tx.First(&vehicle, "id = ?", in.VehicleID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: автомобиль %s", ErrNotFound, in.VehicleID)
			}
			return nil, fmt.Errorf("ошибка чтения автомобиля: %w", err)
		}

		switch vehicle.Status {
		case models.VehicleStatusInStock:
			// Свободный автомобиль, можно продавать
		case models.VehicleStatusReserved:
			if !vehicle.IsReservedFor(customerID) {
				tx.Rollback()
				return nil, fmt.Errorf("%w: автомобиль %s зарезервирован за другим клиентом", ErrConflict, vehicle.VIN)
			}
		default:
			tx.Rollback()
			return nil, fmt.Errorf("%w: автомобиль %s недоступен для продажи (статус %s)", ErrConflict, vehicle.VIN, vehicle.Status)
		}

		if _, err := s.allotments.ReserveTx(tx, order.ID, vehicle.ID, order.SONo, batch); err != nil {
			tx.Rollback()
			return nil, err
		}

		unitPrice := in.UnitPrice
		if unitPrice <= 0 {
			unitPrice = vehicle.SellingPrice
		}
		unitPrice = models.Round2(unitPrice)

		soItem := models.SalesOrderItem{
			SalesOrderID: order.ID,
			VehicleID:    vehicle.ID,
			UnitPrice:    unitPrice,
			LineTotal:    unitPrice,
		}
		if err := tx.Create(&soItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка создания позиции заказа: %w", err)
		}
		subtotal = models.Round2(subtotal + unitPrice)
	}

	order.Subtotal = subtotal
	order.GrandTotal = models.GrandTotal(order.Subtotal, order.Discount, order.Tax)
	if err := tx.Model(order).Updates(map[string]interface{}{
		"subtotal":    order.Subtotal,
		"grand_total": order.GrandTotal,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка пересчёта сумм заказа: %w", err)
	}

	if request != nil {
		if !request.Status.CanTransitionTo(models.VehicleRequestStatusSOCreated) {
			tx.Rollback()
			return nil, fmt.Errorf("%w: заявка в статусе %s", ErrConflict, request.Status)
		}
		if err := tx.Model(request).Updates(map[string]interface{}{
			"status": models.VehicleRequestStatusSOCreated,
			"so_id":  order.ID,
		}).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка обновления заявки: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита заказа: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.Record("SalesOrder", order.ID, "CREATE", "", string(order.Status), "system")
	}

	// Клиент получает ссылку на договор для подтверждения
	if customer.Email != "" {
		contractURL := fmt.Sprintf("%s/api/v1/sales-orders/%s/contract", s.publicBaseURL, order.ID)
		if err := s.mail.SendContractLink(customer.Email, order.SONo, contractURL); err != nil {
			log.Printf("⚠️ Не удалось отправить договор клиенту по заказу %s: %v", order.SONo, err)
		}
	}

	log.Printf("✅ Создан заказ на продажу %s на сумму %.2f", order.SONo, order.GrandTotal)
	return s.GetSalesOrder(order.ID)
}

// CustomerConfirm подтверждает договор со стороны клиента:
// DRAFT → PENDING_PAYMENT, автомобили — в PENDING_PAYMENT.
// Доступен по публичной ссылке без авторизации.
func (s *SalesOrderService) CustomerConfirm(soID string) (*models.SalesOrder, error) {
	order, err := s.GetSalesOrder(soID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(models.SalesOrderStatusPendingPayment) {
		return nil, fmt.Errorf("%w: подтвердить договор можно только по новому заказу (текущий статус: %s)", ErrConflict, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	batch := s.audit.NewBatch()
	for _, item := range order.Items {
		if _, err := s.inventory.TransitionVehicleTx(tx, item.VehicleID, models.VehicleStatusPendingPayment, "", order.SONo, nil, batch); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := tx.Model(&models.SalesOrder{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"status":                models.SalesOrderStatusPendingPayment,
		"contract_confirmed_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка подтверждения договора: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("SalesOrder", order.ID, string(models.SalesOrderStatusDraft), string(models.SalesOrderStatusPendingPayment), "customer")
	}
	log.Printf("✅ Договор по заказу %s подтверждён клиентом", order.SONo)
	return s.GetSalesOrder(order.ID)
}

// ConfirmPayment подтверждает оплату заказа: автомобили продаются,
// выставляется счёт с суммами заказа, заказ завершается.
// Всё в одной транзакции.
func (s *SalesOrderService) ConfirmPayment(soID string) (*models.Invoice, error) {
	order, err := s.GetSalesOrder(soID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(models.SalesOrderStatusCompleted) {
		return nil, fmt.Errorf("%w: подтвердить оплату можно только после подтверждения договора (текущий статус: %s)", ErrConflict, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	batch := s.audit.NewBatch()
	for _, item := range order.Items {
		if _, err := s.inventory.TransitionVehicleTx(tx, item.VehicleID, models.VehicleStatusSold, models.MoveReasonSale, order.SONo, nil, batch); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	invoice, err := s.issueInvoiceTx(tx, order)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Model(&models.SalesOrder{}).
		Where("id = ?", order.ID).
		Update("status", models.SalesOrderStatusCompleted).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка завершения заказа: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("SalesOrder", order.ID, string(models.SalesOrderStatusPendingPayment), string(models.SalesOrderStatusCompleted), "system")
		s.audit.Record("Invoice", invoice.ID, "CREATE", "", string(invoice.Status), "system")
	}
	log.Printf("✅ Оплата по заказу %s подтверждена, выставлен счёт %s", order.SONo, invoice.InvoiceNo)
	return invoice, nil
}

// IssueInvoice выставляет счёт по заказу отдельно от подтверждения оплаты.
// Допустимо для заказов после подтверждения договора; повторное
// выставление по тому же заказу — конфликт.
func (s *SalesOrderService) IssueInvoice(soID string) (*models.Invoice, error) {
	order, err := s.GetSalesOrder(soID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.SalesOrderStatusPendingPayment && order.Status != models.SalesOrderStatusCompleted {
		return nil, fmt.Errorf("%w: счёт выставляется после подтверждения договора (текущий статус: %s)", ErrConflict, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	invoice, err := s.issueInvoiceTx(tx, order)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("Invoice", invoice.ID, "CREATE", "", string(invoice.Status), "system")
	}
	return invoice, nil
}

// issueInvoiceTx создает счёт по заказу. На заказ может существовать
// только один счёт.
func (s *SalesOrderService) issueInvoiceTx(tx *gorm.DB, order *models.SalesOrder) (*models.Invoice, error) {
	var existing int64
	if err := tx.Model(&models.Invoice{}).Where("sales_order_id = ?", order.ID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("ошибка проверки счёта: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: по заказу %s уже выставлен счёт", ErrConflict, order.SONo)
	}

	invoice := &models.Invoice{
		InvoiceNo:    NewDocNo("INV"),
		CustomerID:   order.CustomerID,
		SalesOrderID: &order.ID,
		Status:       models.InvoiceStatusIssued,
		Subtotal:     order.Subtotal,
		Discount:     order.Discount,
		Tax:          order.Tax,
		GrandTotal:   order.GrandTotal,
	}
	if err := tx.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания счёта: %w", err)
	}

	for _, item := range order.Items {
		vehicleID := item.VehicleID
		description := "Автомобиль"
		if item.Vehicle != nil {
			description = fmt.Sprintf("Автомобиль VIN %s", item.Vehicle.VIN)
		}
		invItem := models.InvoiceItem{
			InvoiceID:   invoice.ID,
			VehicleID:   &vehicleID,
			Description: description,
			Qty:         1,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
		if err := tx.Create(&invItem).Error; err != nil {
			return nil, fmt.Errorf("ошибка создания позиции счёта: %w", err)
		}
	}

	return invoice, nil
}
