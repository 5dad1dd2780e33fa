package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// PurchaseOrderService управляет заказами поставщикам:
// создание, отправка с токеном подтверждения, приёмка, закрытие
type PurchaseOrderService struct {
	db            *gorm.DB
	inventory     *InventoryService
	tokens        *POTokenService
	mail          *MailService
	audit         *AuditService
	publicBaseURL string
}

// NewPurchaseOrderService создает новый экземпляр PurchaseOrderService
func NewPurchaseOrderService(db *gorm.DB, inventory *InventoryService, tokens *POTokenService, mail *MailService, audit *AuditService, publicBaseURL string) *PurchaseOrderService {
	return &PurchaseOrderService{
		db:            db,
		inventory:     inventory,
		tokens:        tokens,
		mail:          mail,
		audit:         audit,
		publicBaseURL: publicBaseURL,
	}
}

// POItemInput представляет позицию создаваемого заказа
type POItemInput struct {
	ModelID        string  `json:"model_id" binding:"required"`
	Qty            int     `json:"qty" binding:"required"`
	UnitPrice      float64 `json:"unit_price" binding:"required"`
	PreferredColor string  `json:"preferred_color"`
}

// ReceivedVehicleInput представляет принимаемый автомобиль.
// Если список пуст, VIN и номера двигателей генерируются автоматически.
type ReceivedVehicleInput struct {
	ModelID  string `json:"model_id"`
	VIN      string `json:"vin"`
	EngineNo string `json:"engine_no"`
	Color    string `json:"color"`
	Year     int    `json:"year"`
}

// GetPurchaseOrders возвращает список заказов с фильтрацией по статусу
func (s *PurchaseOrderService) GetPurchaseOrders(status string, supplierID string, limit int) ([]models.PurchaseOrder, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.PurchaseOrder{}).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Model").
		Order("order_date DESC, created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	var orders []models.PurchaseOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения заказов: %w", err)
	}

	return orders, nil
}

// GetPurchaseOrder возвращает заказ по ID
func (s *PurchaseOrderService) GetPurchaseOrder(poID string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.Preload("Supplier").Preload("Items").Preload("Items.Model").
		First(&order, "id = ?", poID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: заказ %s", ErrNotFound, poID)
		}
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}
	return &order, nil
}

// CreatePurchaseOrder создает заказ поставщику.
// Сумма заказа фиксируется как Σ qty×unitPrice по позициям.
func (s *PurchaseOrderService) CreatePurchaseOrder(supplierID string, items []POItemInput, requestID *string) (*models.PurchaseOrder, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: заказ без позиций", ErrBadRequest)
	}

	var supplier models.Supplier
	if err := s.db.First(&supplier, "id = ?", supplierID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: поставщик %s", ErrNotFound, supplierID)
		}
		return nil, fmt.Errorf("ошибка проверки поставщика: %w", err)
	}

	order := &models.PurchaseOrder{
		PONo:       NewDocNo("PO"),
		SupplierID: supplierID,
		Status:     models.PurchaseOrderStatusPending,
		RequestID:  requestID,
	}

	for _, item := range items {
		if item.Qty <= 0 {
			return nil, fmt.Errorf("%w: количество должно быть положительным", ErrBadRequest)
		}
		if item.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: цена должна быть положительной", ErrBadRequest)
		}

		var model models.VehicleModel
		if err := s.db.First(&model, "id = ?", item.ModelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: модель %s", ErrNotFound, item.ModelID)
			}
			return nil, fmt.Errorf("ошибка проверки модели: %w", err)
		}

		order.Items = append(order.Items, models.PurchaseOrderItem{
			ModelID:        item.ModelID,
			Qty:            item.Qty,
			UnitPrice:      models.Round2(item.UnitPrice),
			LineTotal:      models.LineTotal(item.Qty, item.UnitPrice),
			PreferredColor: item.PreferredColor,
		})
	}
	order.TotalAmount = order.CalculateTotalAmount()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("PurchaseOrder", order.ID, "CREATE", "", string(order.Status), "system")
	}
	log.Printf("✅ Создан заказ поставщику: %s на сумму %.2f", order.PONo, order.TotalAmount)
	return order, nil
}

// DeletePurchaseOrder удаляет заказ. Допустимо только для PENDING:
// после отправки поставщику заказ является юридическим документом.
func (s *PurchaseOrderService) DeletePurchaseOrder(poID string) error {
	order, err := s.GetPurchaseOrder(poID)
	if err != nil {
		return err
	}

	if order.Status != models.PurchaseOrderStatusPending {
		return fmt.Errorf("%w: удалять можно только неотправленные заказы (текущий статус: %s)", ErrConflict, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	if err := tx.Where("purchase_order_id = ?", order.ID).Delete(&models.PurchaseOrderItem{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка удаления позиций: %w", err)
	}
	if err := tx.Delete(order).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка удаления заказа: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("ошибка коммита: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("PurchaseOrder", order.ID, "DELETE", string(order.Status), "", "system")
	}
	return nil
}

// SendPurchaseOrder отправляет заказ поставщику: PENDING → RECEIVING,
// выпускает токен подтверждения и шлёт письмо со ссылкой.
// Возвращает токен (для повторной отправки письма вручную).
func (s *PurchaseOrderService) SendPurchaseOrder(poID string) (string, error) {
	order, err := s.GetPurchaseOrder(poID)
	if err != nil {
		return "", err
	}

	if !order.Status.CanTransitionTo(models.PurchaseOrderStatusReceiving) {
		return "", fmt.Errorf("%w: отправить можно только новый заказ (текущий статус: %s)", ErrConflict, order.Status)
	}
	if len(order.Items) == 0 {
		return "", fmt.Errorf("%w: нельзя отправить заказ без позиций", ErrBadRequest)
	}

	if err := s.transitionTx(s.db, order, models.PurchaseOrderStatusReceiving); err != nil {
		return "", err
	}

	token := s.tokens.Generate(order.ID)
	confirmURL := fmt.Sprintf("%s/api/v1/purchase-orders/%s/confirm?token=%s", s.publicBaseURL, order.ID, token)

	supplierEmail := ""
	if order.Supplier != nil {
		supplierEmail = order.Supplier.Email
	}
	if supplierEmail == "" {
		log.Printf("⚠️ У поставщика %s нет email, письмо не отправлено (заказ %s)", order.SupplierID, order.PONo)
	} else if err := s.mail.SendPOConfirmation(supplierEmail, order.PONo, confirmURL); err != nil {
		// Статус уже RECEIVING: письмо можно отправить повторно, заказ не откатываем
		log.Printf("⚠️ Не удалось отправить письмо поставщику по заказу %s: %v", order.PONo, err)
	}

	log.Printf("✅ Заказ %s отправлен поставщику", order.PONo)
	return token, nil
}

// ConfirmByToken подтверждает заказ по токену поставщика: RECEIVING → CONFIRMED.
// Повторное подтверждение уже подтверждённого заказа — успех без изменений.
func (s *PurchaseOrderService) ConfirmByToken(poID, token string) (*models.PurchaseOrder, error) {
	tokenPOID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if tokenPOID != poID {
		return nil, fmt.Errorf("%w: токен выдан для другого заказа", ErrBadRequest)
	}

	order, err := s.GetPurchaseOrder(poID)
	if err != nil {
		return nil, err
	}

	// Идемпотентность: поставщик может повторно пройти по ссылке
	if order.Status == models.PurchaseOrderStatusConfirmed {
		return order, nil
	}

	if !order.Status.CanTransitionTo(models.PurchaseOrderStatusConfirmed) {
		return nil, fmt.Errorf("%w: заказ %s нельзя подтвердить из статуса %s", ErrConflict, order.PONo, order.Status)
	}

	if err := s.transitionTx(s.db, order, models.PurchaseOrderStatusConfirmed); err != nil {
		return nil, err
	}

	log.Printf("✅ Заказ %s подтверждён поставщиком", order.PONo)
	return order, nil
}

// ReceivePurchaseOrder принимает автомобили по подтверждённому заказу.
// На каждую единицу создаётся Vehicle (UNDER_INSPECTION), позиция приёмки
// с себестоимостью из заказа и сервисный заказ на входной осмотр.
// Заказ остаётся CONFIRMED и закроется после осмотра всех автомобилей.
func (s *PurchaseOrderService) ReceivePurchaseOrder(poID, warehouseID string, vehicleInputs []ReceivedVehicleInput) (*models.GoodsReceipt, error) {
	order, err := s.GetPurchaseOrder(poID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.PurchaseOrderStatusConfirmed {
		return nil, fmt.Errorf("%w: приёмка возможна только по подтверждённому заказу (текущий статус: %s)", ErrBadRequest, order.Status)
	}

	var warehouse models.Warehouse
	if err := s.db.First(&warehouse, "id = ?", warehouseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: склад %s", ErrNotFound, warehouseID)
		}
		return nil, fmt.Errorf("ошибка проверки склада: %w", err)
	}

	totalQty := order.TotalOrderedQty()
	if len(vehicleInputs) > 0 && len(vehicleInputs) != totalQty {
		return nil, fmt.Errorf("%w: заказано %d автомобилей, передано %d", ErrBadRequest, totalQty, len(vehicleInputs))
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	receipt := &models.GoodsReceipt{
		GRNo:        NewDocNo("GR"),
		POID:        &order.ID,
		WarehouseID: warehouseID,
	}
	if err := tx.Create(receipt).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания приёмки: %w", err)
	}

	inputIdx := 0
	vehicleIdx := 0
	var createdVehicles []*models.Vehicle
	for _, item := range order.Items {
		for u := 0; u < item.Qty; u++ {
			vehicle := &models.Vehicle{
				ModelID:            item.ModelID,
				CurrentWarehouseID: warehouseID,
				LandedCost:         item.UnitPrice,
				Color:              item.PreferredColor,
			}
			if len(vehicleInputs) > 0 {
				in := vehicleInputs[inputIdx]
				inputIdx++
				if in.ModelID != "" {
					vehicle.ModelID = in.ModelID
				}
				vehicle.VIN = in.VIN
				vehicle.EngineNo = in.EngineNo
				if in.Color != "" {
					vehicle.Color = in.Color
				}
				vehicle.Year = in.Year
			}
			if vehicle.VIN == "" {
				vehicle.VIN = "VIN-" + strings.ToUpper(uuid.New().String()[:12])
			}
			if vehicle.EngineNo == "" {
				vehicle.EngineNo = "ENG-" + strings.ToUpper(uuid.New().String()[:12])
			}

			if err := s.inventory.ReceiveVehicleTx(tx, vehicle, receipt.GRNo); err != nil {
				tx.Rollback()
				return nil, err
			}
			createdVehicles = append(createdVehicles, vehicle)

			grItem := models.GoodsReceiptItem{
				GoodsReceiptID: receipt.ID,
				VehicleID:      vehicle.ID,
				LandedCost:     item.UnitPrice,
			}
			if err := tx.Create(&grItem).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("ошибка создания позиции приёмки: %w", err)
			}

			svc := models.ServiceOrder{
				SvcNo:     NewInspectionSvcNo(vehicleIdx),
				VehicleID: vehicle.ID,
				ModelID:   vehicle.ModelID,
				POID:      &order.ID,
				GRID:      &receipt.ID,
			}
			vehicleIdx++
			if err := tx.Create(&svc).Error; err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("ошибка создания сервисного заказа: %w", err)
			}
		}
	}

	// Если заказ создан под заявку клиента, закрепляем за ней один
	// из принятых автомобилей: сначала совпадение по цвету, иначе любой
	if order.RequestID != nil {
		if err := s.assignToRequestTx(tx, order, createdVehicles); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита приёмки: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("GoodsReceipt", receipt.ID, "CREATE", "", receipt.GRNo, "system")
	}
	log.Printf("✅ Приёмка %s по заказу %s: принято %d автомобилей", receipt.GRNo, order.PONo, len(createdVehicles))

	return s.GetGoodsReceipt(receipt.ID)
}

// assignToRequestTx закрепляет принятый автомобиль за заявкой клиента
func (s *PurchaseOrderService) assignToRequestTx(tx *gorm.DB, order *models.PurchaseOrder, vehicles []*models.Vehicle) error {
	var request models.VehicleRequest
	if err := tx.First(&request, "id = ?", *order.RequestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ Заявка %s по заказу %s не найдена, пропускаем закрепление", *order.RequestID, order.PONo)
			return nil
		}
		return fmt.Errorf("ошибка чтения заявки: %w", err)
	}

	if request.Status != models.VehicleRequestStatusPOCreated {
		return nil
	}

	var chosen *models.Vehicle
	for _, v := range vehicles {
		if v.ModelID == request.ModelID && request.PreferredColor != "" && strings.EqualFold(v.Color, request.PreferredColor) {
			chosen = v
			break
		}
	}
	if chosen == nil {
		for _, v := range vehicles {
			if v.ModelID == request.ModelID {
				chosen = v
				break
			}
		}
	}
	if chosen == nil {
		return nil
	}

	// Автомобиль ещё UNDER_INSPECTION: фиксируем закрепление,
	// резерв оформится после прохождения осмотра
	updates := map[string]interface{}{
		"reserved_request_id": request.ID,
	}
	if request.CustomerID != nil {
		updates["reserved_for_customer_id"] = *request.CustomerID
	}
	if err := tx.Model(&models.Vehicle{}).Where("id = ?", chosen.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("ошибка закрепления автомобиля: %w", err)
	}

	if err := tx.Model(&request).Updates(map[string]interface{}{
		"vehicle_id": chosen.ID,
		"status":     models.VehicleRequestStatusAssigned,
	}).Error; err != nil {
		return fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	log.Printf("✅ Автомобиль %s закреплён за заявкой %s", chosen.VIN, request.ID)
	return nil
}

// CheckAndClosePOTx закрывает заказ, когда все принятые автомобили
// прошли осмотр (любой исход кроме UNDER_INSPECTION).
// Вызывается из завершения сервисного заказа внутри его транзакции,
// запись аудита уходит в batch вызывающего.
func (s *PurchaseOrderService) CheckAndClosePOTx(tx *gorm.DB, poID string, batch *AuditBatch) error {
	var order models.PurchaseOrder
	if err := tx.Preload("Items").First(&order, "id = ?", poID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: заказ %s", ErrNotFound, poID)
		}
		return fmt.Errorf("ошибка чтения заказа: %w", err)
	}

	if order.Status != models.PurchaseOrderStatusConfirmed {
		return nil
	}

	var inspected int64
	err := tx.Model(&models.Vehicle{}).
		Joins("JOIN goods_receipt_items gri ON gri.vehicle_id = vehicles.id").
		Joins("JOIN goods_receipts gr ON gr.id = gri.goods_receipt_id").
		Where("gr.po_id = ? AND vehicles.status <> ?", order.ID, models.VehicleStatusUnderInspection).
		Count(&inspected).Error
	if err != nil {
		return fmt.Errorf("ошибка подсчёта осмотренных автомобилей: %w", err)
	}

	if int(inspected) < order.TotalOrderedQty() {
		return nil
	}

	res := tx.Model(&models.PurchaseOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":  models.PurchaseOrderStatusClosed,
			"version": order.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("ошибка закрытия заказа: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: заказ %s изменён параллельным запросом", ErrConflict, order.PONo)
	}

	batch.RecordStatusChange("PurchaseOrder", order.ID, string(order.Status), string(models.PurchaseOrderStatusClosed), "system")
	log.Printf("✅ Заказ %s закрыт: все автомобили прошли осмотр", order.PONo)
	return nil
}

// GetGoodsReceipt возвращает приёмку с позициями и автомобилями
func (s *PurchaseOrderService) GetGoodsReceipt(grID string) (*models.GoodsReceipt, error) {
	var receipt models.GoodsReceipt
	err := s.db.Preload("PO").Preload("Warehouse").
		Preload("Items").Preload("Items.Vehicle").Preload("Items.Vehicle.Model").
		First(&receipt, "id = ?", grID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: приёмка %s", ErrNotFound, grID)
		}
		return nil, fmt.Errorf("ошибка получения приёмки: %w", err)
	}
	return &receipt, nil
}

// GetGoodsReceipts возвращает список приёмок
func (s *PurchaseOrderService) GetGoodsReceipts(poID string, limit int) ([]models.GoodsReceipt, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.GoodsReceipt{}).
		Preload("Warehouse").
		Preload("Items").Preload("Items.Vehicle").
		Order("receipt_date DESC").
		Limit(limit)
	if poID != "" {
		query = query.Where("po_id = ?", poID)
	}

	var receipts []models.GoodsReceipt
	if err := query.Find(&receipts).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения приёмок: %w", err)
	}
	return receipts, nil
}

// GetGoodsReturns возвращает список возвратов поставщикам
func (s *PurchaseOrderService) GetGoodsReturns(poID string, limit int) ([]models.GoodsReturn, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.GoodsReturn{}).
		Preload("Supplier").
		Preload("Items").Preload("Items.Vehicle").
		Order("return_date DESC").
		Limit(limit)
	if poID != "" {
		query = query.Where("po_id = ?", poID)
	}

	var returns []models.GoodsReturn
	if err := query.Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения возвратов: %w", err)
	}
	return returns, nil
}

// transitionTx выполняет переход статуса заказа через CAS по версии
func (s *PurchaseOrderService) transitionTx(db *gorm.DB, order *models.PurchaseOrder, target models.PurchaseOrderStatus) error {
	res := db.Model(&models.PurchaseOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]interface{}{
			"status":  target,
			"version": order.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("ошибка перехода статуса: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: заказ %s изменён параллельным запросом", ErrConflict, order.PONo)
	}

	oldStatus := order.Status
	order.Status = target
	order.Version++

	if s.audit != nil {
		s.audit.RecordStatusChange("PurchaseOrder", order.ID, string(oldStatus), string(target), "system")
	}
	return nil
}
