package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// VehicleRequestService управляет заявками клиентов на автомобили.
// Заявка закрывается либо подбором со склада, либо заказом поставщику.
type VehicleRequestService struct {
	db        *gorm.DB
	inventory *InventoryService
	purchase  *PurchaseOrderService
	audit     *AuditService
}

// NewVehicleRequestService создает новый экземпляр VehicleRequestService
func NewVehicleRequestService(db *gorm.DB, inventory *InventoryService, purchase *PurchaseOrderService, audit *AuditService) *VehicleRequestService {
	return &VehicleRequestService{
		db:        db,
		inventory: inventory,
		purchase:  purchase,
		audit:     audit,
	}
}

// VehicleRequestInput представляет входные данные заявки.
// Заявка создаётся анонимно: если клиент не указан, он заводится
// по имени и контактам.
type VehicleRequestInput struct {
	CustomerID     *string `json:"customer_id"`
	CustomerName   string  `json:"customer_name"`
	CustomerEmail  string  `json:"customer_email"`
	CustomerPhone  string  `json:"customer_phone"`
	ModelID        string  `json:"model_id" binding:"required"`
	PreferredColor string  `json:"preferred_color"`
	Notes          string  `json:"notes"`
}

// GetRequests возвращает список заявок
func (s *VehicleRequestService) GetRequests(status string, limit int) ([]models.VehicleRequest, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.VehicleRequest{}).
		Preload("Customer").
		Preload("Model").
		Preload("Vehicle").
		Order("created_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.VehicleRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	return requests, nil
}

// GetRequest возвращает заявку по ID
func (s *VehicleRequestService) GetRequest(requestID string) (*models.VehicleRequest, error) {
	var request models.VehicleRequest
	err := s.db.Preload("Customer").Preload("Model").Preload("Vehicle").
		First(&request, "id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: заявка %s", ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("ошибка получения заявки: %w", err)
	}
	return &request, nil
}

// CreateRequest создает заявку клиента. Неизвестный клиент заводится
// по контактам из формы.
func (s *VehicleRequestService) CreateRequest(in VehicleRequestInput) (*models.VehicleRequest, error) {
	var model models.VehicleModel
	if err := s.db.First(&model, "id = ?", in.ModelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: модель %s", ErrNotFound, in.ModelID)
		}
		return nil, fmt.Errorf("ошибка проверки модели: %w", err)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	customerID := in.CustomerID
	if customerID == nil {
		if in.CustomerName == "" {
			tx.Rollback()
			return nil, fmt.Errorf("%w: укажите клиента или его имя и контакты", ErrBadRequest)
		}
		customer := &models.Customer{
			Name:  in.CustomerName,
			Email: in.CustomerEmail,
			Phone: in.CustomerPhone,
		}
		if err := tx.Create(customer).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("ошибка создания клиента: %w", err)
		}
		customerID = &customer.ID
	} else {
		var customer models.Customer
		if err := tx.First(&customer, "id = ?", *customerID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: клиент %s", ErrNotFound, *customerID)
			}
			return nil, fmt.Errorf("ошибка проверки клиента: %w", err)
		}
	}

	request := &models.VehicleRequest{
		CustomerID:     customerID,
		ModelID:        in.ModelID,
		PreferredColor: in.PreferredColor,
		Status:         models.VehicleRequestStatusNew,
		Notes:          in.Notes,
	}
	if err := tx.Create(request).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита заявки: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("VehicleRequest", request.ID, "CREATE", "", string(request.Status), "customer")
	}
	log.Printf("✅ Создана заявка клиента на модель %s", model.Name)
	return s.GetRequest(request.ID)
}

// AssignVehicle закрепляет за заявкой автомобиль со склада:
// автомобиль резервируется (IN_STOCK → RESERVED) за клиентом заявки.
func (s *VehicleRequestService) AssignVehicle(requestID, vehicleID string) (*models.VehicleRequest, error) {
	request, err := s.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(models.VehicleRequestStatusAssigned) {
		return nil, fmt.Errorf("%w: заявка в статусе %s", ErrConflict, request.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	extra := map[string]interface{}{
		"reserved_request_id": request.ID,
	}
	if request.CustomerID != nil {
		extra["reserved_for_customer_id"] = *request.CustomerID
	}
	batch := s.audit.NewBatch()
	vehicle, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusReserved, models.MoveReasonReserve, "", extra, batch)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if vehicle.ModelID != request.ModelID {
		tx.Rollback()
		return nil, fmt.Errorf("%w: автомобиль другой модели", ErrBadRequest)
	}

	if err := tx.Model(&models.VehicleRequest{}).Where("id = ?", request.ID).Updates(map[string]interface{}{
		"status":     models.VehicleRequestStatusAssigned,
		"vehicle_id": vehicleID,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("VehicleRequest", request.ID, string(request.Status), string(models.VehicleRequestStatusAssigned), "system")
	}
	log.Printf("✅ Автомобиль %s закреплён за заявкой %s", vehicle.VIN, request.ID)
	return s.GetRequest(request.ID)
}

// CreatePOForRequest создает заказ поставщику под заявку.
// Поставщик и закупочная цена берутся из каталога поставляемых моделей.
func (s *VehicleRequestService) CreatePOForRequest(requestID string) (*models.PurchaseOrder, error) {
	request, err := s.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if !request.Status.CanTransitionTo(models.VehicleRequestStatusPOCreated) {
		return nil, fmt.Errorf("%w: заявка в статусе %s", ErrConflict, request.Status)
	}

	var supplierModel models.SupplierModel
	err = s.db.Preload("Supplier").
		Where("model_id = ?", request.ModelID).
		Order("purchase_price ASC").
		First(&supplierModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: модель %s никто не поставляет", ErrNotFound, request.ModelID)
		}
		return nil, fmt.Errorf("ошибка подбора поставщика: %w", err)
	}

	order, err := s.purchase.CreatePurchaseOrder(supplierModel.SupplierID, []POItemInput{{
		ModelID:        request.ModelID,
		Qty:            1,
		UnitPrice:      supplierModel.PurchasePrice,
		PreferredColor: request.PreferredColor,
	}}, &request.ID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.VehicleRequest{}).Where("id = ?", request.ID).Updates(map[string]interface{}{
		"status": models.VehicleRequestStatusPOCreated,
		"po_id":  order.ID,
	}).Error; err != nil {
		return nil, fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	if s.audit != nil {
		s.audit.RecordStatusChange("VehicleRequest", request.ID, string(request.Status), string(models.VehicleRequestStatusPOCreated), "system")
	}
	log.Printf("✅ Под заявку %s создан заказ %s", request.ID, order.PONo)
	return order, nil
}

// Cancel отменяет заявку. Зарезервированный под неё автомобиль
// возвращается на склад. Повторная отмена — успех без изменений.
func (s *VehicleRequestService) Cancel(requestID string) (*models.VehicleRequest, error) {
	request, err := s.GetRequest(requestID)
	if err != nil {
		return nil, err
	}

	if request.Status == models.VehicleRequestStatusCancelled {
		return request, nil
	}
	if !request.Status.CanTransitionTo(models.VehicleRequestStatusCancelled) {
		return nil, fmt.Errorf("%w: заявку в статусе %s нельзя отменить", ErrConflict, request.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	batch := s.audit.NewBatch()
	if request.VehicleID != nil {
		var vehicle models.Vehicle
		if err := tx.First(&vehicle, "id = ?", *request.VehicleID).Error; err == nil &&
			vehicle.Status == models.VehicleStatusReserved {
			extra := map[string]interface{}{
				"reserved_request_id":      nil,
				"reserved_for_customer_id": nil,
			}
			if _, err := s.inventory.TransitionVehicleTx(tx, vehicle.ID, models.VehicleStatusInStock, models.MoveReasonRelease, "", extra, batch); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Model(&models.VehicleRequest{}).Where("id = ?", request.ID).
		Update("status", models.VehicleRequestStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка отмены заявки: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("VehicleRequest", request.ID, string(request.Status), string(models.VehicleRequestStatusCancelled), "system")
	}
	log.Printf("✅ Заявка %s отменена", request.ID)
	return s.GetRequest(request.ID)
}
