package services

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// InventoryService — единственная точка смены статуса автомобиля
// и записи журнала движений. Остальные сервисы меняют статус
// только через TransitionVehicleTx внутри своих транзакций.
type InventoryService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewInventoryService создает новый экземпляр InventoryService
func NewInventoryService(db *gorm.DB, audit *AuditService) *InventoryService {
	return &InventoryService{
		db:    db,
		audit: audit,
	}
}

// GetVehicles возвращает список автомобилей с фильтрацией
func (s *InventoryService) GetVehicles(status string, modelID string, warehouseID string, limit int) ([]models.Vehicle, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Vehicle{}).
		Preload("Model").
		Preload("Model.Brand").
		Preload("Warehouse").
		Order("acquired_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if modelID != "" {
		query = query.Where("model_id = ?", modelID)
	}
	if warehouseID != "" {
		query = query.Where("current_warehouse_id = ?", warehouseID)
	}

	var vehicles []models.Vehicle
	if err := query.Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения автомобилей: %w", err)
	}

	return vehicles, nil
}

// GetVehicle возвращает автомобиль по ID
func (s *InventoryService) GetVehicle(vehicleID string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := s.db.Preload("Model").Preload("Model.Brand").Preload("Warehouse").
		First(&vehicle, "id = ?", vehicleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: автомобиль %s", ErrNotFound, vehicleID)
		}
		return nil, fmt.Errorf("ошибка получения автомобиля: %w", err)
	}
	return &vehicle, nil
}

// GetVehicleMoves возвращает журнал движений автомобиля
func (s *InventoryService) GetVehicleMoves(vehicleID string) ([]models.InventoryMove, error) {
	var moves []models.InventoryMove
	err := s.db.Where("vehicle_id = ?", vehicleID).
		Order("created_at ASC").
		Find(&moves).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала движений: %w", err)
	}
	return moves, nil
}

// ReceiveVehicleTx создает автомобиль в статусе UNDER_INSPECTION
// и пишет движение RECEIVE. Вызывается внутри транзакции приёмки.
func (s *InventoryService) ReceiveVehicleTx(tx *gorm.DB, vehicle *models.Vehicle, refDocNo string) error {
	// Проверяем модель
	var model models.VehicleModel
	if err := tx.First(&model, "id = ?", vehicle.ModelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: модель %s", ErrNotFound, vehicle.ModelID)
		}
		return fmt.Errorf("ошибка проверки модели: %w", err)
	}

	// VIN и номер двигателя уникальны
	var count int64
	if err := tx.Model(&models.Vehicle{}).
		Where("vin = ? OR engine_no = ?", vehicle.VIN, vehicle.EngineNo).
		Count(&count).Error; err != nil {
		return fmt.Errorf("ошибка проверки VIN: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: VIN %s или номер двигателя %s уже зарегистрирован", ErrConflict, vehicle.VIN, vehicle.EngineNo)
	}

	vehicle.Status = models.VehicleStatusUnderInspection
	if vehicle.SellingPrice == 0 {
		vehicle.SellingPrice = model.BasePrice
	}
	if err := tx.Create(vehicle).Error; err != nil {
		return fmt.Errorf("ошибка создания автомобиля: %w", err)
	}

	move := models.InventoryMove{
		VehicleID:     vehicle.ID,
		ToWarehouseID: &vehicle.CurrentWarehouseID,
		Reason:        models.MoveReasonReceive,
		RefDocNo:      refDocNo,
	}
	if err := tx.Create(&move).Error; err != nil {
		return fmt.Errorf("ошибка записи движения: %w", err)
	}

	return nil
}

// TransitionVehicleTx переводит автомобиль в новый статус внутри транзакции.
// Статус перечитывается, переход сверяется с таблицей, запись обновляется
// через CAS по версии: гонка двух запросов даёт конфликт, а не потерю записи.
// Запись аудита накапливается в batch и уходит в очередь только после коммита.
func (s *InventoryService) TransitionVehicleTx(tx *gorm.DB, vehicleID string, target models.VehicleStatus, reason models.InventoryMoveReason, refDocNo string, extra map[string]interface{}, batch *AuditBatch) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := tx.First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: автомобиль %s", ErrNotFound, vehicleID)
		}
		return nil, fmt.Errorf("ошибка чтения автомобиля: %w", err)
	}

	if !vehicle.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: переход %s → %s недопустим для автомобиля %s",
			ErrConflict, vehicle.Status, target, vehicle.VIN)
	}

	updates := map[string]interface{}{
		"status":  target,
		"version": vehicle.Version + 1,
	}
	for k, v := range extra {
		updates[k] = v
	}

	res := tx.Model(&models.Vehicle{}).
		Where("id = ? AND version = ?", vehicle.ID, vehicle.Version).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("ошибка обновления статуса: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: автомобиль %s изменён параллельным запросом", ErrConflict, vehicle.VIN)
	}

	if reason != "" {
		move := models.InventoryMove{
			VehicleID: vehicle.ID,
			Reason:    reason,
			RefDocNo:  refDocNo,
		}
		if err := tx.Create(&move).Error; err != nil {
			return nil, fmt.Errorf("ошибка записи движения: %w", err)
		}
	}

	oldStatus := vehicle.Status
	vehicle.Status = target
	vehicle.Version++

	batch.RecordStatusChange("Vehicle", vehicle.ID, string(oldStatus), string(target), "system")

	return &vehicle, nil
}

// MoveVehicle пишет движение между складами без смены статуса
func (s *InventoryService) MoveVehicle(vehicleID string, fromWarehouseID, toWarehouseID *string, reason models.InventoryMoveReason, refDocNo string) error {
	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, "id = ?", vehicleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: автомобиль %s", ErrNotFound, vehicleID)
		}
		return fmt.Errorf("ошибка чтения автомобиля: %w", err)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	move := models.InventoryMove{
		VehicleID:       vehicleID,
		FromWarehouseID: fromWarehouseID,
		ToWarehouseID:   toWarehouseID,
		Reason:          reason,
		RefDocNo:        refDocNo,
	}
	if err := tx.Create(&move).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("ошибка записи движения: %w", err)
	}

	if toWarehouseID != nil {
		if err := tx.Model(&vehicle).Update("current_warehouse_id", *toWarehouseID).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("ошибка смены склада: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("ошибка коммита движения: %w", err)
	}

	if s.audit != nil {
		from, to := "", ""
		if fromWarehouseID != nil {
			from = *fromWarehouseID
		}
		if toWarehouseID != nil {
			to = *toWarehouseID
		}
		s.audit.Record("Vehicle", vehicleID, "MOVE", from, to, "system")
	}
	return nil
}
