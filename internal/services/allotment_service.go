package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// AllotmentService управляет резервами автомобилей под заказы на продажу
type AllotmentService struct {
	db        *gorm.DB
	inventory *InventoryService
	audit     *AuditService
}

// NewAllotmentService создает новый экземпляр AllotmentService
func NewAllotmentService(db *gorm.DB, inventory *InventoryService, audit *AuditService) *AllotmentService {
	return &AllotmentService{
		db:        db,
		inventory: inventory,
		audit:     audit,
	}
}

// GetAllotments возвращает список резервов
func (s *AllotmentService) GetAllotments(status string, soID string, limit int) ([]models.Allotment, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.Allotment{}).
		Preload("Vehicle").
		Preload("SalesOrder").
		Order("reserved_at DESC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if soID != "" {
		query = query.Where("sales_order_id = ?", soID)
	}

	var allotments []models.Allotment
	if err := query.Find(&allotments).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения резервов: %w", err)
	}
	return allotments, nil
}

// GetAllotment возвращает резерв по ID
func (s *AllotmentService) GetAllotment(allotID string) (*models.Allotment, error) {
	var allotment models.Allotment
	err := s.db.Preload("Vehicle").Preload("SalesOrder").
		First(&allotment, "id = ?", allotID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: резерв %s", ErrNotFound, allotID)
		}
		return nil, fmt.Errorf("ошибка получения резерва: %w", err)
	}
	return &allotment, nil
}

// Reserve закрепляет автомобиль со склада за заказом на продажу.
// Резервировать можно только автомобиль в статусе IN_STOCK; активный
// резерв на автомобиль может быть только один (частичный уникальный индекс
// прикрывает гонку двух параллельных запросов).
func (s *AllotmentService) Reserve(soID, vehicleID string) (*models.Allotment, error) {
	var salesOrder models.SalesOrder
	if err := s.db.First(&salesOrder, "id = ?", soID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: заказ на продажу %s", ErrNotFound, soID)
		}
		return nil, fmt.Errorf("ошибка проверки заказа: %w", err)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	var active int64
	if err := tx.Model(&models.Allotment{}).
		Where("vehicle_id = ? AND status = ?", vehicleID, models.AllotmentStatusReserved).
		Count(&active).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка проверки резерва: %w", err)
	}
	if active > 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: автомобиль уже зарезервирован", ErrConflict)
	}

	batch := s.audit.NewBatch()

	// IN_STOCK → ALLOCATED; любой другой исходный статус даст конфликт
	if _, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusAllocated, models.MoveReasonReserve, salesOrder.SONo, nil, batch); err != nil {
		tx.Rollback()
		return nil, err
	}

	allotment := &models.Allotment{
		SalesOrderID: soID,
		VehicleID:    vehicleID,
		Status:       models.AllotmentStatusReserved,
	}
	if err := tx.Create(allotment).Error; err != nil {
		tx.Rollback()
		// Нарушение уникального индекса — параллельный резерв успел раньше
		return nil, fmt.Errorf("%w: автомобиль уже зарезервирован параллельным запросом", ErrConflict)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита резерва: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.Record("Allotment", allotment.ID, "CREATE", "", string(allotment.Status), "system")
	}
	log.Printf("✅ Автомобиль %s зарезервирован за заказом %s", vehicleID, salesOrder.SONo)
	return s.GetAllotment(allotment.ID)
}

// Release снимает резерв. Повторное снятие — успех без изменений.
// Автомобиль возвращается на склад, если ещё не продан и не оплачивается.
func (s *AllotmentService) Release(allotID string) (*models.Allotment, error) {
	allotment, err := s.GetAllotment(allotID)
	if err != nil {
		return nil, err
	}

	// Идемпотентность
	if allotment.Status == models.AllotmentStatusReleased {
		return allotment, nil
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	now := time.Now().UTC()
	if err := tx.Model(allotment).Updates(map[string]interface{}{
		"status":      models.AllotmentStatusReleased,
		"released_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка снятия резерва: %w", err)
	}

	// Вернуть на склад можно только из ALLOCATED/RESERVED;
	// проданный или ожидающий оплаты автомобиль не трогаем
	var vehicle models.Vehicle
	if err := tx.First(&vehicle, "id = ?", allotment.VehicleID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка чтения автомобиля: %w", err)
	}
	batch := s.audit.NewBatch()
	if vehicle.Status == models.VehicleStatusAllocated || vehicle.Status == models.VehicleStatusReserved {
		if _, err := s.inventory.TransitionVehicleTx(tx, vehicle.ID, models.VehicleStatusInStock, models.MoveReasonRelease, "", nil, batch); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("Allotment", allotment.ID, string(models.AllotmentStatusReserved), string(models.AllotmentStatusReleased), "system")
	}
	log.Printf("✅ Резерв %s снят", allotment.ID)
	return s.GetAllotment(allotment.ID)
}

// ReserveTx закрепляет автомобиль внутри внешней транзакции
// (используется автоматическим распределением при подтверждении КП).
// Записи аудита складываются в batch вызывающего сервиса.
func (s *AllotmentService) ReserveTx(tx *gorm.DB, soID, vehicleID, refDocNo string, batch *AuditBatch) (*models.Allotment, error) {
	if _, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusAllocated, models.MoveReasonReserve, refDocNo, nil, batch); err != nil {
		return nil, err
	}

	allotment := &models.Allotment{
		SalesOrderID: soID,
		VehicleID:    vehicleID,
		Status:       models.AllotmentStatusReserved,
	}
	if err := tx.Create(allotment).Error; err != nil {
		return nil, fmt.Errorf("%w: автомобиль уже зарезервирован параллельным запросом", ErrConflict)
	}
	return allotment, nil
}
