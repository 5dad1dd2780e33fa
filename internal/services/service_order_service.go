package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"showroom/server/internal/models"
)

// ServiceOrderService управляет входными осмотрами автомобилей.
// Результат осмотра открывает автомобилю путь на склад или
// оформляет возврат поставщику.
type ServiceOrderService struct {
	db        *gorm.DB
	inventory *InventoryService
	purchase  *PurchaseOrderService
	audit     *AuditService
}

// NewServiceOrderService создает новый экземпляр ServiceOrderService
func NewServiceOrderService(db *gorm.DB, inventory *InventoryService, purchase *PurchaseOrderService, audit *AuditService) *ServiceOrderService {
	return &ServiceOrderService{
		db:        db,
		inventory: inventory,
		purchase:  purchase,
		audit:     audit,
	}
}

// GetServiceOrders возвращает список сервисных заказов
func (s *ServiceOrderService) GetServiceOrders(status string, poID string, limit int) ([]models.ServiceOrder, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := s.db.Model(&models.ServiceOrder{}).
		Preload("Vehicle").
		Preload("Vehicle.Model").
		Order("scheduled_date ASC, created_at ASC").
		Limit(limit)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if poID != "" {
		query = query.Where("po_id = ?", poID)
	}

	var orders []models.ServiceOrder
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения сервисных заказов: %w", err)
	}
	return orders, nil
}

// GetServiceOrder возвращает сервисный заказ по ID
func (s *ServiceOrderService) GetServiceOrder(svcID string) (*models.ServiceOrder, error) {
	var svc models.ServiceOrder
	err := s.db.Preload("Vehicle").Preload("Vehicle.Model").
		First(&svc, "id = ?", svcID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: сервисный заказ %s", ErrNotFound, svcID)
		}
		return nil, fmt.Errorf("ошибка получения сервисного заказа: %w", err)
	}
	return &svc, nil
}

// Start начинает осмотр: PLANNED → IN_PROGRESS.
// Статус автомобиля при этом не меняется, он остаётся UNDER_INSPECTION.
func (s *ServiceOrderService) Start(svcID string) (*models.ServiceOrder, error) {
	svc, err := s.GetServiceOrder(svcID)
	if err != nil {
		return nil, err
	}

	if !svc.Status.CanTransitionTo(models.ServiceOrderStatusInProgress) {
		return nil, fmt.Errorf("%w: начать можно только запланированный осмотр (текущий статус: %s)", ErrConflict, svc.Status)
	}

	if err := s.transitionTx(s.db, svc, models.ServiceOrderStatusInProgress); err != nil {
		return nil, err
	}

	log.Printf("✅ Осмотр %s начат", svc.SvcNo)
	return svc, nil
}

// Complete завершает осмотр партии: прошедшие автомобили встают на склад,
// не прошедшие возвращаются поставщику. Затем проверяется закрытие заказа.
// Вся обработка в одной транзакции.
func (s *ServiceOrderService) Complete(svcID string, passedVehicleIDs, failedVehicleIDs []string, failReason string) (*models.ServiceOrder, error) {
	svc, err := s.GetServiceOrder(svcID)
	if err != nil {
		return nil, err
	}

	if svc.Status != models.ServiceOrderStatusInProgress {
		return nil, fmt.Errorf("%w: завершить можно только идущий осмотр (текущий статус: %s)", ErrConflict, svc.Status)
	}
	if len(passedVehicleIDs) == 0 && len(failedVehicleIDs) == 0 {
		return nil, fmt.Errorf("%w: не указан ни один автомобиль", ErrBadRequest)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			log.Printf("❌ Транзакция откачена из-за panic: %v", r)
		}
	}()

	batch := s.audit.NewBatch()
	for _, vehicleID := range passedVehicleIDs {
		vehicle, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusInStock, models.MoveReasonInspectionApproved, svc.SvcNo, nil, batch)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		// Автомобиль, закреплённый за заявкой при приёмке, сразу резервируется
		if vehicle.ReservedRequestID != nil {
			if _, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusReserved, models.MoveReasonReserve, svc.SvcNo, nil, batch); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if len(failedVehicleIDs) > 0 {
		if err := s.processFailedTx(tx, svc, failedVehicleIDs, failReason, batch); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Протокол осмотра дописывается в заметки заказа
	summary := fmt.Sprintf("[%s] осмотр завершён: прошло %d, возврат %d",
		time.Now().UTC().Format("2006-01-02 15:04"), len(passedVehicleIDs), len(failedVehicleIDs))
	newNotes := svc.Notes
	if newNotes != "" {
		newNotes += "\n"
	}
	newNotes += summary

	res := tx.Model(&models.ServiceOrder{}).
		Where("id = ? AND version = ?", svc.ID, svc.Version).
		Updates(map[string]interface{}{
			"status":  models.ServiceOrderStatusDone,
			"notes":   newNotes,
			"version": svc.Version + 1,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка завершения осмотра: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: осмотр %s изменён параллельным запросом", ErrConflict, svc.SvcNo)
	}

	// Осмотры остальных автомобилей партии закрываются вместе с партией.
	// Протокол дописывается к существующим заметкам, а не затирает их.
	allIDs := append(append([]string{}, passedVehicleIDs...), failedVehicleIDs...)
	err = tx.Model(&models.ServiceOrder{}).
		Where("vehicle_id IN ? AND id <> ? AND status IN ?", allIDs, svc.ID,
			[]models.ServiceOrderStatus{models.ServiceOrderStatusPlanned, models.ServiceOrderStatusInProgress}).
		Updates(map[string]interface{}{
			"status":  models.ServiceOrderStatusDone,
			"notes":   gorm.Expr("CASE WHEN notes = '' THEN ? ELSE notes || ? END", summary, "\n"+summary),
			"version": gorm.Expr("version + 1"),
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("ошибка закрытия осмотров партии: %w", err)
	}

	// Проверяем закрытие заказа поставщику
	if svc.POID != nil {
		if err := s.purchase.CheckAndClosePOTx(tx, *svc.POID, batch); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("ошибка коммита осмотра: %w", err)
	}
	batch.Flush()

	if s.audit != nil {
		s.audit.RecordStatusChange("ServiceOrder", svc.ID, string(models.ServiceOrderStatusInProgress), string(models.ServiceOrderStatusDone), "system")
	}
	log.Printf("✅ Осмотр %s завершён: прошло %d, возврат %d", svc.SvcNo, len(passedVehicleIDs), len(failedVehicleIDs))

	return s.GetServiceOrder(svc.ID)
}

// processFailedTx оформляет возврат поставщику для не прошедших осмотр.
// Заказ и поставщик восстанавливаются по цепочке
// GoodsReceiptItem → GoodsReceipt → PurchaseOrder, иначе из сервисного заказа.
func (s *ServiceOrderService) processFailedTx(tx *gorm.DB, svc *models.ServiceOrder, failedVehicleIDs []string, reason string, batch *AuditBatch) error {
	if reason == "" {
		reason = "не прошёл входной осмотр"
	}

	poID := ""
	var supplierID string

	var grItem models.GoodsReceiptItem
	err := tx.Preload("GoodsReceipt").First(&grItem, "vehicle_id = ?", failedVehicleIDs[0]).Error
	if err == nil && grItem.GoodsReceipt != nil && grItem.GoodsReceipt.POID != nil {
		poID = *grItem.GoodsReceipt.POID
	} else if svc.POID != nil {
		poID = *svc.POID
	}
	if poID == "" {
		return fmt.Errorf("%w: не удалось установить заказ-основание для возврата", ErrBadRequest)
	}

	var order models.PurchaseOrder
	if err := tx.First(&order, "id = ?", poID).Error; err != nil {
		return fmt.Errorf("ошибка чтения заказа для возврата: %w", err)
	}
	supplierID = order.SupplierID

	goodsReturn := &models.GoodsReturn{
		GRTNo:      NewDocNo("GRT"),
		POID:       poID,
		SupplierID: supplierID,
	}
	if err := tx.Create(goodsReturn).Error; err != nil {
		return fmt.Errorf("ошибка создания возврата: %w", err)
	}

	for _, vehicleID := range failedVehicleIDs {
		if _, err := s.inventory.TransitionVehicleTx(tx, vehicleID, models.VehicleStatusReturned, models.MoveReasonReturn, goodsReturn.GRTNo, nil, batch); err != nil {
			return err
		}

		item := models.GoodsReturnItem{
			GoodsReturnID: goodsReturn.ID,
			VehicleID:     vehicleID,
			Reason:        reason,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("ошибка создания позиции возврата: %w", err)
		}
	}

	log.Printf("📦 Оформлен возврат %s поставщику: %d автомобилей", goodsReturn.GRTNo, len(failedVehicleIDs))
	return nil
}

// Cancel отменяет осмотр. Завершённый осмотр отменить нельзя,
// повторная отмена — успех без изменений.
func (s *ServiceOrderService) Cancel(svcID string) (*models.ServiceOrder, error) {
	svc, err := s.GetServiceOrder(svcID)
	if err != nil {
		return nil, err
	}

	if svc.Status == models.ServiceOrderStatusCancelled {
		return svc, nil
	}
	if !svc.Status.CanTransitionTo(models.ServiceOrderStatusCancelled) {
		return nil, fmt.Errorf("%w: завершённый осмотр нельзя отменить", ErrConflict)
	}

	if err := s.transitionTx(s.db, svc, models.ServiceOrderStatusCancelled); err != nil {
		return nil, err
	}

	log.Printf("✅ Осмотр %s отменён", svc.SvcNo)
	return svc, nil
}

// Delete удаляет сервисный заказ. Идущий или завершённый осмотр
// удалить нельзя (доступно только администратору).
func (s *ServiceOrderService) Delete(svcID string) error {
	svc, err := s.GetServiceOrder(svcID)
	if err != nil {
		return err
	}

	if svc.Status == models.ServiceOrderStatusInProgress || svc.Status == models.ServiceOrderStatusDone {
		return fmt.Errorf("%w: нельзя удалить осмотр в статусе %s", ErrConflict, svc.Status)
	}

	if err := s.db.Delete(svc).Error; err != nil {
		return fmt.Errorf("ошибка удаления сервисного заказа: %w", err)
	}

	if s.audit != nil {
		s.audit.Record("ServiceOrder", svc.ID, "DELETE", string(svc.Status), "", "system")
	}
	return nil
}

// transitionTx выполняет переход статуса осмотра через CAS по версии
func (s *ServiceOrderService) transitionTx(db *gorm.DB, svc *models.ServiceOrder, target models.ServiceOrderStatus) error {
	res := db.Model(&models.ServiceOrder{}).
		Where("id = ? AND version = ?", svc.ID, svc.Version).
		Updates(map[string]interface{}{
			"status":  target,
			"version": svc.Version + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("ошибка перехода статуса осмотра: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: осмотр %s изменён параллельным запросом", ErrConflict, svc.SvcNo)
	}

	oldStatus := svc.Status
	svc.Status = target
	svc.Version++

	if s.audit != nil {
		s.audit.RecordStatusChange("ServiceOrder", svc.ID, string(oldStatus), string(target), "system")
	}
	return nil
}
