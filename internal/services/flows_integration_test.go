package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"showroom/server/internal/models"
	"showroom/server/internal/testutil"
)

type testEnv struct {
	db        *gorm.DB
	audit     *AuditService
	inventory *InventoryService
	purchase  *PurchaseOrderService
	service   *ServiceOrderService
	allotment *AllotmentService
	quotation *QuotationService
	sales     *SalesOrderService
	billing   *BillingService
	requests  *VehicleRequestService

	brand     models.Brand
	model     models.VehicleModel
	supplier  models.Supplier
	warehouse models.Warehouse
	customer  models.Customer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)

	audit := NewAuditService(db)
	t.Cleanup(audit.Close)

	inventory := NewInventoryService(db, audit)
	tokens := NewPOTokenService("test-secret", time.Hour)
	mail := NewMailService("", 0, "", "", "test@showroom.local")
	purchase := NewPurchaseOrderService(db, inventory, tokens, mail, audit, "http://localhost:8080")
	service := NewServiceOrderService(db, inventory, purchase, audit)
	allotment := NewAllotmentService(db, inventory, audit)
	quotation := NewQuotationService(db, allotment, audit)
	sales := NewSalesOrderService(db, inventory, allotment, mail, audit, "http://localhost:8080")
	billing := NewBillingService(db, audit, 0)
	requests := NewVehicleRequestService(db, inventory, purchase, audit)

	env := &testEnv{
		db:        db,
		audit:     audit,
		inventory: inventory,
		purchase:  purchase,
		service:   service,
		allotment: allotment,
		quotation: quotation,
		sales:     sales,
		billing:   billing,
		requests:  requests,
	}

	env.brand = models.Brand{Name: "Toyora", Country: "Japan"}
	if err := db.Create(&env.brand).Error; err != nil {
		t.Fatalf("seed brand: %v", err)
	}
	env.model = models.VehicleModel{BrandID: env.brand.ID, Name: "Caroma", BodyType: "sedan", BasePrice: 2500000}
	if err := db.Create(&env.model).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}
	env.supplier = models.Supplier{Name: "Авто Импорт", Email: "supplier@example.com"}
	if err := db.Create(&env.supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	if err := db.Create(&models.SupplierModel{
		SupplierID:    env.supplier.ID,
		ModelID:       env.model.ID,
		PurchasePrice: 2000000,
	}).Error; err != nil {
		t.Fatalf("seed supplier model: %v", err)
	}
	env.warehouse = models.Warehouse{Name: "Основной склад"}
	if err := db.Create(&env.warehouse).Error; err != nil {
		t.Fatalf("seed warehouse: %v", err)
	}
	env.customer = models.Customer{Name: "Иван Петров", Email: "ivan@example.com", Phone: "+70000000001"}
	if err := db.Create(&env.customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	return env
}

// receiveVehicles проводит заказ от создания до приёмки qty автомобилей
func (env *testEnv) receiveVehicles(t *testing.T, qty int) (*models.PurchaseOrder, *models.GoodsReceipt) {
	t.Helper()

	order, err := env.purchase.CreatePurchaseOrder(env.supplier.ID, []POItemInput{{
		ModelID:   env.model.ID,
		Qty:       qty,
		UnitPrice: 2000000,
	}}, nil)
	if err != nil {
		t.Fatalf("создание заказа: %v", err)
	}

	token, err := env.purchase.SendPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("отправка заказа: %v", err)
	}
	if _, err := env.purchase.ConfirmByToken(order.ID, token); err != nil {
		t.Fatalf("подтверждение заказа: %v", err)
	}

	receipt, err := env.purchase.ReceivePurchaseOrder(order.ID, env.warehouse.ID, nil)
	if err != nil {
		t.Fatalf("приёмка заказа: %v", err)
	}
	return order, receipt
}

// passInspection завершает осмотр всех автомобилей накладной как успешный
func (env *testEnv) passInspection(t *testing.T, poID string, vehicleIDs []string) {
	t.Helper()

	orders, err := env.service.GetServiceOrders("", poID, 100)
	if err != nil {
		t.Fatalf("получение нарядов: %v", err)
	}
	if len(orders) == 0 {
		t.Fatal("наряды на осмотр не созданы")
	}

	svc := orders[0]
	if _, err := env.service.Start(svc.ID); err != nil {
		t.Fatalf("запуск наряда: %v", err)
	}
	if _, err := env.service.Complete(svc.ID, vehicleIDs, nil, ""); err != nil {
		t.Fatalf("завершение осмотра: %v", err)
	}
}

func receiptVehicleIDs(receipt *models.GoodsReceipt) []string {
	ids := make([]string, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		ids = append(ids, item.VehicleID)
	}
	return ids
}

func TestProcurementFlowHappyPath(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 3)

	if len(receipt.Items) != 3 {
		t.Fatalf("в накладной %d позиций, ожидали 3", len(receipt.Items))
	}
	for _, item := range receipt.Items {
		vehicle, err := env.inventory.GetVehicle(item.VehicleID)
		if err != nil {
			t.Fatalf("автомобиль из накладной не найден: %v", err)
		}
		if vehicle.Status != models.VehicleStatusUnderInspection {
			t.Errorf("автомобиль %s в статусе %s, ожидали UNDER_INSPECTION", vehicle.VIN, vehicle.Status)
		}
	}

	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))

	for _, item := range receipt.Items {
		vehicle, _ := env.inventory.GetVehicle(item.VehicleID)
		if vehicle.Status != models.VehicleStatusInStock {
			t.Errorf("после осмотра автомобиль %s в статусе %s, ожидали IN_STOCK", vehicle.VIN, vehicle.Status)
		}
		moves, _ := env.inventory.GetVehicleMoves(item.VehicleID)
		if len(moves) < 2 {
			t.Errorf("у автомобиля %s %d движений, ожидали приёмку и осмотр", vehicle.VIN, len(moves))
		}
	}

	refreshed, err := env.purchase.GetPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("чтение заказа: %v", err)
	}
	if refreshed.Status != models.PurchaseOrderStatusClosed {
		t.Errorf("заказ в статусе %s, ожидали CLOSED после осмотра всех автомобилей", refreshed.Status)
	}
}

func TestProcurementFailedInspectionCreatesReturn(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 2)
	ids := receiptVehicleIDs(receipt)

	orders, err := env.service.GetServiceOrders("", order.ID, 100)
	if err != nil || len(orders) == 0 {
		t.Fatalf("наряды не созданы: %v", err)
	}
	if _, err := env.service.Start(orders[0].ID); err != nil {
		t.Fatalf("запуск наряда: %v", err)
	}
	if _, err := env.service.Complete(orders[0].ID, ids[:1], ids[1:], "царапины на кузове"); err != nil {
		t.Fatalf("завершение осмотра: %v", err)
	}

	passed, _ := env.inventory.GetVehicle(ids[0])
	if passed.Status != models.VehicleStatusInStock {
		t.Errorf("прошедший осмотр автомобиль в статусе %s, ожидали IN_STOCK", passed.Status)
	}
	failed, _ := env.inventory.GetVehicle(ids[1])
	if failed.Status != models.VehicleStatusReturned {
		t.Errorf("не прошедший осмотр автомобиль в статусе %s, ожидали RETURNED", failed.Status)
	}

	returns, err := env.purchase.GetGoodsReturns(order.ID, 10)
	if err != nil {
		t.Fatalf("получение возвратов: %v", err)
	}
	if len(returns) != 1 {
		t.Fatalf("возвратов %d, ожидали 1", len(returns))
	}
	if len(returns[0].Items) != 1 || returns[0].Items[0].VehicleID != ids[1] {
		t.Error("возврат должен содержать ровно не прошедший осмотр автомобиль")
	}

	refreshed, _ := env.purchase.GetPurchaseOrder(order.ID)
	if refreshed.Status != models.PurchaseOrderStatusClosed {
		t.Errorf("заказ в статусе %s, ожидали CLOSED: судьба всех автомобилей решена", refreshed.Status)
	}
}

func TestPOConfirmIdempotent(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.purchase.CreatePurchaseOrder(env.supplier.ID, []POItemInput{{
		ModelID: env.model.ID, Qty: 1, UnitPrice: 2000000,
	}}, nil)
	if err != nil {
		t.Fatalf("создание заказа: %v", err)
	}
	token, err := env.purchase.SendPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("отправка: %v", err)
	}

	if _, err := env.purchase.ConfirmByToken(order.ID, token); err != nil {
		t.Fatalf("первое подтверждение: %v", err)
	}
	confirmed, err := env.purchase.ConfirmByToken(order.ID, token)
	if err != nil {
		t.Fatalf("повторное подтверждение должно быть успешным: %v", err)
	}
	if confirmed.Status != models.PurchaseOrderStatusConfirmed {
		t.Errorf("статус %s, ожидали CONFIRMED", confirmed.Status)
	}
}

func TestReceiveRequiresConfirmedPO(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.purchase.CreatePurchaseOrder(env.supplier.ID, []POItemInput{{
		ModelID: env.model.ID, Qty: 1, UnitPrice: 2000000,
	}}, nil)
	if err != nil {
		t.Fatalf("создание заказа: %v", err)
	}

	if _, err := env.purchase.ReceivePurchaseOrder(order.ID, env.warehouse.ID, nil); !errors.Is(err, ErrBadRequest) {
		t.Errorf("приёмка неподтверждённого заказа должна давать ErrBadRequest, получили %v", err)
	}
}

func TestSalesFlowFromQuotationToPaidInvoice(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 2)
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))

	quote, err := env.quotation.CreateQuotation(env.customer.ID, []QuotationItemInput{{
		ModelID: env.model.ID, Qty: 2, UnitPrice: 2500000,
	}}, 100000, 450000)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}

	so, err := env.quotation.ConfirmQuotation(quote.ID, true)
	if err != nil {
		t.Fatalf("подтверждение предложения: %v", err)
	}
	if so.Status != models.SalesOrderStatusDraft {
		t.Errorf("заказ на продажу в статусе %s, ожидали DRAFT", so.Status)
	}
	if len(so.Items) != 2 {
		t.Fatalf("в заказе %d позиций, ожидали 2 после автоподбора", len(so.Items))
	}
	for _, item := range so.Items {
		vehicle, _ := env.inventory.GetVehicle(item.VehicleID)
		if vehicle.Status != models.VehicleStatusAllocated {
			t.Errorf("автомобиль %s в статусе %s, ожидали ALLOCATED", vehicle.VIN, vehicle.Status)
		}
	}

	// Повторное подтверждение предложения — конфликт
	if _, err := env.quotation.ConfirmQuotation(quote.ID, true); !errors.Is(err, ErrConflict) {
		t.Errorf("повторное подтверждение должно давать ErrConflict, получили %v", err)
	}

	if _, err := env.sales.CustomerConfirm(so.ID); err != nil {
		t.Fatalf("подтверждение договора: %v", err)
	}
	for _, item := range so.Items {
		vehicle, _ := env.inventory.GetVehicle(item.VehicleID)
		if vehicle.Status != models.VehicleStatusPendingPayment {
			t.Errorf("после договора автомобиль в статусе %s, ожидали PENDING_PAYMENT", vehicle.Status)
		}
	}

	invoice, err := env.sales.ConfirmPayment(so.ID)
	if err != nil {
		t.Fatalf("подтверждение оплаты: %v", err)
	}
	if invoice.Status != models.InvoiceStatusIssued {
		t.Errorf("счёт в статусе %s, ожидали ISSUED до распределения денег", invoice.Status)
	}
	for _, item := range so.Items {
		vehicle, _ := env.inventory.GetVehicle(item.VehicleID)
		if vehicle.Status != models.VehicleStatusSold {
			t.Errorf("после оплаты автомобиль в статусе %s, ожидали SOLD", vehicle.Status)
		}
	}

	payment, err := env.billing.CreatePayment(env.customer.ID, invoice.GrandTotal, models.PaymentMethodBank, "оплата по договору")
	if err != nil {
		t.Fatalf("регистрация поступления: %v", err)
	}
	if _, err := env.billing.AllocatePayment(payment.ID, []AllocationLineInput{{
		InvoiceID: invoice.ID, Amount: invoice.GrandTotal,
	}}); err != nil {
		t.Fatalf("распределение поступления: %v", err)
	}

	paid, err := env.billing.GetInvoice(invoice.ID)
	if err != nil {
		t.Fatalf("чтение счёта: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaidFull {
		t.Errorf("счёт в статусе %s, ожидали PAID_FULL", paid.Status)
	}
	if paid.DueAmount() != 0 {
		t.Errorf("остаток по счёту %v, ожидали 0", paid.DueAmount())
	}
}

func TestAllocatePaymentGuards(t *testing.T) {
	env := newTestEnv(t)

	invoice, err := env.billing.CreateInvoice(env.customer.ID, []InvoiceItemInput{{
		Description: "Дополнительное оборудование", Qty: 1, UnitPrice: 100000,
	}}, 0, 0)
	if err != nil {
		t.Fatalf("создание счёта: %v", err)
	}

	payment, err := env.billing.CreatePayment(env.customer.ID, 50000, models.PaymentMethodCash, "")
	if err != nil {
		t.Fatalf("регистрация поступления: %v", err)
	}

	// Распределить больше, чем осталось у поступления
	if _, err := env.billing.AllocatePayment(payment.ID, []AllocationLineInput{{
		InvoiceID: invoice.ID, Amount: 60000,
	}}); !errors.Is(err, ErrConflict) {
		t.Errorf("перерасход поступления должен давать ErrConflict, получили %v", err)
	}

	// Чужой клиент
	other := models.Customer{Name: "Другой Клиент"}
	if err := env.db.Create(&other).Error; err != nil {
		t.Fatalf("seed клиента: %v", err)
	}
	foreign, err := env.billing.CreatePayment(other.ID, 100000, models.PaymentMethodCash, "")
	if err != nil {
		t.Fatalf("регистрация поступления: %v", err)
	}
	if _, err := env.billing.AllocatePayment(foreign.ID, []AllocationLineInput{{
		InvoiceID: invoice.ID, Amount: 10000,
	}}); !errors.Is(err, ErrConflict) {
		t.Errorf("распределение на чужой счёт должно давать ErrConflict, получили %v", err)
	}

	// Частичная оплата проходит и меняет статус
	if _, err := env.billing.AllocatePayment(payment.ID, []AllocationLineInput{{
		InvoiceID: invoice.ID, Amount: 50000,
	}}); err != nil {
		t.Fatalf("частичное распределение: %v", err)
	}
	partial, _ := env.billing.GetInvoice(invoice.ID)
	if partial.Status != models.InvoiceStatusPaidPartial {
		t.Errorf("счёт в статусе %s, ожидали PAID_PARTIAL", partial.Status)
	}

	// Счёт с оплатами нельзя менять и удалять
	if _, err := env.billing.UpdateInvoice(invoice.ID, 5000, 0); !errors.Is(err, ErrConflict) {
		t.Errorf("изменение оплаченного счёта должно давать ErrConflict, получили %v", err)
	}
	if err := env.billing.DeleteInvoice(invoice.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("удаление оплаченного счёта должно давать ErrConflict, получили %v", err)
	}
}

func TestAllotmentDoubleReserveConflict(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 1)
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))
	vehicleID := receipt.Items[0].VehicleID

	soA, err := env.sales.CreateSalesOrder(env.customer.ID, []SOItemInput{{VehicleID: vehicleID}}, nil, 0, 0)
	if err != nil {
		t.Fatalf("создание заказа на продажу: %v", err)
	}

	// Второй заказ на тот же автомобиль
	other := models.Customer{Name: "Второй Покупатель"}
	if err := env.db.Create(&other).Error; err != nil {
		t.Fatalf("seed клиента: %v", err)
	}
	if _, err := env.sales.CreateSalesOrder(other.ID, []SOItemInput{{VehicleID: vehicleID}}, nil, 0, 0); !errors.Is(err, ErrConflict) {
		t.Errorf("повторное закрепление должно давать ErrConflict, получили %v", err)
	}

	// Снятие закрепления возвращает автомобиль на склад
	allots, err := env.allotment.GetAllotments(string(models.AllotmentStatusReserved), soA.ID, 10)
	if err != nil || len(allots) != 1 {
		t.Fatalf("закрепление не найдено: %v (%d)", err, len(allots))
	}
	released, err := env.allotment.Release(allots[0].ID)
	if err != nil {
		t.Fatalf("снятие закрепления: %v", err)
	}
	if released.Status != models.AllotmentStatusReleased {
		t.Errorf("закрепление в статусе %s, ожидали RELEASED", released.Status)
	}
	vehicle, _ := env.inventory.GetVehicle(vehicleID)
	if vehicle.Status != models.VehicleStatusInStock {
		t.Errorf("после снятия автомобиль в статусе %s, ожидали IN_STOCK", vehicle.Status)
	}

	// Повторное снятие — успех без изменений
	if _, err := env.allotment.Release(allots[0].ID); err != nil {
		t.Errorf("повторное снятие должно быть успешным, получили %v", err)
	}
}

func TestVehicleRequestStockFlow(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 1)
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))
	vehicleID := receipt.Items[0].VehicleID

	request, err := env.requests.CreateRequest(VehicleRequestInput{
		CustomerName:  "Новый Клиент",
		CustomerPhone: "+70000000099",
		ModelID:       env.model.ID,
	})
	if err != nil {
		t.Fatalf("создание заявки: %v", err)
	}
	if request.CustomerID == nil {
		t.Fatal("клиент должен быть создан по контактам заявки")
	}

	assigned, err := env.requests.AssignVehicle(request.ID, vehicleID)
	if err != nil {
		t.Fatalf("подбор автомобиля: %v", err)
	}
	if assigned.Status != models.VehicleRequestStatusAssigned {
		t.Errorf("заявка в статусе %s, ожидали ASSIGNED", assigned.Status)
	}
	vehicle, _ := env.inventory.GetVehicle(vehicleID)
	if vehicle.Status != models.VehicleStatusReserved {
		t.Errorf("автомобиль в статусе %s, ожидали RESERVED", vehicle.Status)
	}
	if !vehicle.IsReservedFor(*request.CustomerID) {
		t.Error("автомобиль должен быть зарезервирован за клиентом заявки")
	}

	// Продажа по заявке: зарезервированный автомобиль доступен клиенту заявки
	so, err := env.sales.CreateSalesOrder(*request.CustomerID, []SOItemInput{{VehicleID: vehicleID}}, &request.ID, 0, 0)
	if err != nil {
		t.Fatalf("создание заказа из заявки: %v", err)
	}
	if len(so.Items) != 1 {
		t.Fatalf("в заказе %d позиций, ожидали 1", len(so.Items))
	}

	refreshed, _ := env.requests.GetRequest(request.ID)
	if refreshed.Status != models.VehicleRequestStatusSOCreated {
		t.Errorf("заявка в статусе %s, ожидали SO_CREATED", refreshed.Status)
	}
}

func TestConfirmQuotationRollbackKeepsAuditClean(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 1)
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))
	vehicleID := receipt.Items[0].VehicleID

	// На складе один автомобиль, в предложении два: автоподбор откатится
	quote, err := env.quotation.CreateQuotation(env.customer.ID, []QuotationItemInput{{
		ModelID: env.model.ID, Qty: 2, UnitPrice: 2500000,
	}}, 0, 0)
	if err != nil {
		t.Fatalf("создание предложения: %v", err)
	}
	if _, err := env.quotation.ConfirmQuotation(quote.ID, true); !errors.Is(err, ErrConflict) {
		t.Fatalf("нехватка автомобилей должна давать ErrConflict, получили %v", err)
	}

	vehicle, _ := env.inventory.GetVehicle(vehicleID)
	if vehicle.Status != models.VehicleStatusInStock {
		t.Errorf("после отката автомобиль в статусе %s, ожидали IN_STOCK", vehicle.Status)
	}

	// Дожидаемся воркера: откат не должен оставить фантомных записей о резерве
	env.audit.Close()
	var phantom int64
	if err := env.db.Model(&models.AuditLog{}).
		Where("entity = ? AND new_value = ?", "Vehicle", string(models.VehicleStatusAllocated)).
		Count(&phantom).Error; err != nil {
		t.Fatalf("чтение журнала аудита: %v", err)
	}
	if phantom != 0 {
		t.Errorf("в журнале %d записей о резерве после отката, ожидали 0", phantom)
	}
}

func TestInspectionBatchKeepsSiblingNotes(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 2)
	ids := receiptVehicleIDs(receipt)

	orders, err := env.service.GetServiceOrders("", order.ID, 100)
	if err != nil || len(orders) < 2 {
		t.Fatalf("ожидали наряд на каждый автомобиль: %v (%d)", err, len(orders))
	}

	const remark = "клиент просил проверить комплектацию"
	sibling := orders[1]
	if err := env.db.Model(&models.ServiceOrder{}).
		Where("id = ?", sibling.ID).
		Update("notes", remark).Error; err != nil {
		t.Fatalf("запись заметки: %v", err)
	}

	if _, err := env.service.Start(orders[0].ID); err != nil {
		t.Fatalf("запуск наряда: %v", err)
	}
	if _, err := env.service.Complete(orders[0].ID, ids, nil, ""); err != nil {
		t.Fatalf("завершение осмотра: %v", err)
	}

	closed, err := env.service.GetServiceOrder(sibling.ID)
	if err != nil {
		t.Fatalf("чтение наряда: %v", err)
	}
	if closed.Status != models.ServiceOrderStatusDone {
		t.Errorf("парный наряд в статусе %s, ожидали DONE", closed.Status)
	}
	if !strings.Contains(closed.Notes, remark) {
		t.Errorf("заметка наряда затёрта, ожидали исходный текст в %q", closed.Notes)
	}
	if !strings.Contains(closed.Notes, "осмотр завершён") {
		t.Errorf("в заметке нет протокола осмотра: %q", closed.Notes)
	}
}

func TestMoveVehicleBetweenWarehouses(t *testing.T) {
	env := newTestEnv(t)

	order, receipt := env.receiveVehicles(t, 1)
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))
	vehicleID := receipt.Items[0].VehicleID

	second := models.Warehouse{Name: "Дальний склад"}
	if err := env.db.Create(&second).Error; err != nil {
		t.Fatalf("seed склада: %v", err)
	}

	if err := env.inventory.MoveVehicle(vehicleID, &env.warehouse.ID, &second.ID, models.MoveReasonTransfer, ""); err != nil {
		t.Fatalf("перемещение: %v", err)
	}

	vehicle, _ := env.inventory.GetVehicle(vehicleID)
	if vehicle.CurrentWarehouseID != second.ID {
		t.Errorf("автомобиль на складе %s, ожидали %s", vehicle.CurrentWarehouseID, second.ID)
	}
	moves, _ := env.inventory.GetVehicleMoves(vehicleID)
	var transfer *models.InventoryMove
	for i := range moves {
		if moves[i].Reason == models.MoveReasonTransfer {
			transfer = &moves[i]
		}
	}
	if transfer == nil {
		t.Fatal("движение TRANSFER не записано")
	}
	if transfer.FromWarehouseID == nil || *transfer.FromWarehouseID != env.warehouse.ID {
		t.Error("в движении не указан склад-источник")
	}
}

func TestVehicleRequestPOFlow(t *testing.T) {
	env := newTestEnv(t)

	request, err := env.requests.CreateRequest(VehicleRequestInput{
		CustomerID:     &env.customer.ID,
		ModelID:        env.model.ID,
		PreferredColor: "черный",
	})
	if err != nil {
		t.Fatalf("создание заявки: %v", err)
	}

	order, err := env.requests.CreatePOForRequest(request.ID)
	if err != nil {
		t.Fatalf("создание заказа под заявку: %v", err)
	}
	if order.RequestID == nil || *order.RequestID != request.ID {
		t.Error("заказ должен ссылаться на заявку")
	}

	token, err := env.purchase.SendPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("отправка: %v", err)
	}
	if _, err := env.purchase.ConfirmByToken(order.ID, token); err != nil {
		t.Fatalf("подтверждение: %v", err)
	}
	receipt, err := env.purchase.ReceivePurchaseOrder(order.ID, env.warehouse.ID, nil)
	if err != nil {
		t.Fatalf("приёмка: %v", err)
	}

	// После приёмки заявка закреплена за будущим автомобилем
	assigned, _ := env.requests.GetRequest(request.ID)
	if assigned.Status != models.VehicleRequestStatusAssigned {
		t.Errorf("заявка в статусе %s, ожидали ASSIGNED после приёмки", assigned.Status)
	}

	// После осмотра автомобиль резервируется за клиентом заявки
	env.passInspection(t, order.ID, receiptVehicleIDs(receipt))
	vehicle, _ := env.inventory.GetVehicle(receipt.Items[0].VehicleID)
	if vehicle.Status != models.VehicleStatusReserved {
		t.Errorf("автомобиль в статусе %s, ожидали RESERVED за клиентом заявки", vehicle.Status)
	}
	if !vehicle.IsReservedFor(env.customer.ID) {
		t.Error("автомобиль должен быть зарезервирован за клиентом заявки")
	}
}
