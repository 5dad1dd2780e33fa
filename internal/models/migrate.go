package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate создаёт/обновляет все таблицы системы
func AutoMigrate(db *gorm.DB) error {
	log.Println("🔄 Запуск миграций базы данных...")

	err := db.AutoMigrate(
		// Справочники
		&Brand{},
		&VehicleModel{},
		&Supplier{},
		&SupplierModel{},
		&Warehouse{},
		&Customer{},
		&User{},

		// Склад
		&Vehicle{},
		&InventoryMove{},

		// Закупки
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&GoodsReceipt{},
		&GoodsReceiptItem{},
		&GoodsReturn{},
		&GoodsReturnItem{},

		// Сервис
		&ServiceOrder{},

		// Продажи
		&Quotation{},
		&QuotationItem{},
		&SalesOrder{},
		&SalesOrderItem{},
		&Allotment{},
		&VehicleRequest{},

		// Финансы
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&PaymentAllocation{},

		// Аудит
		&AuditLog{},
	)
	if err != nil {
		log.Printf("❌ Ошибка миграции: %v", err)
		return err
	}

	log.Println("✅ Миграции выполнены успешно")
	return nil
}
