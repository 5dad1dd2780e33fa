package services

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"showroom/server/internal/models"
	"showroom/server/internal/utils"
)

const reportCachePrefix = "report:"

// ReportService строит управленческие отчёты по складу, выручке
// и дебиторской задолженности. Тяжёлые сводки кэшируются в Redis.
type ReportService struct {
	db       *gorm.DB
	redis    *utils.RedisClient
	cacheTTL time.Duration
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(db *gorm.DB, redis *utils.RedisClient, cacheTTL time.Duration) *ReportService {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &ReportService{
		db:       db,
		redis:    redis,
		cacheTTL: cacheTTL,
	}
}

// InventoryStatusRow строка сводки склада по статусу
type InventoryStatusRow struct {
	Status     models.VehicleStatus `json:"status"`
	Count      int64                `json:"count"`
	LandedCost float64              `json:"landed_cost"`
}

// InventorySummary сводка склада по статусам
type InventorySummary struct {
	Rows        []InventoryStatusRow `json:"rows"`
	TotalCount  int64                `json:"total_count"`
	StockValue  float64              `json:"stock_value"` // Закупочная стоимость доступного остатка
	GeneratedAt time.Time            `json:"generated_at"`
}

// GetInventorySummary возвращает сводку склада по статусам автомобилей
func (s *ReportService) GetInventorySummary() (*InventorySummary, error) {
	cacheKey := reportCachePrefix + "inventory_summary"
	if s.redis != nil {
		var cached InventorySummary
		if err := s.redis.GetJSON(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var rows []InventoryStatusRow
	err := s.db.Model(&models.Vehicle{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(landed_cost), 0) as landed_cost").
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка построения сводки склада: %w", err)
	}

	summary := &InventorySummary{
		Rows:        rows,
		GeneratedAt: time.Now().UTC(),
	}
	for _, row := range rows {
		summary.TotalCount += row.Count
		if row.Status == models.VehicleStatusInStock || row.Status == models.VehicleStatusReserved {
			summary.StockValue = models.Round2(summary.StockValue + row.LandedCost)
		}
	}

	if s.redis != nil {
		if err := s.redis.Set(cacheKey, summary, s.cacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать сводку склада: %v", err)
		}
	}
	return summary, nil
}

// MonthlyRevenueRow строка помесячной выручки
type MonthlyRevenueRow struct {
	Month     string  `json:"month"` // YYYY-MM
	Invoiced  float64 `json:"invoiced"`
	Collected float64 `json:"collected"`
	Invoices  int64   `json:"invoices"`
}

// GetMonthlyRevenue возвращает выручку по месяцам за год:
// выставленные счета и фактически собранные по ним оплаты.
func (s *ReportService) GetMonthlyRevenue(year int) ([]MonthlyRevenueRow, error) {
	if year <= 0 {
		year = time.Now().UTC().Year()
	}

	var rows []MonthlyRevenueRow
	err := s.db.Raw(`
		SELECT to_char(i.issued_at, 'YYYY-MM') AS month,
		       COALESCE(SUM(i.grand_total), 0) AS invoiced,
		       COALESCE(SUM(alloc.applied), 0) AS collected,
		       COUNT(*) AS invoices
		FROM invoices i
		LEFT JOIN (
			SELECT invoice_id, SUM(amount_applied) AS applied
			FROM payment_allocations
			GROUP BY invoice_id
		) alloc ON alloc.invoice_id = i.id
		WHERE EXTRACT(YEAR FROM i.issued_at) = ?
		GROUP BY to_char(i.issued_at, 'YYYY-MM')
		ORDER BY month
	`, year).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка построения отчёта по выручке: %w", err)
	}

	for i := range rows {
		rows[i].Invoiced = models.Round2(rows[i].Invoiced)
		rows[i].Collected = models.Round2(rows[i].Collected)
	}
	return rows, nil
}

// ARAgingRow строка отчёта по задолженности клиента
type ARAgingRow struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Current      float64 `json:"current"`  // до 30 дней
	Days31To60   float64 `json:"days_31_60"`
	Over60       float64 `json:"over_60"`
	TotalDue     float64 `json:"total_due"`
}

// GetARAging возвращает дебиторскую задолженность по клиентам
// с разбивкой по срокам с даты выставления счёта.
func (s *ReportService) GetARAging() ([]ARAgingRow, error) {
	var rows []ARAgingRow
	err := s.db.Raw(`
		SELECT c.id AS customer_id,
		       c.name AS customer_name,
		       COALESCE(SUM(CASE WHEN i.issued_at >= now() - interval '30 days' THEN due.amount ELSE 0 END), 0) AS current,
		       COALESCE(SUM(CASE WHEN i.issued_at < now() - interval '30 days'
		                          AND i.issued_at >= now() - interval '60 days' THEN due.amount ELSE 0 END), 0) AS days31_to60,
		       COALESCE(SUM(CASE WHEN i.issued_at < now() - interval '60 days' THEN due.amount ELSE 0 END), 0) AS over60,
		       COALESCE(SUM(due.amount), 0) AS total_due
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		JOIN LATERAL (
			SELECT i.grand_total - COALESCE(SUM(pa.amount_applied), 0) AS amount
			FROM payment_allocations pa
			WHERE pa.invoice_id = i.id
			GROUP BY i.grand_total
			UNION ALL
			SELECT i.grand_total
			WHERE NOT EXISTS (SELECT 1 FROM payment_allocations pa WHERE pa.invoice_id = i.id)
		) due ON due.amount > 0
		WHERE i.status <> 'PAID_FULL'
		GROUP BY c.id, c.name
		ORDER BY total_due DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка построения отчёта по задолженности: %w", err)
	}

	for i := range rows {
		rows[i].Current = models.Round2(rows[i].Current)
		rows[i].Days31To60 = models.Round2(rows[i].Days31To60)
		rows[i].Over60 = models.Round2(rows[i].Over60)
		rows[i].TotalDue = models.Round2(rows[i].TotalDue)
	}
	return rows, nil
}

// TopCustomerRow строка отчёта по лучшим клиентам
type TopCustomerRow struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	TotalPaid    float64 `json:"total_paid"`
	Invoices     int64   `json:"invoices"`
}

// GetTopCustomers возвращает клиентов с наибольшей суммой оплат
func (s *ReportService) GetTopCustomers(limit int) ([]TopCustomerRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []TopCustomerRow
	err := s.db.Raw(`
		SELECT c.id AS customer_id,
		       c.name AS customer_name,
		       COALESCE(SUM(pa.amount_applied), 0) AS total_paid,
		       COUNT(DISTINCT pa.invoice_id) AS invoices
		FROM payment_allocations pa
		JOIN payments p ON p.id = pa.payment_id
		JOIN customers c ON c.id = p.customer_id
		GROUP BY c.id, c.name
		ORDER BY total_paid DESC
		LIMIT ?
	`, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка построения отчёта по клиентам: %w", err)
	}

	for i := range rows {
		rows[i].TotalPaid = models.Round2(rows[i].TotalPaid)
	}
	return rows, nil
}

// ExportStockXLSX формирует Excel файл с текущим остатком склада
func (s *ReportService) ExportStockXLSX() ([]byte, string, error) {
	var vehicles []models.Vehicle
	err := s.db.Preload("Model").Preload("Model.Brand").Preload("Warehouse").
		Where("status IN ?", []models.VehicleStatus{
			models.VehicleStatusUnderInspection,
			models.VehicleStatusInStock,
			models.VehicleStatusReserved,
			models.VehicleStatusAllocated,
			models.VehicleStatusPendingPayment,
		}).
		Order("acquired_at ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, "", fmt.Errorf("ошибка выборки остатка склада: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("⚠️ Ошибка закрытия Excel файла: %v", err)
		}
	}()

	sheet := "Остаток"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка создания листа: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"VIN", "Марка", "Модель", "Цвет", "Год", "Статус", "Склад", "Себестоимость", "Цена продажи", "Дата приёмки"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
	})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", endCell, headerStyle)
	}

	for rowIdx, v := range vehicles {
		brandName := ""
		modelName := ""
		if v.Model != nil {
			modelName = v.Model.Name
			if v.Model.Brand != nil {
				brandName = v.Model.Brand.Name
			}
		}
		warehouseName := ""
		if v.Warehouse != nil {
			warehouseName = v.Warehouse.Name
		}

		values := []interface{}{
			v.VIN,
			brandName,
			modelName,
			v.Color,
			v.Year,
			string(v.Status),
			warehouseName,
			v.LandedCost,
			v.SellingPrice,
			v.AcquiredAt.Format("2006-01-02"),
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "G", 18)
	f.SetColWidth(sheet, "H", "J", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("ошибка записи Excel файла: %w", err)
	}

	filename := fmt.Sprintf("stock_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	log.Printf("📦 Сформирован экспорт остатка склада: %d автомобилей", len(vehicles))
	return buf.Bytes(), filename, nil
}

// InvalidateCache сбрасывает кэш отчётов (вызывается после операций со складом)
func (s *ReportService) InvalidateCache() {
	if s.redis == nil {
		return
	}
	if err := s.redis.DeleteByPattern(reportCachePrefix + "*"); err != nil {
		log.Printf("⚠️ Не удалось сбросить кэш отчётов: %v", err)
	}
}
