package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/services"
)

// ReportController отдает управленческие отчёты
type ReportController struct {
	reportService *services.ReportService
}

// NewReportController создает новый контроллер
func NewReportController(reportService *services.ReportService) *ReportController {
	return &ReportController{
		reportService: reportService,
	}
}

// GetInventorySummary возвращает сводку склада по статусам
// GET /api/v1/reports/inventory
func (c *ReportController) GetInventorySummary(ctx *gin.Context) {
	summary, err := c.reportService.GetInventorySummary()
	if err != nil {
		respondError(ctx, err, "Ошибка построения сводки склада")
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

// GetMonthlyRevenue возвращает выручку по месяцам
// GET /api/v1/reports/revenue?year=2026
func (c *ReportController) GetMonthlyRevenue(ctx *gin.Context) {
	year, _ := strconv.Atoi(ctx.Query("year"))

	rows, err := c.reportService.GetMonthlyRevenue(year)
	if err != nil {
		respondError(ctx, err, "Ошибка построения отчёта по выручке")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"rows": rows,
	})
}

// GetARAging возвращает дебиторскую задолженность по клиентам
// GET /api/v1/reports/ar-aging
func (c *ReportController) GetARAging(ctx *gin.Context) {
	rows, err := c.reportService.GetARAging()
	if err != nil {
		respondError(ctx, err, "Ошибка построения отчёта по задолженности")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"rows": rows,
	})
}

// GetTopCustomers возвращает клиентов с наибольшей суммой оплат
// GET /api/v1/reports/top-customers?limit=10
func (c *ReportController) GetTopCustomers(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	rows, err := c.reportService.GetTopCustomers(limit)
	if err != nil {
		respondError(ctx, err, "Ошибка построения отчёта по клиентам")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"rows": rows,
	})
}

// ExportStock отдает Excel файл с текущим остатком склада
// GET /api/v1/reports/inventory/export
func (c *ReportController) ExportStock(ctx *gin.Context) {
	data, filename, err := c.reportService.ExportStockXLSX()
	if err != nil {
		respondError(ctx, err, "Ошибка формирования экспорта")
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
