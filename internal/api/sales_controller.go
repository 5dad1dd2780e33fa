package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/services"
)

// SalesController управляет коммерческими предложениями и заказами на продажу
type SalesController struct {
	quotations  *services.QuotationService
	salesOrders *services.SalesOrderService
	allotments  *services.AllotmentService
}

// NewSalesController создает новый контроллер
func NewSalesController(quotations *services.QuotationService, salesOrders *services.SalesOrderService, allotments *services.AllotmentService) *SalesController {
	return &SalesController{
		quotations:  quotations,
		salesOrders: salesOrders,
		allotments:  allotments,
	}
}

func queryLimit(ctx *gin.Context) int {
	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}
	return limit
}

// GetQuotations возвращает список предложений
// GET /api/v1/quotations?status=...&customer_id=...&limit=...
func (c *SalesController) GetQuotations(ctx *gin.Context) {
	quotes, err := c.quotations.GetQuotations(ctx.Query("status"), ctx.Query("customer_id"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения предложений")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"quotations": quotes,
	})
}

// GetQuotation возвращает предложение по ID
// GET /api/v1/quotations/:id
func (c *SalesController) GetQuotation(ctx *gin.Context) {
	quote, err := c.quotations.GetQuotation(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Предложение не найдено")
		return
	}

	ctx.JSON(http.StatusOK, quote)
}

// CreateQuotation создает коммерческое предложение
// POST /api/v1/quotations
func (c *SalesController) CreateQuotation(ctx *gin.Context) {
	var req struct {
		CustomerID string                          `json:"customer_id" binding:"required"`
		Items      []services.QuotationItemInput   `json:"items" binding:"required"`
		Discount   float64                         `json:"discount"`
		Tax        float64                         `json:"tax"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	quote, err := c.quotations.CreateQuotation(req.CustomerID, req.Items, req.Discount, req.Tax)
	if err != nil {
		respondError(ctx, err, "Ошибка создания предложения")
		return
	}

	ctx.JSON(http.StatusCreated, quote)
}

// ConfirmQuotation подтверждает предложение и создает заказ на продажу
// POST /api/v1/quotations/:id/confirm
func (c *SalesController) ConfirmQuotation(ctx *gin.Context) {
	var req struct {
		AutoAllocate bool `json:"auto_allocate"`
	}
	ctx.ShouldBindJSON(&req) // Необязательное тело

	order, err := c.quotations.ConfirmQuotation(ctx.Param("id"), req.AutoAllocate)
	if err != nil {
		respondError(ctx, err, "Ошибка подтверждения предложения")
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// GetSalesOrders возвращает список заказов на продажу
// GET /api/v1/sales-orders?status=...&customer_id=...&limit=...
func (c *SalesController) GetSalesOrders(ctx *gin.Context) {
	orders, err := c.salesOrders.GetSalesOrders(ctx.Query("status"), ctx.Query("customer_id"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения заказов на продажу")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"sales_orders": orders,
	})
}

// GetSalesOrder возвращает заказ на продажу по ID
// GET /api/v1/sales-orders/:id
func (c *SalesController) GetSalesOrder(ctx *gin.Context) {
	order, err := c.salesOrders.GetSalesOrder(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Заказ на продажу не найден")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// CreateSalesOrder создает заказ на продажу конкретных автомобилей
// POST /api/v1/sales-orders
func (c *SalesController) CreateSalesOrder(ctx *gin.Context) {
	var req struct {
		CustomerID string                   `json:"customer_id" binding:"required"`
		Items      []services.SOItemInput   `json:"items" binding:"required"`
		RequestID  *string                  `json:"request_id"`
		Discount   float64                  `json:"discount"`
		Tax        float64                  `json:"tax"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	order, err := c.salesOrders.CreateSalesOrder(req.CustomerID, req.Items, req.RequestID, req.Discount, req.Tax)
	if err != nil {
		respondError(ctx, err, "Ошибка создания заказа на продажу")
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// GetContract возвращает договор для страницы подтверждения клиентом.
// Доступен по ссылке из письма без авторизации.
// GET /api/v1/sales-orders/:id/contract
func (c *SalesController) GetContract(ctx *gin.Context) {
	order, err := c.salesOrders.GetSalesOrder(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка получения договора")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// CustomerConfirm подтверждает договор со стороны клиента.
// Вызывается по ссылке из письма без авторизации.
// POST /api/v1/sales-orders/:id/customer-confirm
func (c *SalesController) CustomerConfirm(ctx *gin.Context) {
	order, err := c.salesOrders.CustomerConfirm(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка подтверждения договора")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// ConfirmPayment фиксирует полную оплату заказа: автомобили проданы,
// выставляется счёт.
// POST /api/v1/sales-orders/:id/confirm-payment
func (c *SalesController) ConfirmPayment(ctx *gin.Context) {
	invoice, err := c.salesOrders.ConfirmPayment(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка подтверждения оплаты")
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}

// IssueInvoice выставляет счёт по заказу на продажу
// POST /api/v1/sales-orders/:id/issue-invoice
func (c *SalesController) IssueInvoice(ctx *gin.Context) {
	invoice, err := c.salesOrders.IssueInvoice(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка выставления счёта")
		return
	}

	ctx.JSON(http.StatusCreated, invoice)
}

// GetAllotments возвращает список закреплений автомобилей
// GET /api/v1/allotments?status=...&so_id=...&limit=...
func (c *SalesController) GetAllotments(ctx *gin.Context) {
	allotments, err := c.allotments.GetAllotments(ctx.Query("status"), ctx.Query("so_id"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения закреплений")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"allotments": allotments,
	})
}

// ReserveVehicle закрепляет автомобиль за заказом на продажу
// POST /api/v1/allotments
func (c *SalesController) ReserveVehicle(ctx *gin.Context) {
	var req struct {
		SalesOrderID string `json:"sales_order_id" binding:"required"`
		VehicleID    string `json:"vehicle_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	allotment, err := c.allotments.Reserve(req.SalesOrderID, req.VehicleID)
	if err != nil {
		respondError(ctx, err, "Ошибка закрепления автомобиля")
		return
	}

	ctx.JSON(http.StatusCreated, allotment)
}

// ReleaseAllotment снимает закрепление автомобиля
// POST /api/v1/allotments/:id/release
func (c *SalesController) ReleaseAllotment(ctx *gin.Context) {
	allotment, err := c.allotments.Release(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка снятия закрепления")
		return
	}

	ctx.JSON(http.StatusOK, allotment)
}
