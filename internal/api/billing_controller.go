package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/models"
	"showroom/server/internal/services"
)

// BillingController управляет счетами и платежами
type BillingController struct {
	billingService *services.BillingService
}

// NewBillingController создает новый контроллер
func NewBillingController(billingService *services.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
	}
}

// GetInvoices возвращает список счетов
// GET /api/v1/invoices?status=...&customer_id=...&limit=...
func (c *BillingController) GetInvoices(ctx *gin.Context) {
	invoices, err := c.billingService.GetInvoices(ctx.Query("status"), ctx.Query("customer_id"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения счетов")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
	})
}

// GetInvoice возвращает счёт по ID
// GET /api/v1/invoices/:id
func (c *BillingController) GetInvoice(ctx *gin.Context) {
	invoice, err := c.billingService.GetInvoice(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Счёт не найден")
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}

// CreateInvoice создает счёт вручную (не из заказа на продажу)
// POST /api/v1/invoices
func (c *BillingController) CreateInvoice(ctx *gin.Context) {
	var req struct {
		CustomerID string                       `json:"customer_id" binding:"required"`
		Items      []services.InvoiceItemInput  `json:"items" binding:"required"`
		Discount   float64                      `json:"discount"`
		Tax        float64                      `json:"tax"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	invoice, err := c.billingService.CreateInvoice(req.CustomerID, req.Items, req.Discount, req.Tax)
	if err != nil {
		respondError(ctx, err, "Ошибка создания счёта")
		return
	}

	ctx.JSON(http.StatusCreated, invoice)
}

// UpdateInvoice обновляет скидку и налог счёта без оплат
// PUT /api/v1/invoices/:id
func (c *BillingController) UpdateInvoice(ctx *gin.Context) {
	var req struct {
		Discount float64 `json:"discount"`
		Tax      float64 `json:"tax"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	invoice, err := c.billingService.UpdateInvoice(ctx.Param("id"), req.Discount, req.Tax)
	if err != nil {
		respondError(ctx, err, "Ошибка обновления счёта")
		return
	}

	ctx.JSON(http.StatusOK, invoice)
}

// DeleteInvoice удаляет счёт без оплат
// DELETE /api/v1/invoices/:id
func (c *BillingController) DeleteInvoice(ctx *gin.Context) {
	if err := c.billingService.DeleteInvoice(ctx.Param("id")); err != nil {
		respondError(ctx, err, "Ошибка удаления счёта")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Счёт удалён",
	})
}

// GetPayments возвращает список поступлений
// GET /api/v1/payments?customer_id=...&limit=...
func (c *BillingController) GetPayments(ctx *gin.Context) {
	payments, err := c.billingService.GetPayments(ctx.Query("customer_id"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения поступлений")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"payments": payments,
	})
}

// GetPayment возвращает поступление по ID
// GET /api/v1/payments/:id
func (c *BillingController) GetPayment(ctx *gin.Context) {
	payment, err := c.billingService.GetPayment(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Поступление не найдено")
		return
	}

	ctx.JSON(http.StatusOK, payment)
}

// CreatePayment регистрирует поступление денег от клиента
// POST /api/v1/payments
func (c *BillingController) CreatePayment(ctx *gin.Context) {
	var req struct {
		CustomerID string               `json:"customer_id" binding:"required"`
		Amount     float64              `json:"amount" binding:"required"`
		Method     models.PaymentMethod `json:"method" binding:"required"`
		Notes      string               `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	payment, err := c.billingService.CreatePayment(req.CustomerID, req.Amount, req.Method, req.Notes)
	if err != nil {
		respondError(ctx, err, "Ошибка регистрации поступления")
		return
	}

	ctx.JSON(http.StatusCreated, payment)
}

// AllocatePayment распределяет поступление по счетам клиента
// POST /api/v1/payments/:id/allocate
func (c *BillingController) AllocatePayment(ctx *gin.Context) {
	var req struct {
		Lines []services.AllocationLineInput `json:"lines" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	payment, err := c.billingService.AllocatePayment(ctx.Param("id"), req.Lines)
	if err != nil {
		respondError(ctx, err, "Ошибка распределения поступления")
		return
	}

	ctx.JSON(http.StatusOK, payment)
}
