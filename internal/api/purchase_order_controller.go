package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/services"
)

// PurchaseOrderController управляет заказами поставщикам
type PurchaseOrderController struct {
	orderService *services.PurchaseOrderService
}

// NewPurchaseOrderController создает новый контроллер
func NewPurchaseOrderController(orderService *services.PurchaseOrderService) *PurchaseOrderController {
	return &PurchaseOrderController{
		orderService: orderService,
	}
}

// GetPurchaseOrders возвращает список заказов
// GET /api/v1/purchase-orders?status=...&supplier_id=...&limit=...
func (c *PurchaseOrderController) GetPurchaseOrders(ctx *gin.Context) {
	status := ctx.Query("status")
	supplierID := ctx.Query("supplier_id")

	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	orders, err := c.orderService.GetPurchaseOrders(status, supplierID, limit)
	if err != nil {
		respondError(ctx, err, "Ошибка получения заказов")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"orders": orders,
	})
}

// GetPurchaseOrder возвращает заказ по ID
// GET /api/v1/purchase-orders/:id
func (c *PurchaseOrderController) GetPurchaseOrder(ctx *gin.Context) {
	orderID := ctx.Param("id")

	order, err := c.orderService.GetPurchaseOrder(orderID)
	if err != nil {
		respondError(ctx, err, "Заказ не найден")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// CreatePurchaseOrder создает новый заказ поставщику
// POST /api/v1/purchase-orders
func (c *PurchaseOrderController) CreatePurchaseOrder(ctx *gin.Context) {
	var req struct {
		SupplierID string                 `json:"supplier_id" binding:"required"`
		Items      []services.POItemInput `json:"items" binding:"required"`
		RequestID  *string                `json:"request_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	order, err := c.orderService.CreatePurchaseOrder(req.SupplierID, req.Items, req.RequestID)
	if err != nil {
		respondError(ctx, err, "Ошибка создания заказа")
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// DeletePurchaseOrder удаляет неотправленный заказ
// DELETE /api/v1/purchase-orders/:id
func (c *PurchaseOrderController) DeletePurchaseOrder(ctx *gin.Context) {
	orderID := ctx.Param("id")

	if err := c.orderService.DeletePurchaseOrder(orderID); err != nil {
		respondError(ctx, err, "Ошибка удаления заказа")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Заказ удалён",
	})
}

// SendPurchaseOrder отправляет заказ поставщику с ссылкой для подтверждения
// POST /api/v1/purchase-orders/:id/send
func (c *PurchaseOrderController) SendPurchaseOrder(ctx *gin.Context) {
	orderID := ctx.Param("id")

	token, err := c.orderService.SendPurchaseOrder(orderID)
	if err != nil {
		respondError(ctx, err, "Ошибка отправки заказа")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Заказ отправлен поставщику",
		"token":   token,
	})
}

// ConfirmPurchaseOrder подтверждает заказ по токену из письма.
// Вызывается поставщиком без авторизации.
// GET|POST /api/v1/purchase-orders/:id/confirm?token=...
func (c *PurchaseOrderController) ConfirmPurchaseOrder(ctx *gin.Context) {
	orderID := ctx.Param("id")
	token := ctx.Query("token")
	if token == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error": "Отсутствует токен подтверждения",
		})
		return
	}

	order, err := c.orderService.ConfirmByToken(orderID, token)
	if err != nil {
		respondError(ctx, err, "Ошибка подтверждения заказа")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Заказ подтверждён",
		"order":   order,
	})
}

// ReceivePurchaseOrder принимает автомобили по заказу
// POST /api/v1/purchase-orders/:id/receive
func (c *PurchaseOrderController) ReceivePurchaseOrder(ctx *gin.Context) {
	orderID := ctx.Param("id")

	var req struct {
		WarehouseID string                          `json:"warehouse_id" binding:"required"`
		Vehicles    []services.ReceivedVehicleInput `json:"vehicles"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	receipt, err := c.orderService.ReceivePurchaseOrder(orderID, req.WarehouseID, req.Vehicles)
	if err != nil {
		respondError(ctx, err, "Ошибка приёмки заказа")
		return
	}

	ctx.JSON(http.StatusCreated, receipt)
}

// GetGoodsReceipts возвращает накладные приёмки
// GET /api/v1/goods-receipts?po_id=...&limit=...
func (c *PurchaseOrderController) GetGoodsReceipts(ctx *gin.Context) {
	poID := ctx.Query("po_id")

	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	receipts, err := c.orderService.GetGoodsReceipts(poID, limit)
	if err != nil {
		respondError(ctx, err, "Ошибка получения накладных")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"receipts": receipts,
	})
}

// GetGoodsReceipt возвращает накладную приёмки по ID
// GET /api/v1/goods-receipts/:id
func (c *PurchaseOrderController) GetGoodsReceipt(ctx *gin.Context) {
	grID := ctx.Param("id")

	receipt, err := c.orderService.GetGoodsReceipt(grID)
	if err != nil {
		respondError(ctx, err, "Накладная не найдена")
		return
	}

	ctx.JSON(http.StatusOK, receipt)
}

// GetGoodsReturns возвращает возвраты поставщикам
// GET /api/v1/goods-returns?po_id=...&limit=...
func (c *PurchaseOrderController) GetGoodsReturns(ctx *gin.Context) {
	poID := ctx.Query("po_id")

	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	returns, err := c.orderService.GetGoodsReturns(poID, limit)
	if err != nil {
		respondError(ctx, err, "Ошибка получения возвратов")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"returns": returns,
	})
}
