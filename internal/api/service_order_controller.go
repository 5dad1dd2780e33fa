package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/services"
)

// ServiceOrderController управляет нарядами на предпродажный осмотр
type ServiceOrderController struct {
	serviceOrders *services.ServiceOrderService
}

// NewServiceOrderController создает новый контроллер
func NewServiceOrderController(serviceOrders *services.ServiceOrderService) *ServiceOrderController {
	return &ServiceOrderController{
		serviceOrders: serviceOrders,
	}
}

// GetServiceOrders возвращает список нарядов
// GET /api/v1/service-orders?status=...&po_id=...&limit=...
func (c *ServiceOrderController) GetServiceOrders(ctx *gin.Context) {
	status := ctx.Query("status")
	poID := ctx.Query("po_id")

	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	orders, err := c.serviceOrders.GetServiceOrders(status, poID, limit)
	if err != nil {
		respondError(ctx, err, "Ошибка получения нарядов")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"service_orders": orders,
	})
}

// GetServiceOrder возвращает наряд по ID
// GET /api/v1/service-orders/:id
func (c *ServiceOrderController) GetServiceOrder(ctx *gin.Context) {
	svcID := ctx.Param("id")

	order, err := c.serviceOrders.GetServiceOrder(svcID)
	if err != nil {
		respondError(ctx, err, "Наряд не найден")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// StartServiceOrder переводит наряд в работу
// POST /api/v1/service-orders/:id/start
func (c *ServiceOrderController) StartServiceOrder(ctx *gin.Context) {
	svcID := ctx.Param("id")

	order, err := c.serviceOrders.Start(svcID)
	if err != nil {
		respondError(ctx, err, "Ошибка запуска наряда")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// CompleteServiceOrder завершает осмотр: прошедшие автомобили попадают
// на склад, непрошедшие возвращаются поставщику.
// POST /api/v1/service-orders/:id/complete
func (c *ServiceOrderController) CompleteServiceOrder(ctx *gin.Context) {
	svcID := ctx.Param("id")

	var req struct {
		PassedVehicleIDs []string `json:"passed_vehicle_ids"`
		FailedVehicleIDs []string `json:"failed_vehicle_ids"`
		FailReason       string   `json:"fail_reason"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	order, err := c.serviceOrders.Complete(svcID, req.PassedVehicleIDs, req.FailedVehicleIDs, req.FailReason)
	if err != nil {
		respondError(ctx, err, "Ошибка завершения осмотра")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// CancelServiceOrder отменяет наряд
// POST /api/v1/service-orders/:id/cancel
func (c *ServiceOrderController) CancelServiceOrder(ctx *gin.Context) {
	svcID := ctx.Param("id")

	order, err := c.serviceOrders.Cancel(svcID)
	if err != nil {
		respondError(ctx, err, "Ошибка отмены наряда")
		return
	}

	ctx.JSON(http.StatusOK, order)
}

// DeleteServiceOrder удаляет незапущенный наряд
// DELETE /api/v1/service-orders/:id
func (c *ServiceOrderController) DeleteServiceOrder(ctx *gin.Context) {
	svcID := ctx.Param("id")

	if err := c.serviceOrders.Delete(svcID); err != nil {
		respondError(ctx, err, "Ошибка удаления наряда")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Наряд удалён",
	})
}
