package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/services"
)

// RequestController управляет заявками клиентов на автомобили
type RequestController struct {
	requestService *services.VehicleRequestService
}

// NewRequestController создает новый контроллер
func NewRequestController(requestService *services.VehicleRequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// GetRequests возвращает список заявок
// GET /api/v1/vehicle-requests?status=...&limit=...
func (c *RequestController) GetRequests(ctx *gin.Context) {
	requests, err := c.requestService.GetRequests(ctx.Query("status"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения заявок")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"requests": requests,
	})
}

// GetRequest возвращает заявку по ID
// GET /api/v1/vehicle-requests/:id
func (c *RequestController) GetRequest(ctx *gin.Context) {
	request, err := c.requestService.GetRequest(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Заявка не найдена")
		return
	}

	ctx.JSON(http.StatusOK, request)
}

// CreateRequest создает заявку клиента. Доступно без авторизации,
// для формы на сайте салона.
// POST /api/v1/vehicle-requests
func (c *RequestController) CreateRequest(ctx *gin.Context) {
	var req services.VehicleRequestInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	request, err := c.requestService.CreateRequest(req)
	if err != nil {
		respondError(ctx, err, "Ошибка создания заявки")
		return
	}

	ctx.JSON(http.StatusCreated, request)
}

// AssignVehicle подбирает автомобиль со склада под заявку
// POST /api/v1/vehicle-requests/:id/assign
func (c *RequestController) AssignVehicle(ctx *gin.Context) {
	var req struct {
		VehicleID string `json:"vehicle_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	request, err := c.requestService.AssignVehicle(ctx.Param("id"), req.VehicleID)
	if err != nil {
		respondError(ctx, err, "Ошибка подбора автомобиля")
		return
	}

	ctx.JSON(http.StatusOK, request)
}

// CreatePO создает заказ поставщику под заявку
// POST /api/v1/vehicle-requests/:id/create-po
func (c *RequestController) CreatePO(ctx *gin.Context) {
	order, err := c.requestService.CreatePOForRequest(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка создания заказа поставщику")
		return
	}

	ctx.JSON(http.StatusCreated, order)
}

// CancelRequest отменяет заявку
// POST /api/v1/vehicle-requests/:id/cancel
func (c *RequestController) CancelRequest(ctx *gin.Context) {
	request, err := c.requestService.Cancel(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка отмены заявки")
		return
	}

	ctx.JSON(http.StatusOK, request)
}
