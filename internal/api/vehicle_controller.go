package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/models"
	"showroom/server/internal/services"
)

// VehicleController управляет складом автомобилей
type VehicleController struct {
	inventoryService *services.InventoryService
}

// NewVehicleController создает новый контроллер
func NewVehicleController(inventoryService *services.InventoryService) *VehicleController {
	return &VehicleController{
		inventoryService: inventoryService,
	}
}

// GetVehicles возвращает список автомобилей
// GET /api/v1/vehicles?status=...&model_id=...&warehouse_id=...&limit=...
func (c *VehicleController) GetVehicles(ctx *gin.Context) {
	status := ctx.Query("status")
	modelID := ctx.Query("model_id")
	warehouseID := ctx.Query("warehouse_id")

	limitStr := ctx.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 100
	}

	vehicles, err := c.inventoryService.GetVehicles(status, modelID, warehouseID, limit)
	if err != nil {
		respondError(ctx, err, "Ошибка получения автомобилей")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"vehicles": vehicles,
	})
}

// GetVehicle возвращает автомобиль по ID
// GET /api/v1/vehicles/:id
func (c *VehicleController) GetVehicle(ctx *gin.Context) {
	vehicleID := ctx.Param("id")

	vehicle, err := c.inventoryService.GetVehicle(vehicleID)
	if err != nil {
		respondError(ctx, err, "Автомобиль не найден")
		return
	}

	ctx.JSON(http.StatusOK, vehicle)
}

// GetVehicleMoves возвращает журнал движений автомобиля
// GET /api/v1/vehicles/:id/moves
func (c *VehicleController) GetVehicleMoves(ctx *gin.Context) {
	vehicleID := ctx.Param("id")

	moves, err := c.inventoryService.GetVehicleMoves(vehicleID)
	if err != nil {
		respondError(ctx, err, "Ошибка получения движений")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"moves": moves,
	})
}

// MoveVehicle перемещает автомобиль между складами
// POST /api/v1/vehicles/:id/move
func (c *VehicleController) MoveVehicle(ctx *gin.Context) {
	vehicleID := ctx.Param("id")

	var req struct {
		FromWarehouseID *string `json:"from_warehouse_id"`
		ToWarehouseID   *string `json:"to_warehouse_id" binding:"required"`
		RefDocNo        string  `json:"ref_doc_no"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}

	err := c.inventoryService.MoveVehicle(vehicleID, req.FromWarehouseID, req.ToWarehouseID, models.MoveReasonTransfer, req.RefDocNo)
	if err != nil {
		respondError(ctx, err, "Ошибка перемещения автомобиля")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Автомобиль перемещён",
	})
}
