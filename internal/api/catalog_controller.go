package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/models"
	"showroom/server/internal/services"
)

// CatalogController управляет справочниками салона
type CatalogController struct {
	catalogService *services.CatalogService
}

// NewCatalogController создает новый контроллер
func NewCatalogController(catalogService *services.CatalogService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
	}
}

// GetBrands возвращает список марок
// GET /api/v1/catalog/brands
func (c *CatalogController) GetBrands(ctx *gin.Context) {
	brands, err := c.catalogService.GetBrands()
	if err != nil {
		respondError(ctx, err, "Ошибка получения марок")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"brands": brands})
}

// CreateBrand создает марку
// POST /api/v1/catalog/brands
func (c *CatalogController) CreateBrand(ctx *gin.Context) {
	var brand models.Brand
	if err := ctx.ShouldBindJSON(&brand); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	if err := c.catalogService.CreateBrand(&brand); err != nil {
		respondError(ctx, err, "Ошибка создания марки")
		return
	}
	ctx.JSON(http.StatusCreated, brand)
}

// GetModels возвращает список моделей
// GET /api/v1/catalog/models?brand_id=...
func (c *CatalogController) GetModels(ctx *gin.Context) {
	vehicleModels, err := c.catalogService.GetModels(ctx.Query("brand_id"))
	if err != nil {
		respondError(ctx, err, "Ошибка получения моделей")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": vehicleModels})
}

// CreateModel создает модель
// POST /api/v1/catalog/models
func (c *CatalogController) CreateModel(ctx *gin.Context) {
	var model models.VehicleModel
	if err := ctx.ShouldBindJSON(&model); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	if err := c.catalogService.CreateModel(&model); err != nil {
		respondError(ctx, err, "Ошибка создания модели")
		return
	}
	ctx.JSON(http.StatusCreated, model)
}

// GetSuppliers возвращает список поставщиков
// GET /api/v1/catalog/suppliers
func (c *CatalogController) GetSuppliers(ctx *gin.Context) {
	suppliers, err := c.catalogService.GetSuppliers()
	if err != nil {
		respondError(ctx, err, "Ошибка получения поставщиков")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"suppliers": suppliers})
}

// CreateSupplier создает поставщика
// POST /api/v1/catalog/suppliers
func (c *CatalogController) CreateSupplier(ctx *gin.Context) {
	var supplier models.Supplier
	if err := ctx.ShouldBindJSON(&supplier); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	if err := c.catalogService.CreateSupplier(&supplier); err != nil {
		respondError(ctx, err, "Ошибка создания поставщика")
		return
	}
	ctx.JSON(http.StatusCreated, supplier)
}

// GetSupplierModels возвращает модели поставщика с закупочными ценами
// GET /api/v1/catalog/suppliers/:id/models
func (c *CatalogController) GetSupplierModels(ctx *gin.Context) {
	links, err := c.catalogService.GetSupplierModels(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Ошибка получения моделей поставщика")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"supplier_models": links})
}

// SetSupplierModel привязывает модель к поставщику
// POST /api/v1/catalog/suppliers/:id/models
func (c *CatalogController) SetSupplierModel(ctx *gin.Context) {
	var req struct {
		ModelID       string  `json:"model_id" binding:"required"`
		PurchasePrice float64 `json:"purchase_price" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	link, err := c.catalogService.SetSupplierModel(ctx.Param("id"), req.ModelID, req.PurchasePrice)
	if err != nil {
		respondError(ctx, err, "Ошибка привязки модели к поставщику")
		return
	}
	ctx.JSON(http.StatusOK, link)
}

// GetWarehouses возвращает список складов
// GET /api/v1/catalog/warehouses
func (c *CatalogController) GetWarehouses(ctx *gin.Context) {
	warehouses, err := c.catalogService.GetWarehouses()
	if err != nil {
		respondError(ctx, err, "Ошибка получения складов")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"warehouses": warehouses})
}

// CreateWarehouse создает склад
// POST /api/v1/catalog/warehouses
func (c *CatalogController) CreateWarehouse(ctx *gin.Context) {
	var warehouse models.Warehouse
	if err := ctx.ShouldBindJSON(&warehouse); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	if err := c.catalogService.CreateWarehouse(&warehouse); err != nil {
		respondError(ctx, err, "Ошибка создания склада")
		return
	}
	ctx.JSON(http.StatusCreated, warehouse)
}

// GetCustomers возвращает список клиентов
// GET /api/v1/customers?search=...&limit=...
func (c *CatalogController) GetCustomers(ctx *gin.Context) {
	customers, err := c.catalogService.GetCustomers(ctx.Query("search"), queryLimit(ctx))
	if err != nil {
		respondError(ctx, err, "Ошибка получения клиентов")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"customers": customers})
}

// GetCustomer возвращает клиента по ID
// GET /api/v1/customers/:id
func (c *CatalogController) GetCustomer(ctx *gin.Context) {
	customer, err := c.catalogService.GetCustomer(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err, "Клиент не найден")
		return
	}
	ctx.JSON(http.StatusOK, customer)
}

// CreateCustomer создает клиента
// POST /api/v1/customers
func (c *CatalogController) CreateCustomer(ctx *gin.Context) {
	var customer models.Customer
	if err := ctx.ShouldBindJSON(&customer); err != nil {
		respondBadJSON(ctx, err)
		return
	}
	if err := c.catalogService.CreateCustomer(&customer); err != nil {
		respondError(ctx, err, "Ошибка создания клиента")
		return
	}
	ctx.JSON(http.StatusCreated, customer)
}
