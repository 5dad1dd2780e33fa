package main

import (
	"log"
	"net/http"
	_ "net/http/pprof" // Для профилирования памяти
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"showroom/server/internal/api"
	"showroom/server/internal/config"
	"showroom/server/internal/database"
	"showroom/server/internal/models"
	"showroom/server/internal/services"
	"showroom/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	// Игнорируем ошибку, если файл не найден (для production окружений)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	// Загрузка конфигурации
	cfg := config.Load()

	// Логируем наличие DATABASE_URL (без пароля)
	if cfg.DatabaseURL != "" {
		safeURL := cfg.DatabaseURL
		if idx := strings.Index(safeURL, "@"); idx > 0 {
			if schemeIdx := strings.Index(safeURL, "://"); schemeIdx > 0 {
				safeURL = safeURL[:schemeIdx+3] + "***@" + safeURL[idx+1:]
			}
		}
		log.Printf("📋 DATABASE_URL установлен: %s", safeURL)
	} else {
		log.Printf("⚠️ DATABASE_URL не установлен, используется значение по умолчанию")
	}

	// Подключение к PostgreSQL
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ PostgreSQL connection failed: %v", err)
	}
	defer database.ClosePostgres(db)

	// Выполняем миграции
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Подключение к Redis (с поддержкой Sentinel)
	redisClient, err := database.ConnectRedis(
		cfg.RedisURL,
		cfg.RedisSentinelAddrs,
		cfg.RedisMasterName,
	)
	var redisUtil *utils.RedisClient
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	// Сервис аудита: фоновый воркер пишет журнал после коммитов
	auditService := services.NewAuditService(db)
	defer auditService.Close()
	log.Println("✅ Audit service initialized")

	// Kafka publisher доменных событий (необязателен)
	var eventPublisher *api.KafkaEventPublisher
	if cfg.KafkaBrokers != "" {
		eventPublisher = api.NewKafkaEventPublisher(cfg.KafkaBrokers, "showroom.events", cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		if eventPublisher != nil {
			auditService.AddSink(eventPublisher)
			defer eventPublisher.Close()
			log.Println("✅ Kafka event publisher подключен к аудиту")
		}
	} else {
		log.Println("⚠️ KAFKA_BROKERS не установлен, публикация событий отключена")
	}

	// SMTP для писем поставщикам и клиентам
	mailService := services.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	if cfg.SMTPHost == "" {
		log.Println("⚠️ SMTP_HOST не установлен, письма будут только логироваться")
	}

	// Токены подтверждения заказов поставщиками
	tokenService := services.NewPOTokenService(cfg.POConfirmSecret, time.Duration(cfg.POConfirmTTLHours)*time.Hour)

	// Доменные сервисы
	inventoryService := services.NewInventoryService(db, auditService)
	purchaseOrderService := services.NewPurchaseOrderService(db, inventoryService, tokenService, mailService, auditService, cfg.PublicBaseURL)
	serviceOrderService := services.NewServiceOrderService(db, inventoryService, purchaseOrderService, auditService)
	allotmentService := services.NewAllotmentService(db, inventoryService, auditService)
	quotationService := services.NewQuotationService(db, allotmentService, auditService)
	salesOrderService := services.NewSalesOrderService(db, inventoryService, allotmentService, mailService, auditService, cfg.PublicBaseURL)
	billingService := services.NewBillingService(db, auditService, cfg.DefaultTaxRate)
	requestService := services.NewVehicleRequestService(db, inventoryService, purchaseOrderService, auditService)
	catalogService := services.NewCatalogService(db)
	log.Println("✅ Domain services initialized")

	reportService := services.NewReportService(db, redisUtil, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)
	if redisUtil != nil {
		auditService.AddSink(&reportCacheInvalidator{reports: reportService})
		log.Println("✅ Report service initialized with Redis cache")
	} else {
		log.Println("⚠️ Report service initialized without cache: Redis not available")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Health check endpoint
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "Showroom Server",
			"version": "1.0.0",
		})
	})

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// CORS для фронтенда
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Контроллеры
	authController := api.NewAuthController(db, cfg.JWTSecret)
	vehicleController := api.NewVehicleController(inventoryService)
	purchaseOrderController := api.NewPurchaseOrderController(purchaseOrderService)
	serviceOrderController := api.NewServiceOrderController(serviceOrderService)
	salesController := api.NewSalesController(quotationService, salesOrderService, allotmentService)
	billingController := api.NewBillingController(billingService)
	requestController := api.NewRequestController(requestService)
	catalogController := api.NewCatalogController(catalogService)
	reportController := api.NewReportController(reportService)

	apiGroup := r.Group("/api/v1")

	// Публичные endpoints: формы сайта и ссылки из писем
	apiGroup.POST("/auth/login", authController.Login)
	apiGroup.POST("/vehicle-requests", requestController.CreateRequest)
	// Поставщик открывает ссылку из письма браузером, поэтому GET;
	// POST оставлен для программных клиентов
	apiGroup.GET("/purchase-orders/:id/confirm", purchaseOrderController.ConfirmPurchaseOrder)
	apiGroup.POST("/purchase-orders/:id/confirm", purchaseOrderController.ConfirmPurchaseOrder)
	apiGroup.GET("/sales-orders/:id/contract", salesController.GetContract)
	apiGroup.POST("/sales-orders/:id/customer-confirm", salesController.CustomerConfirm)
	log.Println("🔓 Public endpoints enabled: login, vehicle-requests, confirmations")

	// Все остальное требует авторизации сотрудника
	authorized := apiGroup.Group("")
	authorized.Use(authController.RequireAuth())
	{
		authGroup := authorized.Group("/auth")
		{
			authGroup.GET("/me", authController.Me)
			authGroup.POST("/register", authController.RequireAdmin(), authController.Register)
		}

		// Справочники
		catalogGroup := authorized.Group("/catalog")
		{
			catalogGroup.GET("/brands", catalogController.GetBrands)
			catalogGroup.POST("/brands", catalogController.CreateBrand)
			catalogGroup.GET("/models", catalogController.GetModels)
			catalogGroup.POST("/models", catalogController.CreateModel)
			catalogGroup.GET("/suppliers", catalogController.GetSuppliers)
			catalogGroup.POST("/suppliers", catalogController.CreateSupplier)
			catalogGroup.GET("/suppliers/:id/models", catalogController.GetSupplierModels)
			catalogGroup.POST("/suppliers/:id/models", catalogController.SetSupplierModel)
			catalogGroup.GET("/warehouses", catalogController.GetWarehouses)
			catalogGroup.POST("/warehouses", catalogController.CreateWarehouse)
		}
		authorized.GET("/customers", catalogController.GetCustomers)
		authorized.POST("/customers", catalogController.CreateCustomer)
		authorized.GET("/customers/:id", catalogController.GetCustomer)

		// Склад автомобилей
		vehicleGroup := authorized.Group("/vehicles")
		{
			vehicleGroup.GET("", vehicleController.GetVehicles)
			vehicleGroup.GET("/:id", vehicleController.GetVehicle)
			vehicleGroup.GET("/:id/moves", vehicleController.GetVehicleMoves)
			vehicleGroup.POST("/:id/move", vehicleController.MoveVehicle)
		}

		// Закупки: заказы поставщикам только для администраторов
		poGroup := authorized.Group("/purchase-orders")
		{
			poGroup.GET("", purchaseOrderController.GetPurchaseOrders)
			poGroup.GET("/:id", purchaseOrderController.GetPurchaseOrder)
			poGroup.POST("", authController.RequireAdmin(), purchaseOrderController.CreatePurchaseOrder)
			poGroup.DELETE("/:id", authController.RequireAdmin(), purchaseOrderController.DeletePurchaseOrder)
			poGroup.POST("/:id/send", authController.RequireAdmin(), purchaseOrderController.SendPurchaseOrder)
			poGroup.POST("/:id/receive", purchaseOrderController.ReceivePurchaseOrder)
		}
		authorized.GET("/goods-receipts", purchaseOrderController.GetGoodsReceipts)
		authorized.GET("/goods-receipts/:id", purchaseOrderController.GetGoodsReceipt)
		authorized.GET("/goods-returns", purchaseOrderController.GetGoodsReturns)

		// Предпродажный осмотр
		svcGroup := authorized.Group("/service-orders")
		{
			svcGroup.GET("", serviceOrderController.GetServiceOrders)
			svcGroup.GET("/:id", serviceOrderController.GetServiceOrder)
			svcGroup.POST("/:id/start", serviceOrderController.StartServiceOrder)
			svcGroup.POST("/:id/complete", serviceOrderController.CompleteServiceOrder)
			svcGroup.POST("/:id/cancel", serviceOrderController.CancelServiceOrder)
			svcGroup.DELETE("/:id", authController.RequireAdmin(), serviceOrderController.DeleteServiceOrder)
		}

		// Заявки клиентов
		requestGroup := authorized.Group("/vehicle-requests")
		{
			requestGroup.GET("", requestController.GetRequests)
			requestGroup.GET("/:id", requestController.GetRequest)
			requestGroup.POST("/:id/assign", requestController.AssignVehicle)
			requestGroup.POST("/:id/create-po", authController.RequireAdmin(), requestController.CreatePO)
			requestGroup.POST("/:id/cancel", requestController.CancelRequest)
		}

		// Продажи
		quoteGroup := authorized.Group("/quotations")
		{
			quoteGroup.GET("", salesController.GetQuotations)
			quoteGroup.GET("/:id", salesController.GetQuotation)
			quoteGroup.POST("", salesController.CreateQuotation)
			quoteGroup.POST("/:id/confirm", salesController.ConfirmQuotation)
		}
		soGroup := authorized.Group("/sales-orders")
		{
			soGroup.GET("", salesController.GetSalesOrders)
			soGroup.GET("/:id", salesController.GetSalesOrder)
			soGroup.POST("", salesController.CreateSalesOrder)
			soGroup.POST("/:id/confirm-payment", salesController.ConfirmPayment)
			soGroup.POST("/:id/issue-invoice", salesController.IssueInvoice)
		}
		allotGroup := authorized.Group("/allotments")
		{
			allotGroup.GET("", salesController.GetAllotments)
			allotGroup.POST("", salesController.ReserveVehicle)
			allotGroup.POST("/:id/release", salesController.ReleaseAllotment)
		}

		// Биллинг
		invoiceGroup := authorized.Group("/invoices")
		{
			invoiceGroup.GET("", billingController.GetInvoices)
			invoiceGroup.GET("/:id", billingController.GetInvoice)
			invoiceGroup.POST("", billingController.CreateInvoice)
			invoiceGroup.PUT("/:id", billingController.UpdateInvoice)
			invoiceGroup.DELETE("/:id", billingController.DeleteInvoice)
		}
		paymentGroup := authorized.Group("/payments")
		{
			paymentGroup.GET("", billingController.GetPayments)
			paymentGroup.GET("/:id", billingController.GetPayment)
			paymentGroup.POST("", billingController.CreatePayment)
			paymentGroup.POST("/:id/allocate", billingController.AllocatePayment)
		}

		// Отчёты
		reportGroup := authorized.Group("/reports")
		{
			reportGroup.GET("/inventory", reportController.GetInventorySummary)
			reportGroup.GET("/inventory/export", reportController.ExportStock)
			reportGroup.GET("/revenue", reportController.GetMonthlyRevenue)
			reportGroup.GET("/ar-aging", reportController.GetARAging)
			reportGroup.GET("/top-customers", reportController.GetTopCustomers)
		}
	}

	// WebSocket для рабочих мест менеджеров
	apiGroup.GET("/ws", api.ServeWS)
	go api.BackofficeHub.Run()
	log.Println("🖥️ WebSocket Hub запущен для рабочих мест")

	// Consumer транслирует события из Kafka в WebSocket
	if cfg.KafkaBrokers != "" {
		kafkaConsumer := api.NewKafkaWSConsumer(cfg.KafkaBrokers, "showroom.events", cfg.KafkaUsername, cfg.KafkaPassword, cfg.KafkaCACert)
		if kafkaConsumer != nil {
			kafkaConsumer.Start()
			defer kafkaConsumer.Stop()
		}
	} else {
		log.Println("⚠️ Kafka WS Consumer НЕ запущен: KAFKA_BROKERS не установлен")
	}

	// Запуск HTTP сервера для pprof (профилирование памяти)
	// Доступен на http://localhost:6060/debug/pprof/
	go func() {
		pprofPort := "6060"
		log.Printf("🔍 pprof доступен на http://localhost:%s/debug/pprof/", pprofPort)
		if err := http.ListenAndServe("localhost:"+pprofPort, nil); err != nil {
			log.Printf("⚠️ pprof server failed to start: %v", err)
		}
	}()

	// Периодическое логирование статистики памяти
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			logMemoryStats()
		}
	}()

	port := cfg.ServerPort
	if port == "" {
		port = os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📡 API доступен на http://0.0.0.0:%s/api/v1", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// reportCacheInvalidator сбрасывает кэш отчётов при изменениях,
// влияющих на агрегаты: склад, заказы, счета.
type reportCacheInvalidator struct {
	reports *services.ReportService
}

func (r *reportCacheInvalidator) Publish(eventType, entity, entityID string, payload map[string]interface{}) {
	switch entity {
	case "Vehicle", "PurchaseOrder", "SalesOrder", "Invoice":
		r.reports.InvalidateCache()
	}
}

// logMemoryStats логирует текущую статистику использования памяти
func logMemoryStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	heapAllocMB := float64(m.HeapAlloc) / 1024 / 1024
	sysMB := float64(m.Sys) / 1024 / 1024
	numGoroutines := runtime.NumGoroutine()

	log.Printf("💾 Memory Stats: HeapAlloc=%.2f MB, Sys=%.2f MB, GC=%d, Goroutines=%d",
		heapAllocMB, sysMB, m.NumGC, numGoroutines)

	if numGoroutines > 100 {
		log.Printf("⚠️ WARNING: High number of goroutines detected: %d (possible goroutine leak)", numGoroutines)
	}
}
