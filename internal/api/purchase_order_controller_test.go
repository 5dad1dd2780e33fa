package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"showroom/server/internal/models"
	"showroom/server/internal/services"
	"showroom/server/internal/testutil"
)

// Поставщик подтверждает заказ ссылкой из письма: браузер шлёт GET,
// программные клиенты — POST. Оба маршрута ведут в один обработчик.
func TestConfirmPurchaseOrderByEmailLink(t *testing.T) {
	db := testutil.NewTestDB(t)
	gin.SetMode(gin.TestMode)

	audit := services.NewAuditService(db)
	t.Cleanup(audit.Close)
	inventory := services.NewInventoryService(db, audit)
	tokens := services.NewPOTokenService("test-secret", time.Hour)
	mail := services.NewMailService("", 0, "", "", "test@showroom.local")
	purchase := services.NewPurchaseOrderService(db, inventory, tokens, mail, audit, "http://localhost:8080")
	controller := NewPurchaseOrderController(purchase)

	router := gin.New()
	router.GET("/api/v1/purchase-orders/:id/confirm", controller.ConfirmPurchaseOrder)
	router.POST("/api/v1/purchase-orders/:id/confirm", controller.ConfirmPurchaseOrder)

	brand := models.Brand{Name: "Toyora", Country: "Japan"}
	if err := db.Create(&brand).Error; err != nil {
		t.Fatalf("seed brand: %v", err)
	}
	model := models.VehicleModel{BrandID: brand.ID, Name: "Caroma", BodyType: "sedan", BasePrice: 2500000}
	if err := db.Create(&model).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}
	supplier := models.Supplier{Name: "Авто Импорт", Email: "supplier@example.com"}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}

	order, err := purchase.CreatePurchaseOrder(supplier.ID, []services.POItemInput{{
		ModelID: model.ID, Qty: 1, UnitPrice: 2000000,
	}}, nil)
	if err != nil {
		t.Fatalf("создание заказа: %v", err)
	}
	token, err := purchase.SendPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("отправка заказа: %v", err)
	}

	url := fmt.Sprintf("/api/v1/purchase-orders/%s/confirm?token=%s", order.ID, token)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET по ссылке из письма вернул %d: %s", rec.Code, rec.Body.String())
	}

	confirmed, err := purchase.GetPurchaseOrder(order.ID)
	if err != nil {
		t.Fatalf("чтение заказа: %v", err)
	}
	if confirmed.Status != models.PurchaseOrderStatusConfirmed {
		t.Errorf("заказ в статусе %s, ожидали CONFIRMED", confirmed.Status)
	}

	// Повторное подтверждение тем же токеном через POST идемпотентно
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("POST после подтверждения вернул %d: %s", rec.Code, rec.Body.String())
	}

	// Без токена ссылка недействительна
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/purchase-orders/%s/confirm", order.ID), nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("подтверждение без токена вернуло %d, ожидали 400", rec.Code)
	}
}
