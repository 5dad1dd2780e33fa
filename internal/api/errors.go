package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"showroom/server/internal/services"
)

// respondError преобразует ошибку сервиса в HTTP ответ.
// Известные ошибки получают свой статус, остальные — 500 с trace_id
// для поиска в логах.
func respondError(ctx *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	case errors.Is(err, services.ErrConflict):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	case errors.Is(err, services.ErrBadRequest):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   message,
			"details": err.Error(),
		})
	default:
		traceID := uuid.New().String()
		log.Printf("❌ [%s] %s: %v", traceID, message, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":    message,
			"trace_id": traceID,
		})
	}
}

// respondBadJSON отвечает на ошибку разбора тела запроса
func respondBadJSON(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   "Неверные данные",
		"details": err.Error(),
	})
}
