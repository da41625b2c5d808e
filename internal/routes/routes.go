package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/altusmarket/order-saga/internal/controllers"
)

func RegisterRoutes(r *gin.Engine, oc *controllers.OrderController) {
	orders := r.Group("/orders")
	orders.POST("", oc.CreateOrder)

	// Provider webhook (no auth; the provider signs its own callbacks)
	r.POST("/payments/webhook", oc.PaymentWebhook)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
}
