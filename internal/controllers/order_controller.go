package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/altusmarket/order-saga/internal/services"
)

type OrderController struct {
	orderService      *services.OrderService
	settlementService *services.SettlementService
}

func NewOrderController(orderService *services.OrderService, settlementService *services.SettlementService) *OrderController {
	return &OrderController{
		orderService:      orderService,
		settlementService: settlementService,
	}
}

// CreateOrder handles order creation requests
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req services.CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), &req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Order created",
		"order_id":    resp.OrderID,
		"payment_id":  resp.PaymentID,
		"session_url": resp.SessionURL,
		"status":      resp.Status,
	})
}

// PaymentWebhook handles payment outcome notifications from the provider.
func (oc *OrderController) PaymentWebhook(ctx *gin.Context) {
	var req services.PaymentWebhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if svcErr := oc.settlementService.SettlePayment(ctx.Request.Context(), &req); svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Payment processed"})
}
