package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/gateway"
	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/events"
)

type CreateOrderRequest struct {
	ItemIDs       []string `json:"item_ids" binding:"required"`
	Currency      string   `json:"currency" binding:"required"`
	TotalAmount   int      `json:"total_amount" binding:"required"`
	CustomerEmail string   `json:"customer_email" binding:"required,email"`
	PaymentType   string   `json:"payment_type"`
}

type CreateOrderResponse struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	SessionURL string `json:"session_url"`
	Status     string `json:"status"`
}

// OrderService owns order intake: it mints the order identity, opens the
// payment session and records Order+Payment as one atomic write.
type OrderService struct {
	repo      repository.SagaRepository
	paymentGW gateway.PaymentGateway
	publisher events.Publisher
	metrics   *awsx.MetricsClient
	logger    *zap.Logger
}

func NewOrderService(
	repo repository.SagaRepository,
	paymentGW gateway.PaymentGateway,
	publisher events.Publisher,
	metrics *awsx.MetricsClient,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:      repo,
		paymentGW: paymentGW,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// CreateOrder validates the request and drives intake end to end. The
// transactional write is the source of truth; the OrderCreated event is a
// best-effort trigger and its failure never fails the request.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, *ServiceError) {
	if len(req.ItemIDs) == 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "At least one item is required"}
	}
	if req.TotalAmount <= 0 {
		return nil, &ServiceError{StatusCode: 400, Message: "Total amount must be positive"}
	}
	if req.CustomerEmail == "" {
		return nil, &ServiceError{StatusCode: 400, Message: "Customer email is required"}
	}

	orderID := uuid.NewString()

	session, err := s.paymentGW.CreateSession(ctx, orderID, req.PaymentType)
	if err != nil {
		// No compensating action: nothing was written yet.
		s.logger.Error("payment session creation failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 502, Message: "Failed to create payment session"}
	}

	now := time.Now().UTC()
	order := &models.Order{
		OrderID:       orderID,
		ItemIDs:       req.ItemIDs,
		Currency:      req.Currency,
		TotalAmount:   req.TotalAmount,
		CustomerEmail: req.CustomerEmail,
		PaymentType:   req.PaymentType,
		Status:        models.StatusPendingPayment,
		CreatedAt:     now,
	}
	payment := &models.Payment{
		PaymentID:   session.PaymentID,
		OrderID:     orderID,
		PaymentType: req.PaymentType,
		Status:      models.StatusPendingPayment,
		CreatedAt:   now,
	}

	if err := s.repo.CreateOrderWithPayment(ctx, order, payment); err != nil {
		s.logger.Error("failed to write order and payment",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, &ServiceError{StatusCode: 503, Message: "Failed to record order"}
	}

	snapshot := events.OrderCreated{
		OrderID:       order.OrderID,
		PaymentID:     payment.PaymentID,
		ItemIDs:       order.ItemIDs,
		Currency:      order.Currency,
		TotalAmount:   order.TotalAmount,
		CustomerEmail: order.CustomerEmail,
		PaymentType:   order.PaymentType,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.SourceOrders, events.TypeOrderCreated, snapshot); err != nil {
		s.logger.Error("failed to publish OrderCreated",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		s.metrics.RecordCount(ctx, awsx.MetricEventPublishError, map[string]string{"event": events.TypeOrderCreated})
	}

	if err := s.metrics.RecordCount(ctx, awsx.MetricOrdersCreated, nil); err != nil {
		s.logger.Warn("metrics put failed", zap.Error(err))
	}

	s.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.PaymentID),
		zap.Int("total_amount", order.TotalAmount),
	)

	return &CreateOrderResponse{
		OrderID:    order.OrderID,
		PaymentID:  payment.PaymentID,
		SessionURL: session.SessionURL,
		Status:     order.Status,
	}, nil
}
