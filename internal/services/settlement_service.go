package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/dynamo"
	"github.com/altusmarket/order-saga/pkg/events"
)

type PaymentWebhookRequest struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
	ReceiptURL    string `json:"receipt_url"`
	CustomerEmail string `json:"customer_email"`
}

// SettlementService owns the payment-outcome transition: Payment and Order
// advance together in one conditional transaction, then the outcome is
// announced on the bus under its own status name.
type SettlementService struct {
	repo      repository.SagaRepository
	publisher events.Publisher
	metrics   *awsx.MetricsClient
	logger    *zap.Logger
}

func NewSettlementService(
	repo repository.SagaRepository,
	publisher events.Publisher,
	metrics *awsx.MetricsClient,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// SettlePayment applies a payment outcome notification. Redelivering the
// same outcome is a harmless re-write of the same values.
func (s *SettlementService) SettlePayment(ctx context.Context, req *PaymentWebhookRequest) *ServiceError {
	if req.PaymentID == "" || req.OrderID == "" {
		return &ServiceError{StatusCode: 400, Message: "Missing payment_id or order_id"}
	}
	if !models.IsSettlementStatus(req.Status) {
		return &ServiceError{StatusCode: 400, Message: "Status must be PaymentSucceeded or PaymentFailed"}
	}

	err := s.repo.UpdateSettlement(ctx, repository.Settlement{
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		Status:        req.Status,
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		ReceiptURL:    req.ReceiptURL,
	})
	switch {
	case err == nil:
		// fall through to publish
	case errors.Is(err, dynamo.ErrConditionFailed):
		// Either a referenced record is missing (caller data error) or the
		// order is already Fulfilled (terminal, must not regress). A point
		// read tells the two apart.
		order, getErr := s.repo.GetOrder(ctx, req.OrderID)
		if getErr != nil {
			s.logger.Error("settlement condition check read failed",
				zap.String("order_id", req.OrderID),
				zap.Error(getErr),
			)
			return &ServiceError{StatusCode: 503, Message: "Store unavailable"}
		}
		if order != nil && order.Status == models.StatusFulfilled {
			s.logger.Info("settlement skipped, order already fulfilled",
				zap.String("order_id", req.OrderID),
			)
			return nil
		}
		return &ServiceError{StatusCode: 404, Message: "Order or payment not found"}
	case errors.Is(err, dynamo.ErrUnavailable):
		return &ServiceError{StatusCode: 503, Message: "Store unavailable"}
	default:
		s.logger.Error("settlement write failed",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err),
		)
		return &ServiceError{StatusCode: 500, Message: "Failed to update payment"}
	}

	outcome := events.PaymentOutcome{
		PaymentID:     req.PaymentID,
		OrderID:       req.OrderID,
		Status:        req.Status,
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
		ReceiptURL:    req.ReceiptURL,
		CustomerEmail: req.CustomerEmail,
	}
	if err := s.publisher.Publish(ctx, events.SourcePayments, req.Status, outcome); err != nil {
		s.logger.Error("failed to publish payment outcome",
			zap.String("order_id", req.OrderID),
			zap.String("status", req.Status),
			zap.Error(err),
		)
		s.metrics.RecordCount(ctx, awsx.MetricEventPublishError, map[string]string{"event": req.Status})
	}

	s.metrics.RecordCount(ctx, awsx.MetricPaymentsSettled, map[string]string{"status": req.Status})

	s.logger.Info("payment settled",
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID),
		zap.String("status", req.Status),
	)
	return nil
}
