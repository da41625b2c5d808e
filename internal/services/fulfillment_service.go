package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/gateway"
	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/dynamo"
	"github.com/altusmarket/order-saga/pkg/events"
)

// FulfillmentService consumes payment-succeeded notifications and issues
// the purchased asset exactly once per order. A returned error means the
// message must be redelivered; returning nil acknowledges it.
type FulfillmentService struct {
	repo          repository.SagaRepository
	licenseGW     gateway.LicenseGateway
	publisher     events.Publisher
	activationURL string
	metrics       *awsx.MetricsClient
	logger        *zap.Logger
}

func NewFulfillmentService(
	repo repository.SagaRepository,
	licenseGW gateway.LicenseGateway,
	publisher events.Publisher,
	activationURL string,
	metrics *awsx.MetricsClient,
	logger *zap.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		repo:          repo,
		licenseGW:     licenseGW,
		publisher:     publisher,
		activationURL: activationURL,
		metrics:       metrics,
		logger:        logger,
	}
}

// HandlePaymentSucceeded fulfills one order. Safe to call any number of
// times for the same order: the status pre-check skips completed work and
// the conditional transaction closes the race two concurrent deliveries
// would otherwise open.
func (s *FulfillmentService) HandlePaymentSucceeded(ctx context.Context, outcome events.PaymentOutcome) error {
	if outcome.OrderID == "" {
		return fmt.Errorf("payment outcome missing order_id")
	}

	order, err := s.repo.GetOrder(ctx, outcome.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", outcome.OrderID, err)
	}
	if order == nil {
		// The event may have outrun the creating write; redelivery gives
		// the write time to become visible before the DLQ takes over.
		return fmt.Errorf("order %s not found", outcome.OrderID)
	}

	if order.Status == models.StatusFulfilled {
		s.logger.Info("order already fulfilled, skipping",
			zap.String("order_id", order.OrderID),
		)
		return nil
	}

	licenseKey, err := s.licenseGW.IssueKey(ctx, order.OrderID, order.CustomerEmail)
	if err != nil {
		return fmt.Errorf("issue license for order %s: %w", order.OrderID, err)
	}
	s.metrics.RecordCount(ctx, awsx.MetricLicensesIssued, nil)

	fulfillment := &models.Fulfillment{
		OrderID:       order.OrderID,
		PaymentID:     outcome.PaymentID,
		LicenseKey:    licenseKey,
		Provider:      outcome.Provider,
		ReceiptURL:    outcome.ReceiptURL,
		TransactionID: outcome.TransactionID,
		FulfilledAt:   time.Now().UTC(),
	}

	err = s.repo.RecordFulfillment(ctx, fulfillment)
	switch {
	case errors.Is(err, dynamo.ErrConditionFailed):
		// A concurrent delivery committed first; its transaction already
		// emitted the event. The key issued above is discarded.
		s.logger.Info("fulfillment already recorded, skipping",
			zap.String("order_id", order.OrderID),
		)
		return nil
	case err != nil:
		return fmt.Errorf("record fulfillment for order %s: %w", order.OrderID, err)
	}

	fulfilled := events.OrderFulfilled{
		OrderID:       order.OrderID,
		LicenseKey:    licenseKey,
		CustomerEmail: order.CustomerEmail,
		ActivationURL: s.activationURL + licenseKey,
		FulfilledAt:   fulfillment.FulfilledAt,
	}
	if err := s.publisher.Publish(ctx, events.SourceOrders, events.TypeOrderFulfilled, fulfilled); err != nil {
		// State is committed; retrying the message would be a no-op and
		// would not re-emit. Known gap, surfaced loudly.
		s.logger.Error("failed to publish OrderFulfilled",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		s.metrics.RecordCount(ctx, awsx.MetricEventPublishError, map[string]string{"event": events.TypeOrderFulfilled})
	}

	s.metrics.RecordCount(ctx, awsx.MetricOrdersFulfilled, nil)

	s.logger.Info("order fulfilled",
		zap.String("order_id", order.OrderID),
		zap.String("license_key", licenseKey),
	)
	return nil
}
