package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/internal/services"
	"github.com/altusmarket/order-saga/pkg/dynamo"
	"github.com/altusmarket/order-saga/pkg/events"
)

func seedPendingOrder(repo *fakeRepo, orderID, paymentID string) {
	now := time.Now().UTC()
	repo.orders[orderID] = &models.Order{
		OrderID:       orderID,
		CustomerEmail: "buyer@example.com",
		Status:        models.StatusPendingPayment,
		CreatedAt:     now,
	}
	repo.payments[paymentID] = &models.Payment{
		PaymentID: paymentID,
		OrderID:   orderID,
		Status:    models.StatusPendingPayment,
		CreatedAt: now,
	}
}

func webhook(status string) *services.PaymentWebhookRequest {
	return &services.PaymentWebhookRequest{
		PaymentID:     "pay-1",
		OrderID:       "ord-1",
		Status:        status,
		Provider:      "Stripe",
		TransactionID: "txn-9",
		ReceiptURL:    "https://stripe.example/receipt/txn-9",
		CustomerEmail: "buyer@example.com",
	}
}

func TestSettlePayment_Success(t *testing.T) {
	repo := newFakeRepo()
	seedPendingOrder(repo, "ord-1", "pay-1")
	publisher := &fakePublisher{}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusPaymentSucceeded, repo.orders["ord-1"].Status)
	assert.Equal(t, models.StatusPaymentSucceeded, repo.payments["pay-1"].Status)
	assert.Equal(t, "Stripe", repo.payments["pay-1"].Provider)
	assert.Equal(t, "txn-9", repo.payments["pay-1"].TransactionID)

	assert.Len(t, publisher.published, 1)
	assert.Equal(t, events.SourcePayments, publisher.published[0].source)
	assert.Equal(t, models.StatusPaymentSucceeded, publisher.published[0].detailType)
	outcome := publisher.published[0].detail.(events.PaymentOutcome)
	assert.Equal(t, "ord-1", outcome.OrderID)
	assert.Equal(t, "buyer@example.com", outcome.CustomerEmail)
}

func TestSettlePayment_FailedOutcome(t *testing.T) {
	repo := newFakeRepo()
	seedPendingOrder(repo, "ord-1", "pay-1")
	publisher := &fakePublisher{}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentFailed))

	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusPaymentFailed, repo.orders["ord-1"].Status)
	assert.Equal(t, models.StatusPaymentFailed, publisher.published[0].detailType)
}

func TestSettlePayment_Validation(t *testing.T) {
	svc := services.NewSettlementService(newFakeRepo(), &fakePublisher{}, nil, zap.NewNop())

	missing := webhook(models.StatusPaymentSucceeded)
	missing.OrderID = ""
	svcErr := svc.SettlePayment(context.Background(), missing)
	assert.Equal(t, 400, svcErr.StatusCode)

	badStatus := webhook("Refunded")
	svcErr = svc.SettlePayment(context.Background(), badStatus)
	assert.Equal(t, 400, svcErr.StatusCode)

	pending := webhook(models.StatusPendingPayment)
	svcErr = svc.SettlePayment(context.Background(), pending)
	assert.Equal(t, 400, svcErr.StatusCode)
}

func TestSettlePayment_UnknownOrder(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Equal(t, 404, svcErr.StatusCode)
	assert.Empty(t, publisher.published)
}

func TestSettlePayment_FulfilledOrderIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	seedPendingOrder(repo, "ord-1", "pay-1")
	repo.orders["ord-1"].Status = models.StatusFulfilled
	publisher := &fakePublisher{}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusFulfilled, repo.orders["ord-1"].Status)
	assert.Empty(t, publisher.published)
}

func TestSettlePayment_RedeliveryIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	seedPendingOrder(repo, "ord-1", "pay-1")
	publisher := &fakePublisher{}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	req := webhook(models.StatusPaymentSucceeded)
	assert.Nil(t, svc.SettlePayment(context.Background(), req))
	assert.Nil(t, svc.SettlePayment(context.Background(), req))

	assert.Equal(t, models.StatusPaymentSucceeded, repo.orders["ord-1"].Status)
	assert.Equal(t, "txn-9", repo.payments["pay-1"].TransactionID)
	assert.Len(t, publisher.published, 2)
}

func TestSettlePayment_StoreUnavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.settleErr = dynamo.ErrUnavailable
	svc := services.NewSettlementService(repo, &fakePublisher{}, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Equal(t, 503, svcErr.StatusCode)
}

func TestSettlePayment_ConditionCheckReadFails(t *testing.T) {
	repo := newFakeRepo()
	repo.settleErr = dynamo.ErrConditionFailed
	repo.getErr = errors.New("timeout")
	svc := services.NewSettlementService(repo, &fakePublisher{}, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Equal(t, 503, svcErr.StatusCode)
}

func TestSettlePayment_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := newFakeRepo()
	seedPendingOrder(repo, "ord-1", "pay-1")
	publisher := &fakePublisher{publishErr: errors.New("bus down")}
	svc := services.NewSettlementService(repo, publisher, nil, zap.NewNop())

	svcErr := svc.SettlePayment(context.Background(), webhook(models.StatusPaymentSucceeded))

	assert.Nil(t, svcErr)
	assert.Equal(t, models.StatusPaymentSucceeded, repo.orders["ord-1"].Status)
}
