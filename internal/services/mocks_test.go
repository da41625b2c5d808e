package services_test

import (
	"context"

	"github.com/altusmarket/order-saga/internal/gateway"
	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/internal/repository"
	"github.com/altusmarket/order-saga/pkg/dynamo"
)

// fakeRepo is an in-memory SagaRepository that emulates the store's
// conditional-write semantics, so idempotency and race outcomes can be
// asserted on final state.
type fakeRepo struct {
	orders       map[string]*models.Order
	payments     map[string]*models.Payment
	fulfillments map[string]*models.Fulfillment

	createErr  error
	getErr     error
	settleErr  error
	fulfillErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:       make(map[string]*models.Order),
		payments:     make(map[string]*models.Payment),
		fulfillments: make(map[string]*models.Fulfillment),
	}
}

func (r *fakeRepo) CreateOrderWithPayment(_ context.Context, order *models.Order, payment *models.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	o := *order
	p := *payment
	r.orders[order.OrderID] = &o
	r.payments[payment.PaymentID] = &p
	return nil
}

func (r *fakeRepo) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil
	}
	o := *order
	return &o, nil
}

func (r *fakeRepo) UpdateSettlement(_ context.Context, s repository.Settlement) error {
	if r.settleErr != nil {
		return r.settleErr
	}
	payment, paymentOK := r.payments[s.PaymentID]
	order, orderOK := r.orders[s.OrderID]
	if !paymentOK || !orderOK || order.Status == models.StatusFulfilled {
		return dynamo.ErrConditionFailed
	}
	payment.Status = s.Status
	payment.Provider = s.Provider
	payment.TransactionID = s.TransactionID
	payment.ReceiptURL = s.ReceiptURL
	order.Status = s.Status
	return nil
}

func (r *fakeRepo) RecordFulfillment(_ context.Context, f *models.Fulfillment) error {
	if r.fulfillErr != nil {
		return r.fulfillErr
	}
	order, ok := r.orders[f.OrderID]
	if !ok || order.Status == models.StatusFulfilled {
		return dynamo.ErrConditionFailed
	}
	if _, exists := r.fulfillments[f.OrderID]; exists {
		return dynamo.ErrConditionFailed
	}
	rec := *f
	r.fulfillments[f.OrderID] = &rec
	order.Status = models.StatusFulfilled
	return nil
}

// fakePublisher records every published event.
type fakePublisher struct {
	published  []publishedEvent
	publishErr error
}

type publishedEvent struct {
	source     string
	detailType string
	detail     any
}

func (p *fakePublisher) Publish(_ context.Context, source, detailType string, detail any) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, publishedEvent{source: source, detailType: detailType, detail: detail})
	return nil
}

// fakePaymentGW returns a fixed session.
type fakePaymentGW struct {
	session gateway.PaymentSession
	err     error
}

func (g *fakePaymentGW) CreateSession(_ context.Context, _, _ string) (gateway.PaymentSession, error) {
	return g.session, g.err
}

// fakeLicenseGW counts issuances so duplicate-issuance tests can see how
// often the provider was hit.
type fakeLicenseGW struct {
	key    string
	err    error
	issued int
}

func (g *fakeLicenseGW) IssueKey(_ context.Context, _, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.issued++
	return g.key, nil
}
