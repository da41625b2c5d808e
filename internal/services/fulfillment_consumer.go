package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/pkg/events"
)

// FulfillmentConsumer adapts raw queue messages into fulfillment work. It
// unwraps the bus envelope, checks the detail-type discriminator and only
// then decodes the typed payload.
type FulfillmentConsumer struct {
	service *FulfillmentService
	logger  *zap.Logger
}

func NewFulfillmentConsumer(service *FulfillmentService, logger *zap.Logger) *FulfillmentConsumer {
	return &FulfillmentConsumer{service: service, logger: logger}
}

// HandleMessage processes one queue message body. Undecodable messages are
// acknowledged (returning an error would loop them forever); handler
// failures propagate so the transport redelivers.
func (c *FulfillmentConsumer) HandleMessage(ctx context.Context, body string) error {
	var envelope events.Envelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		c.logger.Error("invalid event envelope, dropping",
			zap.Error(err),
			zap.String("body", body),
		)
		return nil
	}

	if envelope.DetailType != events.TypePaymentSucceeded {
		c.logger.Warn("unexpected detail-type, dropping",
			zap.String("detail_type", envelope.DetailType),
			zap.String("source", envelope.Source),
		)
		return nil
	}

	var outcome events.PaymentOutcome
	if err := envelope.DecodeDetail(&outcome); err != nil {
		c.logger.Error("invalid payment outcome detail, dropping", zap.Error(err))
		return nil
	}

	return c.service.HandlePaymentSucceeded(ctx, outcome)
}
