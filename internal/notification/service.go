package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/altusmarket/order-saga/pkg/awsx"
	"github.com/altusmarket/order-saga/pkg/events"
)

const orderCreatedTmpl = `
<html>
  <body>
    <h2>Thank you for your order!</h2>
    <p>Order ID: <strong>{{.OrderID}}</strong></p>
    <p>Items:</p>
    <ul>
      {{range .ItemIDs}}<li>{{.}}</li>{{end}}
    </ul>
    <p>Total: <strong>{{.TotalAmount}} {{.Currency}}</strong></p>
    <p>Payment Type: <strong>{{.PaymentType}}</strong></p>
    <p>If you have any questions, reply to this email.</p>
  </body>
</html>`

const paymentSucceededTmpl = `
<html>
  <body>
    <h2>Payment received</h2>
    <p>Your payment for order <strong>{{.OrderID}}</strong> succeeded.</p>
    {{if .ReceiptURL}}<p><a href="{{.ReceiptURL}}">View your receipt</a></p>{{end}}
    <p>We are preparing your purchase now.</p>
  </body>
</html>`

const orderFulfilledTmpl = `
<html>
  <body>
    <h2>Your purchase is ready</h2>
    <p>Order ID: <strong>{{.OrderID}}</strong></p>
    <p>License key: <strong>{{.LicenseKey}}</strong></p>
    <p><a href="{{.ActivationURL}}">Activate your purchase</a></p>
  </body>
</html>`

type eventConfig struct {
	tmplSource string
	subject    string
}

var eventConfigs = map[string]eventConfig{
	events.TypeOrderCreated:     {tmplSource: orderCreatedTmpl, subject: "Your Order Confirmation"},
	events.TypePaymentSucceeded: {tmplSource: paymentSucceededTmpl, subject: "Payment Successful"},
	events.TypeOrderFulfilled:   {tmplSource: orderFulfilledTmpl, subject: "Your Purchase Is Ready"},
}

// Service renders and dispatches customer emails for terminal saga events.
// It holds no state and never feeds back into the saga: a send failure only
// surfaces through transport retry and the dead-letter queue.
type Service struct {
	sender    EmailSender
	templates map[string]*template.Template
	metrics   *awsx.MetricsClient
	logger    *zap.Logger
}

func NewService(sender EmailSender, metrics *awsx.MetricsClient, logger *zap.Logger) (*Service, error) {
	tmpls := make(map[string]*template.Template)
	for eventType, cfg := range eventConfigs {
		tmpl, err := template.New(eventType).Parse(cfg.tmplSource)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", eventType, err)
		}
		tmpls[eventType] = tmpl
	}
	return &Service{
		sender:    sender,
		templates: tmpls,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// HandleMessage processes one queue message. Undecodable or unsupported
// messages are acknowledged; a send failure propagates so the transport
// retries.
func (s *Service) HandleMessage(ctx context.Context, body string) error {
	var envelope events.Envelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		s.logger.Error("invalid event envelope, dropping", zap.Error(err))
		return nil
	}
	return s.ProcessEnvelope(ctx, &envelope)
}

// ProcessEnvelope decodes the typed payload behind the detail-type
// discriminator, renders the matching template and sends one email.
func (s *Service) ProcessEnvelope(ctx context.Context, envelope *events.Envelope) error {
	cfg, ok := eventConfigs[envelope.DetailType]
	if !ok {
		s.logger.Warn("unsupported event type, dropping",
			zap.String("detail_type", envelope.DetailType),
		)
		return nil
	}

	var data any
	var recipient string
	switch envelope.DetailType {
	case events.TypeOrderCreated:
		var detail events.OrderCreated
		if err := envelope.DecodeDetail(&detail); err != nil {
			s.logger.Error("invalid detail, dropping", zap.Error(err))
			return nil
		}
		data, recipient = detail, detail.CustomerEmail
	case events.TypePaymentSucceeded:
		var detail events.PaymentOutcome
		if err := envelope.DecodeDetail(&detail); err != nil {
			s.logger.Error("invalid detail, dropping", zap.Error(err))
			return nil
		}
		data, recipient = detail, detail.CustomerEmail
	case events.TypeOrderFulfilled:
		var detail events.OrderFulfilled
		if err := envelope.DecodeDetail(&detail); err != nil {
			s.logger.Error("invalid detail, dropping", zap.Error(err))
			return nil
		}
		data, recipient = detail, detail.CustomerEmail
	}

	if recipient == "" {
		s.logger.Warn("missing recipient, dropping",
			zap.String("detail_type", envelope.DetailType),
		)
		return nil
	}

	var buf bytes.Buffer
	if err := s.templates[envelope.DetailType].Execute(&buf, data); err != nil {
		s.logger.Error("template render failed, dropping",
			zap.String("detail_type", envelope.DetailType),
			zap.Error(err),
		)
		return nil
	}

	result, err := s.sender.SendEmail(ctx, recipient, cfg.subject, buf.String())
	if err != nil {
		return fmt.Errorf("send %s email: %w", envelope.DetailType, err)
	}

	s.metrics.RecordCount(ctx, awsx.MetricEmailsSent, map[string]string{"event": envelope.DetailType})
	s.logger.Info("notification sent",
		zap.String("detail_type", envelope.DetailType),
		zap.String("message_id", result.MessageID),
	)
	return nil
}
