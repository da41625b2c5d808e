package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PaymentSession is what the payment provider hands back when a checkout
// session is opened: its own payment identifier plus the hosted page the
// customer completes payment on.
type PaymentSession struct {
	PaymentID  string
	SessionURL string
}

// PaymentGateway opens a checkout session with an external payment provider.
// Implementations must not write any saga state; intake owns the durable
// record of the session.
type PaymentGateway interface {
	CreateSession(ctx context.Context, orderID, paymentType string) (PaymentSession, error)
}

// HostedCheckout is the default PaymentGateway. It mints the session locally
// and routes the checkout URL by payment type the way the real providers
// shape theirs, which keeps local and test environments free of provider
// credentials.
type HostedCheckout struct{}

func NewHostedCheckout() *HostedCheckout {
	return &HostedCheckout{}
}

func (g *HostedCheckout) CreateSession(ctx context.Context, orderID, paymentType string) (PaymentSession, error) {
	paymentID := uuid.NewString()

	var url string
	switch paymentType {
	case "Stripe":
		url = fmt.Sprintf("https://checkout.stripe.com/pay/%s", paymentID)
	case "PayPal":
		url = fmt.Sprintf("https://paypal.com/checkoutnow?token=%s", paymentID)
	default:
		url = fmt.Sprintf("https://mockpay.io/session/%s", paymentID)
	}

	return PaymentSession{PaymentID: paymentID, SessionURL: url}, nil
}
