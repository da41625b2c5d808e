package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event sources. Subscribers filter on these so one bus can fan out to the
// fulfillment and notification consumers independently.
const (
	SourceOrders   = "market.orders"
	SourcePayments = "market.payments"
)

// Detail types. The settlement event's detail type is the new status itself,
// so both appear here.
const (
	TypeOrderCreated     = "OrderCreated"
	TypePaymentSucceeded = "PaymentSucceeded"
	TypePaymentFailed    = "PaymentFailed"
	TypeOrderFulfilled   = "OrderFulfilled"
)

// Envelope is the EventBridge wrapper a subscriber sees on its queue. The
// detail payload stays raw until the detail-type discriminator is checked.
type Envelope struct {
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`
}

// OrderCreated carries the full order snapshot written by intake.
type OrderCreated struct {
	OrderID       string    `json:"order_id"`
	PaymentID     string    `json:"payment_id"`
	ItemIDs       []string  `json:"item_ids"`
	Currency      string    `json:"currency"`
	TotalAmount   int       `json:"total_amount"`
	CustomerEmail string    `json:"customer_email"`
	PaymentType   string    `json:"payment_type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentOutcome is the detail for both PaymentSucceeded and PaymentFailed.
type PaymentOutcome struct {
	PaymentID     string `json:"payment_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
	ReceiptURL    string `json:"receipt_url"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// OrderFulfilled announces that the purchased asset was issued.
type OrderFulfilled struct {
	OrderID       string    `json:"order_id"`
	LicenseKey    string    `json:"license_key"`
	CustomerEmail string    `json:"customer_email"`
	ActivationURL string    `json:"activation_url"`
	FulfilledAt   time.Time `json:"fulfilled_at"`
}

// DecodeDetail unmarshals the envelope's detail into v after the caller has
// checked the detail-type discriminator.
func (e *Envelope) DecodeDetail(v any) error {
	if err := json.Unmarshal(e.Detail, v); err != nil {
		return fmt.Errorf("decode %s detail: %w", e.DetailType, err)
	}
	return nil
}
