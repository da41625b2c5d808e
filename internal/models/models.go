package models

import "time"

// Status values shared by Order and Payment. An order's status only moves
// forward; Fulfilled and PaymentFailed are terminal.
const (
	StatusPendingPayment   = "PendingPayment"
	StatusPaymentSucceeded = "PaymentSucceeded"
	StatusPaymentFailed    = "PaymentFailed"
	StatusFulfilled        = "Fulfilled"
)

var statusRank = map[string]int{
	StatusPendingPayment:   0,
	StatusPaymentSucceeded: 1,
	StatusPaymentFailed:    1,
	StatusFulfilled:        2,
}

// IsSettlementStatus reports whether s is a valid payment outcome.
func IsSettlementStatus(s string) bool {
	return s == StatusPaymentSucceeded || s == StatusPaymentFailed
}

// IsTerminal reports whether no further transition is allowed out of s.
func IsTerminal(s string) bool {
	return s == StatusFulfilled || s == StatusPaymentFailed
}

// CanTransition reports whether moving from one status to another respects
// the monotonic state machine. Re-writing the same status is allowed: an
// at-least-once transport makes duplicate transitions routine.
func CanTransition(from, to string) bool {
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if IsTerminal(from) {
		return false
	}
	if to == StatusFulfilled && from != StatusPaymentSucceeded {
		return false
	}
	return tr > fr
}

// Order is the root record of the saga, keyed by order_id.
type Order struct {
	OrderID       string    `json:"order_id"`
	ItemIDs       []string  `json:"item_ids"`
	Currency      string    `json:"currency"`
	TotalAmount   int       `json:"total_amount"` // minor units
	CustomerEmail string    `json:"customer_email"`
	PaymentType   string    `json:"payment_type"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Payment is created atomically with its Order and never independently.
// Provider, TransactionID and ReceiptURL stay empty until settlement.
type Payment struct {
	PaymentID     string    `json:"payment_id"`
	OrderID       string    `json:"order_id"`
	PaymentType   string    `json:"payment_type"`
	Status        string    `json:"status"`
	Provider      string    `json:"provider,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Fulfillment is keyed by order_id; its existence proves the asset was
// issued exactly once for that order.
type Fulfillment struct {
	OrderID       string    `json:"order_id"`
	PaymentID     string    `json:"payment_id"`
	LicenseKey    string    `json:"license_key"`
	Provider      string    `json:"provider,omitempty"`
	ReceiptURL    string    `json:"receipt_url,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	FulfilledAt   time.Time `json:"fulfilled_at"`
}
