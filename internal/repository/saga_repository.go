package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/altusmarket/order-saga/internal/models"
	"github.com/altusmarket/order-saga/pkg/dynamo"
)

// Settlement is the payment outcome applied by UpdateSettlement.
type Settlement struct {
	OrderID       string
	PaymentID     string
	Status        string
	Provider      string
	TransactionID string
	ReceiptURL    string
}

// SagaRepository defines the transactional writes that advance the saga.
// Every write spanning two records is a single conditional transaction; a
// dynamo.ErrConditionFailed from any method means the effect already
// happened or the predicate no longer holds — never a partial write.
type SagaRepository interface {
	// CreateOrderWithPayment writes Order and Payment as one atomic unit.
	CreateOrderWithPayment(ctx context.Context, order *models.Order, payment *models.Payment) error

	// GetOrder fetches an order by id; a missing order returns (nil, nil).
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// UpdateSettlement advances Payment and Order to the outcome status in
	// one transaction. Conditions: the payment exists, the order exists and
	// is not already Fulfilled.
	UpdateSettlement(ctx context.Context, s Settlement) error

	// RecordFulfillment creates the Fulfillment record (must not already
	// exist) and moves the Order to Fulfilled (must not already be there)
	// in one transaction.
	RecordFulfillment(ctx context.Context, f *models.Fulfillment) error
}

// Tables names the three saga tables; injected from configuration.
type Tables struct {
	Orders       string
	Payments     string
	Fulfillments string
}

// DynamoRepository implements SagaRepository on the DynamoDB-backed store.
type DynamoRepository struct {
	store  *dynamo.Store
	tables Tables
}

func NewDynamoRepository(store *dynamo.Store, tables Tables) *DynamoRepository {
	return &DynamoRepository{store: store, tables: tables}
}

type ddbOrder struct {
	OrderID       string   `dynamodbav:"order_id"`
	ItemIDs       []string `dynamodbav:"item_ids"`
	Currency      string   `dynamodbav:"currency"`
	TotalAmount   int      `dynamodbav:"total_amount"`
	CustomerEmail string   `dynamodbav:"customer_email"`
	PaymentType   string   `dynamodbav:"payment_type"`
	Status        string   `dynamodbav:"status"`
	CreatedAt     string   `dynamodbav:"created_at"`
}

type ddbPayment struct {
	PaymentID     string  `dynamodbav:"payment_id"`
	OrderID       string  `dynamodbav:"order_id"`
	PaymentType   string  `dynamodbav:"payment_type"`
	Status        string  `dynamodbav:"status"`
	Provider      *string `dynamodbav:"provider,omitempty"`
	TransactionID *string `dynamodbav:"transaction_id,omitempty"`
	ReceiptURL    *string `dynamodbav:"receipt_url,omitempty"`
	CreatedAt     string  `dynamodbav:"created_at"`
}

type ddbFulfillment struct {
	OrderID       string `dynamodbav:"order_id"`
	PaymentID     string `dynamodbav:"payment_id"`
	LicenseKey    string `dynamodbav:"license_key"`
	Provider      string `dynamodbav:"provider"`
	ReceiptURL    string `dynamodbav:"receipt_url"`
	TransactionID string `dynamodbav:"transaction_id"`
	FulfilledAt   string `dynamodbav:"fulfilled_at"`
}

func (r *DynamoRepository) CreateOrderWithPayment(ctx context.Context, order *models.Order, payment *models.Payment) error {
	orderItem, err := attributevalue.MarshalMap(ddbOrder{
		OrderID:       order.OrderID,
		ItemIDs:       order.ItemIDs,
		Currency:      order.Currency,
		TotalAmount:   order.TotalAmount,
		CustomerEmail: order.CustomerEmail,
		PaymentType:   order.PaymentType,
		Status:        order.Status,
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	paymentItem, err := attributevalue.MarshalMap(ddbPayment{
		PaymentID:   payment.PaymentID,
		OrderID:     payment.OrderID,
		PaymentType: payment.PaymentType,
		Status:      payment.Status,
		CreatedAt:   payment.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}

	// Identifiers are freshly minted, so no condition is needed here.
	return r.store.TransactWrite(ctx,
		types.TransactWriteItem{Put: &types.Put{
			TableName: &r.tables.Orders,
			Item:      orderItem,
		}},
		types.TransactWriteItem{Put: &types.Put{
			TableName: &r.tables.Payments,
			Item:      paymentItem,
		}},
	)
}

func (r *DynamoRepository) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	item, err := r.store.Get(ctx, r.tables.Orders, map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	var do ddbOrder
	if err := attributevalue.UnmarshalMap(item, &do); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}

	order := &models.Order{
		OrderID:       do.OrderID,
		ItemIDs:       do.ItemIDs,
		Currency:      do.Currency,
		TotalAmount:   do.TotalAmount,
		CustomerEmail: do.CustomerEmail,
		PaymentType:   do.PaymentType,
		Status:        do.Status,
	}
	if t, err := time.Parse(time.RFC3339, do.CreatedAt); err == nil {
		order.CreatedAt = t
	}
	return order, nil
}

func (r *DynamoRepository) UpdateSettlement(ctx context.Context, s Settlement) error {
	updatePayment := &types.Update{
		TableName: &r.tables.Payments,
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: s.PaymentID},
		},
		UpdateExpression: strPtr("SET #status = :status, provider = :provider, transaction_id = :txn, receipt_url = :receipt"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: s.Status},
			":provider": &types.AttributeValueMemberS{Value: s.Provider},
			":txn":      &types.AttributeValueMemberS{Value: s.TransactionID},
			":receipt":  &types.AttributeValueMemberS{Value: s.ReceiptURL},
		},
		ConditionExpression: strPtr("attribute_exists(payment_id)"),
	}

	// The same outcome delivered twice re-writes the same values; the only
	// forbidden move is regressing an order that already reached Fulfilled.
	updateOrder := &types.Update{
		TableName: &r.tables.Orders,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: s.OrderID},
		},
		UpdateExpression: strPtr("SET #status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: s.Status},
			":fulfilled": &types.AttributeValueMemberS{Value: models.StatusFulfilled},
		},
		ConditionExpression: strPtr("attribute_exists(order_id) AND #status <> :fulfilled"),
	}

	return r.store.TransactWrite(ctx,
		types.TransactWriteItem{Update: updatePayment},
		types.TransactWriteItem{Update: updateOrder},
	)
}

func (r *DynamoRepository) RecordFulfillment(ctx context.Context, f *models.Fulfillment) error {
	item, err := attributevalue.MarshalMap(ddbFulfillment{
		OrderID:       f.OrderID,
		PaymentID:     f.PaymentID,
		LicenseKey:    f.LicenseKey,
		Provider:      f.Provider,
		ReceiptURL:    f.ReceiptURL,
		TransactionID: f.TransactionID,
		FulfilledAt:   f.FulfilledAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal fulfillment: %w", err)
	}

	// Both conditions in the same transaction close the race between the
	// pre-check read and this write: whichever concurrent delivery commits
	// first wins, the loser observes ErrConditionFailed.
	return r.store.TransactWrite(ctx,
		types.TransactWriteItem{Put: &types.Put{
			TableName:           &r.tables.Fulfillments,
			Item:                item,
			ConditionExpression: strPtr("attribute_not_exists(order_id)"),
		}},
		types.TransactWriteItem{Update: &types.Update{
			TableName: &r.tables.Orders,
			Key: map[string]types.AttributeValue{
				"order_id": &types.AttributeValueMemberS{Value: f.OrderID},
			},
			UpdateExpression: strPtr("SET #status = :fulfilled"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":fulfilled": &types.AttributeValueMemberS{Value: models.StatusFulfilled},
			},
			ConditionExpression: strPtr("#status <> :fulfilled"),
		}},
	)
}

func strPtr(s string) *string { return &s }
