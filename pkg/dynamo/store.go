package dynamo

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrConditionFailed signals that a conditional write did not apply because
// the stated predicate no longer holds. For idempotent transitions this means
// "the effect already happened" and callers treat it as success, not failure.
var ErrConditionFailed = errors.New("condition failed")

// ErrUnavailable signals a transient store failure. Callers propagate it so
// the invoking transport retries or redelivers.
var ErrUnavailable = errors.New("store unavailable")

// API is the subset of the DynamoDB client the store uses. Tests substitute
// an in-memory implementation.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// NewClient loads AWS config and returns a DynamoDB client.
func NewClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewClientFromConfig accepts an AWS SDK config and returns a DynamoDB client.
func NewClientFromConfig(cfg sdkaws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// Store wraps DynamoDB with the two operations the saga needs: point reads
// and all-or-nothing conditional multi-writes.
type Store struct {
	api API
}

func NewStore(api API) *Store {
	return &Store{api: api}
}

// Get reads a single item by key. A missing item returns (nil, nil).
func (s *Store) Get(ctx context.Context, table string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &table,
		Key:       key,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("dynamodb GetItem failed: %w", err))
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

// TransactWrite applies all items atomically. If any item's condition
// expression fails the whole transaction is cancelled and ErrConditionFailed
// is returned; partial application is never observable.
func (s *Store) TransactWrite(ctx context.Context, items ...types.TransactWriteItem) error {
	_, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		return nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return ErrConditionFailed
			}
		}
		// Cancelled for a transient reason (conflict, throttling).
		return fmt.Errorf("%w: %s", ErrUnavailable, canceled.ErrorMessage())
	}

	return classify(fmt.Errorf("dynamodb transact write failed: %w", err))
}

// classify tags transient SDK failures as ErrUnavailable so callers can tell
// retryable faults from data errors.
func classify(err error) error {
	var throughput *types.ProvisionedThroughputExceededException
	var internal *types.InternalServerError
	var limit *types.RequestLimitExceeded
	if errors.As(err, &throughput) || errors.As(err, &internal) || errors.As(err, &limit) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
