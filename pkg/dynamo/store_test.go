package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

type fakeAPI struct {
	getOut      *dynamodb.GetItemOutput
	getErr      error
	transactErr error

	lastTransact *dynamodb.TransactWriteItemsInput
}

func (f *fakeAPI) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOut, f.getErr
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTransact = params
	if f.transactErr != nil {
		return nil, f.transactErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func TestGet_MissingItemReturnsNil(t *testing.T) {
	store := NewStore(&fakeAPI{getOut: &dynamodb.GetItemOutput{}})

	item, err := store.Get(context.Background(), "Orders", map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: "ord-1"},
	})

	assert.NoError(t, err)
	assert.Nil(t, item)
}

func TestGet_ReturnsItem(t *testing.T) {
	store := NewStore(&fakeAPI{getOut: &dynamodb.GetItemOutput{
		Item: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: "ord-1"},
			"status":   &types.AttributeValueMemberS{Value: "PendingPayment"},
		},
	}})

	item, err := store.Get(context.Background(), "Orders", map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: "ord-1"},
	})

	assert.NoError(t, err)
	assert.Equal(t, "PendingPayment", item["status"].(*types.AttributeValueMemberS).Value)
}

func TestGet_ThrottlingIsUnavailable(t *testing.T) {
	store := NewStore(&fakeAPI{getErr: &types.ProvisionedThroughputExceededException{}})

	_, err := store.Get(context.Background(), "Orders", nil)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTransactWrite_Success(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api)

	err := store.TransactWrite(context.Background(), types.TransactWriteItem{
		Put: &types.Put{TableName: aws.String("Orders")},
	})

	assert.NoError(t, err)
	assert.Len(t, api.lastTransact.TransactItems, 1)
}

func TestTransactWrite_ConditionalCheckFailed(t *testing.T) {
	store := NewStore(&fakeAPI{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}})

	err := store.TransactWrite(context.Background())

	assert.ErrorIs(t, err, ErrConditionFailed)
}

func TestTransactWrite_TransientCancellation(t *testing.T) {
	store := NewStore(&fakeAPI{transactErr: &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("TransactionConflict")},
		},
	}})

	err := store.TransactWrite(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTransactWrite_InternalErrorIsUnavailable(t *testing.T) {
	store := NewStore(&fakeAPI{transactErr: &types.InternalServerError{}})

	err := store.TransactWrite(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTransactWrite_UnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	store := NewStore(&fakeAPI{transactErr: boom})

	err := store.TransactWrite(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrConditionFailed)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
