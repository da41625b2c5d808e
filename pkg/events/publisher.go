package events

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
)

// Publisher is a minimal interface for publishing domain events to the bus.
type Publisher interface {
	Publish(ctx context.Context, source, detailType string, detail any) error
}

// BridgePublisher publishes domain events to an EventBridge bus.
type BridgePublisher struct {
	client  *eventbridge.Client
	busName string
}

func NewBridgePublisher(cfg sdkaws.Config, busName string) *BridgePublisher {
	return &BridgePublisher{
		client:  eventbridge.NewFromConfig(cfg),
		busName: busName,
	}
}

// Publish serializes detail and puts one event on the bus.
func (p *BridgePublisher) Publish(ctx context.Context, source, detailType string, detail any) error {
	if p.busName == "" {
		return fmt.Errorf("empty event bus name")
	}

	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal %s detail: %w", detailType, err)
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: &p.busName,
				Source:       &source,
				DetailType:   &detailType,
				Detail:       sdkaws.String(string(body)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("eventbridge put events failed for %s: %w", detailType, err)
	}
	if out.FailedEntryCount > 0 {
		entry := out.Entries[0]
		return fmt.Errorf("eventbridge rejected %s: %s", detailType, sdkaws.ToString(entry.ErrorMessage))
	}
	return nil
}
