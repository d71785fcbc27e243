package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"
)

// StreamOutbox appends PO events to a Redis Stream that the Relay drains
// into Kafka, so the request path never waits on the broker.
type StreamOutbox struct {
	rdb    *rd.Client
	stream string
}

func NewStreamOutbox(rdb *rd.Client, stream string) *StreamOutbox {
	return &StreamOutbox{rdb: rdb, stream: stream}
}

// Append validates ev, fills its id and time when unset and XADDs it.
func (o *StreamOutbox) Append(ctx context.Context, ev POEvent) (POEvent, error) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := ev.Validate(); err != nil {
		return ev, fmt.Errorf("outbox append: %w", err)
	}
	err := o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: streamValues(ev),
	}).Err()
	if err != nil {
		return ev, fmt.Errorf("outbox append: %w", err)
	}
	return ev, nil
}

func streamValues(ev POEvent) map[string]any {
	return map[string]any{
		"event_id":      ev.EventID,
		"type":          ev.Type,
		"po_id":         ev.POID,
		"po_number":     ev.PONumber,
		"vendor_id":     ev.VendorID,
		"ingredient_id": ev.IngredientID,
		"status":        string(ev.Status),
		"quantity":      ev.Quantity.String(),
		"amount":        ev.Amount.String(),
		"occurred_at":   ev.OccurredAt.Format(time.RFC3339Nano),
	}
}
