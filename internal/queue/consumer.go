package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"production_queue/internal/apperr"
	"production_queue/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// POStatusUpdater applies a supplier-side status to a stored PO.
type POStatusUpdater interface {
	UpdatePOStatusByNumber(ctx context.Context, poNumber string, status model.POStatus) (model.PurchaseOrder, error)
}

// StatusConsumer reads supplier status changes and applies them to
// purchase_orders. Cancellations seen here are what the reconciler later
// clears from the created set.
type StatusConsumer struct {
	r       *kafka.Reader
	updater POStatusUpdater
	log     zerolog.Logger
}

func NewStatusConsumer(brokers []string, topic, groupID string, updater POStatusUpdater, log zerolog.Logger) *StatusConsumer {
	return &StatusConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		updater: updater,
		log:     log.With().Str("component", "po_status_consumer").Logger(),
	}
}

func (c *StatusConsumer) Close() error { return c.r.Close() }

func (c *StatusConsumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancelled or reader closed
		}
		if err := c.handle(ctx, m.Value); err != nil {
			c.log.Warn().Err(err).Int64("offset", m.Offset).Msg("skip status message")
		}
	}
}

// handle applies one message. Unknown PO numbers are skipped; the supplier
// feed may mention POs raised elsewhere.
func (c *StatusConsumer) handle(ctx context.Context, value []byte) error {
	var msg POStatusMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	po, err := c.updater.UpdatePOStatusByNumber(ctx, msg.PONumber, msg.Status)
	if err != nil {
		if apperr.KindOf(err) == apperr.NotFound {
			c.log.Debug().Str("po_number", msg.PONumber).Msg("status for unknown purchase order")
			return nil
		}
		return err
	}
	c.log.Info().Str("po_number", po.PONumber).Str("status", string(po.Status)).Msg("purchase order status applied")
	return nil
}
