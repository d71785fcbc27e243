package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"production_queue/internal/model"

	rd "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Publisher forwards an event to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev POEvent) error
}

// Relay drains the outbox stream into Kafka. A message is acked only after
// the publish succeeds; failures stay pending and are retried.
type Relay struct {
	rdb       *rd.Client
	publisher Publisher
	log       zerolog.Logger

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, publisher Publisher, stream, group, consumer string, log zerolog.Logger) *Relay {
	return &Relay{
		rdb:       rdb,
		publisher: publisher,
		log:       log.With().Str("component", "po_relay").Logger(),
		stream:    stream,
		group:     group,
		consumer:  consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		r.log.Error().Err(err).Msg("relay ensure group")
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// drain this consumer's pending entries before reading new ones
		msgs, err := r.readGroup(ctx, "0", -1)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			r.log.Warn().Err(err).Msg("relay read pending")
			sleep(ctx, 300*time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			msgs, err = r.readGroup(ctx, ">", 2*time.Second)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				r.log.Warn().Err(err).Msg("relay read new")
				sleep(ctx, 300*time.Millisecond)
				continue
			}
		}

		for _, xm := range msgs {
			if err := r.processOne(ctx, xm); err != nil {
				r.log.Warn().Err(err).Str("message_id", xm.ID).Msg("relay publish failed")
				sleep(ctx, 200*time.Millisecond)
				break
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// readGroup reads from streamID. A negative block sends no BLOCK argument.
func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	ev, err := parsePOEvent(xm.Values)
	if err != nil {
		// poison message: drop it so it cannot block the stream
		r.log.Error().Err(err).Str("message_id", xm.ID).Msg("relay dropping malformed event")
		if ackErr := r.ackAndDelete(ctx, xm.ID); ackErr != nil {
			return fmt.Errorf("parse failed: %v, ack failed: %w", err, ackErr)
		}
		return nil
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, ev); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}

func parsePOEvent(values map[string]interface{}) (POEvent, error) {
	fields := make(map[string]string, 10)
	for _, key := range []string{
		"event_id", "type", "po_id", "po_number", "vendor_id",
		"ingredient_id", "status", "quantity", "amount", "occurred_at",
	} {
		v, err := getStreamString(values, key)
		if err != nil {
			return POEvent{}, err
		}
		fields[key] = v
	}

	quantity, err := decimal.NewFromString(fields["quantity"])
	if err != nil {
		return POEvent{}, fmt.Errorf("invalid quantity %q", fields["quantity"])
	}
	amount, err := decimal.NewFromString(fields["amount"])
	if err != nil {
		return POEvent{}, fmt.Errorf("invalid amount %q", fields["amount"])
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, fields["occurred_at"])
	if err != nil {
		return POEvent{}, fmt.Errorf("invalid occurred_at %q", fields["occurred_at"])
	}

	ev := POEvent{
		EventID:      fields["event_id"],
		Type:         fields["type"],
		POID:         fields["po_id"],
		PONumber:     fields["po_number"],
		VendorID:     fields["vendor_id"],
		IngredientID: fields["ingredient_id"],
		Status:       model.POStatus(fields["status"]),
		Quantity:     quantity,
		Amount:       amount,
		OccurredAt:   occurredAt,
	}
	if err := ev.Validate(); err != nil {
		return POEvent{}, err
	}
	return ev, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
