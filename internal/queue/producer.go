package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer publishes PO events to the purchase order topic. Events of one
// PO share a key, so the Hash balancer keeps them ordered on one partition.
type Producer struct {
	w *kafka.Writer
}

// ProducerOption adjusts the writer before first use.
type ProducerOption func(*kafka.Writer)

// WithWriteTimeout bounds a single write to the brokers.
func WithWriteTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) { w.WriteTimeout = d }
}

func NewProducer(brokers []string, topic string, opts ...ProducerOption) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  5 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &Producer{w: w}
}

func (p *Producer) Close() error { return p.w.Close() }

// Publish writes one event and waits for every in-sync replica.
func (p *Producer) Publish(ctx context.Context, ev POEvent) error {
	msg, err := poMessage(ev)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s %s: %w", ev.Type, ev.PONumber, err)
	}
	return nil
}

// poMessage encodes ev keyed by its PO number.
func poMessage(ev POEvent) (kafka.Message, error) {
	if err := ev.Validate(); err != nil {
		return kafka.Message{}, fmt.Errorf("invalid po event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode po event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.PONumber),
		Value: b,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "po_status", Value: []byte(ev.Status)},
		},
	}, nil
}
