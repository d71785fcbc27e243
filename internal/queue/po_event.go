package queue

import (
	"fmt"
	"time"

	"production_queue/internal/model"

	"github.com/shopspring/decimal"
)

const (
	EventPOCreated    = "purchase_order.created"
	EventPOReconciled = "purchase_order.reconciled"
)

// POEvent is a purchase order change published to Kafka.
type POEvent struct {
	EventID      string          `json:"event_id"`
	Type         string          `json:"type"`
	POID         string          `json:"po_id"`
	PONumber     string          `json:"po_number"`
	VendorID     string          `json:"vendor_id"`
	IngredientID string          `json:"ingredient_id"`
	Status       model.POStatus  `json:"status"`
	Quantity     decimal.Decimal `json:"quantity"`
	Amount       decimal.Decimal `json:"amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Validate rejects events the relay must not forward.
func (e POEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch e.Type {
	case EventPOCreated, EventPOReconciled:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.POID == "" {
		return fmt.Errorf("po_id is required")
	}
	if e.PONumber == "" {
		return fmt.Errorf("po_number is required")
	}
	if e.IngredientID == "" {
		return fmt.Errorf("ingredient_id is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid status %q", e.Status)
	}
	if e.Quantity.IsNegative() {
		return fmt.Errorf("quantity must be >= 0")
	}
	return nil
}

// POStatusMessage is a supplier-side status change read from Kafka.
type POStatusMessage struct {
	PONumber string         `json:"po_number"`
	Status   model.POStatus `json:"status"`
}

func (m POStatusMessage) Validate() error {
	if m.PONumber == "" {
		return fmt.Errorf("po_number is required")
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid status %q", m.Status)
	}
	return nil
}
