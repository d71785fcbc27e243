package model

import "github.com/shopspring/decimal"

// POStatus is the supplier-side purchase order state.
type POStatus string

const (
	PODraft     POStatus = "draft"
	POSent      POStatus = "sent"
	POConfirmed POStatus = "confirmed"
	POReceived  POStatus = "received"
	POCancelled POStatus = "cancelled"
)

// ActivePOStatuses block a second PO for the same vendor and ingredient.
var ActivePOStatuses = []POStatus{PODraft, POSent, POConfirmed}

func (s POStatus) Valid() bool {
	switch s {
	case PODraft, POSent, POConfirmed, POReceived, POCancelled:
		return true
	}
	return false
}

// PurchaseOrder groups the lines ordered from one vendor.
type PurchaseOrder struct {
	Base

	PONumber      string          `gorm:"size:40;uniqueIndex;not null" json:"po_number"`
	VendorID      string          `gorm:"size:36;not null;index" json:"vendor_id"`
	Status        POStatus        `gorm:"size:16;not null;default:draft;index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes"`
	SourceOrderID *string         `gorm:"size:36;index" json:"source_order_id,omitempty"`

	Vendor *Vendor              `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Items  []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

func (PurchaseOrder) TableName() string { return "purchase_orders" }

// PurchaseOrderItem references its ingredient by foreign key; duplicate
// checks and reconciliation match on IngredientID.
type PurchaseOrderItem struct {
	Base

	PurchaseOrderID string          `gorm:"size:36;not null;index" json:"purchase_order_id"`
	IngredientID    string          `gorm:"size:36;not null;index" json:"ingredient_id"`
	Quantity        decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_cost"`
}

func (PurchaseOrderItem) TableName() string { return "purchase_order_items" }
