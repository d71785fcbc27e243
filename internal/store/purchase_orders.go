package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewPurchaseOrder is the input of CreatePurchaseOrder. Quantity is in the
// ingredient's display unit.
type NewPurchaseOrder struct {
	VendorID      string
	IngredientID  string
	Quantity      decimal.Decimal
	Notes         string
	SourceOrderID *string
}

// ActivePOFor returns the draft/sent/confirmed PO that already covers
// ingredientID at vendorID, or nil.
func (s *Store) ActivePOFor(ctx context.Context, vendorID, ingredientID string) (*model.PurchaseOrder, error) {
	return activePOFor(s.db.WithContext(ctx), vendorID, ingredientID)
}

func activePOFor(tx *gorm.DB, vendorID, ingredientID string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := tx.
		Joins("JOIN purchase_order_items ON purchase_order_items.purchase_order_id = purchase_orders.id").
		Where("purchase_orders.vendor_id = ?", vendorID).
		Where("purchase_order_items.ingredient_id = ?", ingredientID).
		Where("purchase_orders.status IN ?", model.ActivePOStatuses).
		Order("purchase_orders.created_at DESC").
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active purchase order: %w", err)
	}
	return &po, nil
}

// CreatePurchaseOrder inserts a draft PO with one item and stamps the
// vendor's last order time, all in one transaction. If an active PO for the
// same vendor and ingredient shows up inside the transaction it is returned
// with created=false and nothing is written.
func (s *Store) CreatePurchaseOrder(ctx context.Context, in NewPurchaseOrder) (po model.PurchaseOrder, created bool, err error) {
	if !in.Quantity.IsPositive() {
		return po, false, apperr.Validationf("quantity must be > 0")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := activePOFor(tx, in.VendorID, in.IngredientID)
		if err != nil {
			return err
		}
		if existing != nil {
			po = *existing
			return nil
		}

		var ing model.Ingredient
		if err := tx.First(&ing, "id = ?", in.IngredientID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("ingredient %s not found", in.IngredientID)
			}
			return fmt.Errorf("load ingredient: %w", err)
		}

		amount := in.Quantity.Mul(ing.UnitCost).Round(2)
		po = model.PurchaseOrder{
			PONumber:      NewPONumber(tx.NowFunc()),
			VendorID:      in.VendorID,
			Status:        model.PODraft,
			TotalAmount:   amount,
			Notes:         in.Notes,
			SourceOrderID: in.SourceOrderID,
			Items: []model.PurchaseOrderItem{{
				IngredientID: ing.ID,
				Quantity:     in.Quantity,
				UnitCost:     ing.UnitCost,
				TotalCost:    amount,
			}},
		}
		if err := tx.Create(&po).Error; err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}
		err = tx.Model(&model.Vendor{}).
			Where("id = ?", in.VendorID).
			Update("last_ordered_at", tx.NowFunc()).Error
		if err != nil {
			return fmt.Errorf("stamp vendor: %w", err)
		}
		created = true
		return nil
	})
	return po, created, err
}

// NewPONumber formats PO-<unix millis>-<random suffix>.
func NewPONumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PO-%d-%s", now.UnixMilli(), suffix)
}

// PurchaseOrdersByID loads the listed POs with their items, keyed by id.
// Missing ids are absent from the result.
func (s *Store) PurchaseOrdersByID(ctx context.Context, ids []string) (map[string]model.PurchaseOrder, error) {
	out := make(map[string]model.PurchaseOrder, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.PurchaseOrder
	if err := s.db.WithContext(ctx).Preload("Items").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load purchase orders: %w", err)
	}
	for _, po := range rows {
		out[po.ID] = po
	}
	return out, nil
}

// UpdatePOStatusByNumber applies a supplier-side status change.
func (s *Store) UpdatePOStatusByNumber(ctx context.Context, poNumber string, status model.POStatus) (model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if !status.Valid() {
		return po, apperr.Validationf("unknown purchase order status %q", status)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&po, "po_number = ?", poNumber).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("purchase order %s not found", poNumber)
			}
			return fmt.Errorf("load purchase order: %w", err)
		}
		if po.Status == status {
			return nil
		}
		if err := tx.Model(&model.PurchaseOrder{}).Where("id = ?", po.ID).Update("status", status).Error; err != nil {
			return fmt.Errorf("update purchase order status: %w", err)
		}
		po.Status = status
		return nil
	})
	return po, err
}
