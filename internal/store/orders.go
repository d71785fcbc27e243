package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/model"
	"production_queue/internal/production"

	"gorm.io/gorm"
)

// ActiveOrders loads orders in statuses with items, variants and products,
// oldest first.
func (s *Store) ActiveOrders(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Preload("Items.ProductVariant.Product").
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load active orders: %w", err)
	}
	return orders, nil
}

// ActiveOrderLines is ActiveOrders flattened into planning lines.
func (s *Store) ActiveOrderLines(ctx context.Context, statuses []model.OrderStatus) ([]production.Line, error) {
	orders, err := s.ActiveOrders(ctx, statuses)
	if err != nil {
		return nil, err
	}
	return Lines(orders), nil
}

// OrdersForProduct loads orders in statuses that contain productID.
func (s *Store) OrdersForProduct(ctx context.Context, productID string, statuses []model.OrderStatus) ([]model.Order, error) {
	sub := s.db.Table("order_items").
		Select("order_items.order_id").
		Joins("JOIN product_variants ON product_variants.id = order_items.product_variant_id").
		Where("product_variants.product_id = ?", productID)
	return s.ordersMatching(ctx, sub, statuses)
}

// OrdersForProductName loads orders in statuses that contain any product
// named name.
func (s *Store) OrdersForProductName(ctx context.Context, name string, statuses []model.OrderStatus) ([]model.Order, error) {
	sub := s.db.Table("order_items").
		Select("order_items.order_id").
		Joins("JOIN product_variants ON product_variants.id = order_items.product_variant_id").
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("products.name = ?", name)
	return s.ordersMatching(ctx, sub, statuses)
}

func (s *Store) ordersMatching(ctx context.Context, sub *gorm.DB, statuses []model.OrderStatus) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Preload("Items.ProductVariant.Product").
		Where("status IN ?", statuses).
		Where("id IN (?)", sub).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

// Lines flattens orders into planning lines. The product id is always
// projected from the variant.
func Lines(orders []model.Order) []production.Line {
	var out []production.Line
	for _, o := range orders {
		for _, it := range o.Items {
			l := production.Line{
				OrderID:     o.ID,
				OrderNumber: o.OrderNumber,
				VariantID:   it.ProductVariantID,
				Quantity:    it.Quantity,
			}
			if v := it.ProductVariant; v != nil {
				l.ProductID = v.ProductID
				l.WeightGrams = v.WeightGrams
				if v.Product != nil {
					l.ProductName = v.Product.Name
				}
			}
			out = append(out, l)
		}
	}
	return out
}

// FilterLines keeps lines that satisfy keep.
func FilterLines(lines []production.Line, keep func(production.Line) bool) []production.Line {
	var out []production.Line
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// UpdateOrderStatus moves an order along its lifecycle and stamps the matching
// timestamp. Entering in_production deducts the order's ingredient totals
// from stock once; a repeated transition never deducts twice.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, next model.OrderStatus, opts production.Options) (model.Order, error) {
	var order model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items.ProductVariant.Product").First(&order, "id = ?", orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("order %s not found", orderID)
			}
			return fmt.Errorf("load order: %w", err)
		}
		if !order.Status.CanTransitionTo(next) {
			return apperr.Validationf("cannot move order from %s to %s", order.Status, next)
		}

		now := tx.NowFunc()
		updates := map[string]any{"status": next}
		switch next {
		case model.OrderConfirmed:
			updates["confirmed_at"] = now
		case model.OrderInProduction:
			updates["production_started_at"] = now
		case model.OrderReady:
			updates["ready_at"] = now
		case model.OrderDelivered:
			updates["delivered_at"] = now
		case model.OrderCancelled:
			updates["cancelled_at"] = now
		}

		if next == model.OrderInProduction && order.IngredientsDeductedAt == nil {
			if err := deductIngredients(tx, Lines([]model.Order{order}), opts); err != nil {
				return err
			}
			updates["ingredients_deducted_at"] = now
		}

		if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return tx.Preload("Items.ProductVariant.Product").First(&order, "id = ?", orderID).Error
	})
	return order, err
}

func deductIngredients(tx *gorm.DB, lines []production.Line, opts production.Options) error {
	recipes, err := recipesFor(tx, productIDs(lines))
	if err != nil {
		return err
	}
	for _, req := range production.Aggregate(lines, recipes, nil, opts) {
		err := tx.Model(&model.Ingredient{}).
			Where("id = ?", req.IngredientID).
			Update("current_stock", gorm.Expr("current_stock - ?", req.Total)).Error
		if err != nil {
			return fmt.Errorf("deduct ingredient %s: %w", req.IngredientID, err)
		}
	}
	return nil
}

// CreateBatch attaches the given active orders to a new production batch.
func (s *Store) CreateBatch(ctx context.Context, productID, name string, orderIDs []string) (model.ProductionBatch, error) {
	batch := model.ProductionBatch{BatchName: name, ProductID: productID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		res := tx.Model(&model.Order{}).
			Where("id IN ? AND status IN ?", orderIDs, model.ActiveOrderStatuses).
			Update("batch_id", batch.ID)
		if res.Error != nil {
			return fmt.Errorf("assign batch: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Validationf("no active orders to batch")
		}
		return tx.Preload("Orders").First(&batch, "id = ?", batch.ID).Error
	})
	return batch, err
}

// BatchName is the default name of a batch started on day.
func BatchName(productName string, day time.Time) string {
	return fmt.Sprintf("%s - Batch %s", productName, day.Format("2006-01-02"))
}
