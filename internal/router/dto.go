package router

import (
	"time"

	"production_queue/internal/model"
	"production_queue/internal/production"

	"github.com/shopspring/decimal"
)

// requirementDTO carries raw grams plus display values in the ingredient's
// own unit.
type requirementDTO struct {
	IngredientID   string                 `json:"ingredient_id"`
	IngredientName string                 `json:"ingredient_name"`
	DisplayUnit    string                 `json:"display_unit"`
	Required       decimal.Decimal        `json:"required_grams"`
	Waste          decimal.Decimal        `json:"waste_grams"`
	Total          decimal.Decimal        `json:"total_grams"`
	CurrentStock   decimal.Decimal        `json:"current_stock_grams"`
	Shortage       decimal.Decimal        `json:"shortage_grams"`
	TotalDisplay   string                 `json:"total_display"`
	StockDisplay   string                 `json:"current_stock_display"`
	ShortDisplay   string                 `json:"shortage_display"`
	SuggestedQty   decimal.Decimal        `json:"suggested_order_quantity"`
	Status         production.StockStatus `json:"status"`
	AffectedOrders []string               `json:"affected_orders,omitempty"`
	Supplier       *production.Supplier   `json:"supplier,omitempty"`
	// PurchaseOrderID is set when a PO for the ingredient was already raised.
	PurchaseOrderID string `json:"purchase_order_id,omitempty"`
}

func requirementDTOs(reqs []production.Requirement, created map[string]string, withOrders bool) []requirementDTO {
	out := make([]requirementDTO, 0, len(reqs))
	for _, r := range reqs {
		unit := r.Unit
		if unit == "" {
			unit = "g"
		}
		show := func(grams decimal.Decimal) string {
			return production.FormatQuantity(production.DisplayQuantity(grams, r.GramsPerUnit), unit)
		}
		dto := requirementDTO{
			IngredientID:    r.IngredientID,
			IngredientName:  r.IngredientName,
			DisplayUnit:     unit,
			Required:        r.Required,
			Waste:           r.Waste,
			Total:           r.Total,
			CurrentStock:    r.CurrentStock,
			Shortage:        r.Shortage,
			TotalDisplay:    show(r.Total),
			StockDisplay:    show(r.CurrentStock),
			ShortDisplay:    show(r.Shortage),
			SuggestedQty:    production.SuggestedOrderQuantity(r),
			Status:          r.Status,
			Supplier:        r.Supplier,
			PurchaseOrderID: created[r.IngredientID],
		}
		if withOrders {
			dto.AffectedOrders = r.AffectedOrders
		}
		out = append(out, dto)
	}
	return out
}

type queueItemDTO struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	VariantID   string `json:"variant_id"`
	Quantity    int    `json:"quantity"`
	WeightGrams int    `json:"weight_grams"`
}

type queueOrderDTO struct {
	OrderID           string            `json:"order_id"`
	OrderNumber       string            `json:"order_number"`
	Status            model.OrderStatus `json:"status"`
	CustomerName      string            `json:"customer_name,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Items             []queueItemDTO    `json:"items"`
	TotalWeight       decimal.Decimal   `json:"total_weight_grams"`
	CanProduce        bool              `json:"can_produce"`
	InsufficientCount int               `json:"insufficient_count"`
	Requirements      []requirementDTO  `json:"ingredient_requirements"`
}

type productGroupDTO struct {
	Key               string           `json:"key"`
	ProductID         string           `json:"product_id,omitempty"`
	ProductName       string           `json:"product_name"`
	OrderCount        int              `json:"order_count"`
	OrderIDs          []string         `json:"order_ids"`
	TotalWeight       decimal.Decimal  `json:"total_weight_grams"`
	InsufficientCount int              `json:"insufficient_count"`
	Requirements      []requirementDTO `json:"ingredient_requirements"`
}

func groupDTO(g production.ProductGroup, reqs []production.Requirement, created map[string]string) productGroupDTO {
	return productGroupDTO{
		Key:               g.Key,
		ProductID:         g.ProductID,
		ProductName:       g.ProductName,
		OrderCount:        g.OrderCount(),
		OrderIDs:          g.OrderIDs,
		TotalWeight:       g.TotalWeight,
		InsufficientCount: production.InsufficientCount(reqs),
		Requirements:      requirementDTOs(reqs, created, true),
	}
}
