package router

import (
	"context"
	"net/http"
	"strings"

	"production_queue/internal/model"
	"production_queue/internal/production"
	"production_queue/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// created loads the created PO set for display. A Redis failure only hides
// the markers.
func (d Deps) created(ctx context.Context) map[string]string {
	set, err := d.Purchasing.Created(ctx)
	if err != nil {
		d.Log.Warn().Err(err).Msg("load created purchase orders")
		return map[string]string{}
	}
	return set
}

// productGroupIngredients aggregates the requirements of one product across
// its active orders.
func productGroupIngredients(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID string `json:"product_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, d.Log, err)
			return
		}
		if _, err := uuid.Parse(req.ProductID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID format"})
			return
		}
		ctx := c.Request.Context()
		if _, err := d.Store.Product(ctx, req.ProductID); err != nil {
			fail(c, d.Log, err)
			return
		}

		orders, err := d.Store.OrdersForProduct(ctx, req.ProductID, model.ActiveOrderStatuses)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		lines := store.FilterLines(store.Lines(orders), func(l production.Line) bool {
			return l.ProductID == req.ProductID
		})
		recipes, stock, err := d.Store.PlanInputs(ctx, lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		reqs := production.Aggregate(lines, recipes, stock, d.planOptions())
		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"ingredient_requirements": requirementDTOs(reqs, d.created(ctx), false),
			"fallback_used":           true,
		})
	}
}

// productionQueue lists active orders, each checked on its own against
// current stock.
func productionQueue(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		orders, err := d.Store.ActiveOrders(ctx, model.ActiveOrderStatuses)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		lines := store.Lines(orders)
		recipes, stock, err := d.Store.PlanInputs(ctx, lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}

		summaries := production.SummarizeOrders(lines, recipes, stock, d.planOptions())
		byID := make(map[string]production.OrderSummary, len(summaries))
		for _, s := range summaries {
			byID[s.OrderID] = s
		}
		created := d.created(ctx)

		out := make([]queueOrderDTO, 0, len(orders))
		for _, o := range orders {
			s := byID[o.ID]
			dto := queueOrderDTO{
				OrderID:           o.ID,
				OrderNumber:       o.OrderNumber,
				Status:            o.Status,
				CreatedAt:         o.CreatedAt,
				TotalWeight:       s.TotalWeight,
				CanProduce:        s.CanProduce,
				InsufficientCount: s.InsufficientCount,
				Requirements:      requirementDTOs(s.Requirements, created, false),
				Items:             []queueItemDTO{},
			}
			if info, err := o.Delivery(); err == nil {
				dto.CustomerName = info.CustomerName
			}
			for _, l := range s.Lines {
				dto.Items = append(dto.Items, queueItemDTO{
					ProductID:   l.ProductID,
					ProductName: l.ProductName,
					VariantID:   l.VariantID,
					Quantity:    l.Quantity,
					WeightGrams: l.WeightGrams,
				})
			}
			out = append(out, dto)
		}

		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"orders":          out,
			"recipe_warnings": nonNil(production.RecipeWarnings(recipes)),
		})
	}
}

// productGroups groups active orders by product.
func productGroups(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lines, err := d.Store.ActiveOrderLines(ctx, model.ActiveOrderStatuses)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		recipes, stock, err := d.Store.PlanInputs(ctx, lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		created := d.created(ctx)
		groups := production.GroupByProduct(lines)
		out := make([]productGroupDTO, 0, len(groups))
		for _, g := range groups {
			reqs := production.Aggregate(g.Lines, recipes, stock, d.planOptions())
			out = append(out, groupDTO(g, reqs, created))
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "product_groups": out})
	}
}

// productGroupByName is the name-keyed lookup. Distinct products sharing the
// name are aggregated together.
func productGroupByName(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Param("name"))
		if name == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product name is required"})
			return
		}
		ctx := c.Request.Context()
		orders, err := d.Store.OrdersForProductName(ctx, name, model.ActiveOrderStatuses)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		lines := store.FilterLines(store.Lines(orders), func(l production.Line) bool {
			return l.ProductName == name
		})
		recipes, stock, err := d.Store.PlanInputs(ctx, lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		groups := production.GroupByProductName(lines)
		if len(groups) == 0 {
			c.JSON(http.StatusOK, gin.H{"success": true, "product_group": nil, "ingredient_requirements": []requirementDTO{}})
			return
		}
		g := groups[0]
		reqs := production.Aggregate(g.Lines, recipes, stock, d.planOptions())
		dto := groupDTO(g, reqs, d.created(ctx))
		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"product_group":           dto,
			"ingredient_requirements": dto.Requirements,
		})
	}
}

// cumulativeRequirements totals every active order against stock.
func cumulativeRequirements(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lines, err := d.Store.ActiveOrderLines(ctx, model.ActiveOrderStatuses)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		recipes, stock, err := d.Store.PlanInputs(ctx, lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		reqs := production.Aggregate(lines, recipes, stock, d.planOptions())

		counts := map[production.StockStatus]int{}
		for _, r := range reqs {
			counts[r.Status]++
		}
		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"ingredient_requirements": requirementDTOs(reqs, d.created(ctx), true),
			"summary": gin.H{
				"total_ingredients": len(reqs),
				"out_of_stock":      counts[production.OutOfStock],
				"insufficient":      counts[production.Insufficient],
				"sufficient":        counts[production.Sufficient],
			},
		})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
