package router

import (
	"net/http"
	"strings"
	"time"

	"production_queue/internal/inventory"
	"production_queue/internal/model"
	"production_queue/internal/production"
	"production_queue/internal/purchasing"
	"production_queue/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func createPurchaseOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			IngredientID  string              `json:"ingredient_id" binding:"required"`
			VendorName    string              `json:"vendor_name"`
			Quantity      decimal.NullDecimal `json:"quantity"`
			SourceOrderID *string             `json:"source_order_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, d.Log, err)
			return
		}
		res, err := d.Purchasing.CreateForShortfall(c.Request.Context(), purchasing.CreateRequest{
			IngredientID:  req.IngredientID,
			VendorName:    req.VendorName,
			Quantity:      req.Quantity,
			SourceOrderID: req.SourceOrderID,
		})
		if err != nil {
			fail(c, d.Log, err)
			return
		}

		if res.AlreadyExists {
			c.JSON(http.StatusOK, gin.H{
				"success":        true,
				"already_exists": true,
				"warning":        "A purchase order for this ingredient is already open with " + res.Vendor.Name,
				"purchase_order": res.PurchaseOrder,
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":        true,
			"already_exists": false,
			"message":        "Purchase order " + res.PurchaseOrder.PONumber + " created for " + res.Vendor.Name,
			"purchase_order": res.PurchaseOrder,
		})
	}
}

func createdPurchaseOrders(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, err := d.Purchasing.Created(c.Request.Context())
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "created": set})
	}
}

func reconcile(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := d.Reconciler.ReconcileOnce(c.Request.Context())
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "checked": res.Checked, "released": res.Released})
	}
}

func updateOrderStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status model.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, d.Log, err)
			return
		}
		if !req.Status.Valid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown order status", "details": string(req.Status)})
			return
		}
		order, err := d.Store.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status, d.planOptions())
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
	}
}

// createBatch starts a production batch. Without order_ids it takes every
// active order of the product.
func createBatch(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProductID string   `json:"product_id" binding:"required"`
			OrderIDs  []string `json:"order_ids"`
			BatchName string   `json:"batch_name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, d.Log, err)
			return
		}
		ctx := c.Request.Context()
		product, err := d.Store.Product(ctx, req.ProductID)
		if err != nil {
			fail(c, d.Log, err)
			return
		}

		orderIDs := req.OrderIDs
		if len(orderIDs) == 0 {
			orders, err := d.Store.OrdersForProduct(ctx, product.ID, model.ActiveOrderStatuses)
			if err != nil {
				fail(c, d.Log, err)
				return
			}
			for _, o := range orders {
				orderIDs = append(orderIDs, o.ID)
			}
		}
		name := strings.TrimSpace(req.BatchName)
		if name == "" {
			name = store.BatchName(product.Name, time.Now().UTC())
		}

		batch, err := d.Store.CreateBatch(ctx, product.ID, name, orderIDs)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "batch": batch})
	}
}

func packagingAlerts(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		materials, err := d.Store.PackagingMaterials(c.Request.Context())
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		alerts := inventory.PackagingAlerts(materials)
		counts := map[inventory.Severity]int{}
		for _, a := range alerts {
			counts[a.Severity]++
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"alerts":  nonNil(alerts),
			"summary": gin.H{
				"critical": counts[inventory.SeverityCritical],
				"warning":  counts[inventory.SeverityWarning],
				"info":     counts[inventory.SeverityInfo],
			},
		})
	}
}

func getRecipe(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		product, err := d.Store.Product(ctx, c.Param("product_id"))
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		rows, err := d.Store.Recipe(ctx, product.ID)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		lines := make([]production.RecipeLine, 0, len(rows))
		for _, r := range rows {
			lines = append(lines, production.RecipeLine{ProductID: r.ProductID, IngredientID: r.IngredientID, Percentage: r.Percentage})
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"product":  product,
			"recipe":   nonNil(rows),
			"warnings": nonNil(production.RecipeWarnings(map[string][]production.RecipeLine{product.ID: lines})),
		})
	}
}

func replaceRecipe(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Lines []struct {
				IngredientID string              `json:"ingredient_id" binding:"required"`
				Percentage   decimal.Decimal     `json:"percentage"`
				WasteFactor  decimal.NullDecimal `json:"waste_factor"`
			} `json:"lines" binding:"required,min=1,dive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, d.Log, err)
			return
		}
		lines := make([]production.RecipeLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			lines = append(lines, production.RecipeLine{
				IngredientID: l.IngredientID,
				Percentage:   l.Percentage,
				WasteFactor:  l.WasteFactor,
			})
		}
		rows, err := d.Store.ReplaceRecipe(c.Request.Context(), c.Param("product_id"), lines)
		if err != nil {
			fail(c, d.Log, err)
			return
		}
		d.Log.Info().Str("product_id", c.Param("product_id")).Int("lines", len(rows)).Msg("recipe replaced")
		c.JSON(http.StatusOK, gin.H{"success": true, "recipe": rows})
	}
}
