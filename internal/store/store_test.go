package store_test

import (
	"context"
	"testing"
	"time"

	"production_queue/internal/apperr"
	"production_queue/internal/model"
	"production_queue/internal/production"
	"production_queue/internal/store"
	"production_queue/internal/store/storetest"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestActiveOrderLines(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)

	lines, err := s.ActiveOrderLines(context.Background(), model.ActiveOrderStatuses)
	if err != nil {
		t.Fatalf("ActiveOrderLines: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("Expected 3 active lines, got %d", len(lines))
	}
	wantOrder := []string{"CK-1001", "CK-1002", "CK-1004"}
	for i, l := range lines {
		if l.OrderNumber != wantOrder[i] {
			t.Errorf("Expected line %d for %s, got %s", i, wantOrder[i], l.OrderNumber)
		}
		if l.ProductID == "" || l.ProductName == "" || l.WeightGrams == 0 {
			t.Errorf("Expected product and weight projected, got %+v", l)
		}
	}
	if lines[2].ProductID != f.KittenPackID {
		t.Errorf("Expected kitten pack id %s, got %s", f.KittenPackID, lines[2].ProductID)
	}
}

func TestPlanInputs_AggregatesFixture(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	lines, err := s.ActiveOrderLines(ctx, model.ActiveOrderStatuses)
	if err != nil {
		t.Fatalf("ActiveOrderLines: %v", err)
	}
	recipes, stock, err := s.PlanInputs(ctx, lines)
	if err != nil {
		t.Fatalf("PlanInputs: %v", err)
	}
	reqs := production.Aggregate(lines, recipes, stock, production.Options{})
	if len(reqs) != 3 {
		t.Fatalf("Expected 3 requirements, got %d", len(reqs))
	}

	want := []struct {
		id     string
		total  string
		status production.StockStatus
	}{
		{f.RiceID, "537.5", production.OutOfStock},
		{f.ChickenID, "752.5", production.Insufficient},
		{f.FishOilID, "322.5", production.Sufficient},
	}
	for i, w := range want {
		r := reqs[i]
		if r.IngredientID != w.id {
			t.Errorf("Expected ingredient %s at %d, got %s (%s)", w.id, i, r.IngredientID, r.IngredientName)
			continue
		}
		if !r.Total.Equal(d(w.total)) {
			t.Errorf("Expected total %s for %s, got %s", w.total, r.IngredientName, r.Total)
		}
		if r.Status != w.status {
			t.Errorf("Expected %s for %s, got %s", w.status, r.IngredientName, r.Status)
		}
	}
	if reqs[1].Supplier == nil || reqs[1].Supplier.Name != "Fresh Farms" {
		t.Errorf("Expected chicken supplier Fresh Farms, got %+v", reqs[1].Supplier)
	}
	if !reqs[1].Shortage.Equal(d("252.5")) {
		t.Errorf("Expected chicken shortage 252.5, got %s", reqs[1].Shortage)
	}
}

func TestOrdersForProduct(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)

	orders, err := s.OrdersForProduct(context.Background(), f.KittenPackID, model.ActiveOrderStatuses)
	if err != nil {
		t.Fatalf("OrdersForProduct: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderNumber != "CK-1004" {
		t.Fatalf("Expected only CK-1004, got %d orders", len(orders))
	}

	byName, err := s.OrdersForProductName(context.Background(), "Chicken Meal", model.ActiveOrderStatuses)
	if err != nil {
		t.Fatalf("OrdersForProductName: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("Expected 2 Chicken Meal orders, got %d", len(byName))
	}
}

func TestUpdateOrderStatus_DeductsOnce(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()
	orderID := f.OrderIDs["CK-1004"]

	order, err := s.UpdateOrderStatus(ctx, orderID, model.OrderInProduction, production.Options{})
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if order.Status != model.OrderInProduction || order.ProductionStartedAt == nil || order.IngredientsDeductedAt == nil {
		t.Fatalf("Expected in_production with timestamps, got %+v", order)
	}

	fishOil, err := s.Ingredient(ctx, f.FishOilID)
	if err != nil {
		t.Fatalf("Ingredient: %v", err)
	}
	// 500 g x 40% + 7.5% waste = 215 g
	if !fishOil.CurrentStock.Equal(d("9785")) {
		t.Errorf("Expected fish oil stock 9785, got %s", fishOil.CurrentStock)
	}

	if _, err := s.UpdateOrderStatus(ctx, orderID, model.OrderInProduction, production.Options{}); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("Expected validation error on repeated transition, got %v", err)
	}
	if _, err := s.UpdateOrderStatus(ctx, orderID, model.OrderReady, production.Options{}); err != nil {
		t.Fatalf("UpdateOrderStatus ready: %v", err)
	}
	fishOil, _ = s.Ingredient(ctx, f.FishOilID)
	if !fishOil.CurrentStock.Equal(d("9785")) {
		t.Errorf("Expected stock unchanged after ready, got %s", fishOil.CurrentStock)
	}
}

func TestUpdateOrderStatus_Errors(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	if _, err := s.UpdateOrderStatus(ctx, "missing", model.OrderConfirmed, production.Options{}); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("Expected not_found, got %v", err)
	}
	if _, err := s.UpdateOrderStatus(ctx, f.OrderIDs["CK-1003"], model.OrderCancelled, production.Options{}); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("Expected validation error leaving delivered, got %v", err)
	}
}

func TestCreateBatch(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	name := store.BatchName("Chicken Meal", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	if name != "Chicken Meal - Batch 2026-03-02" {
		t.Errorf("Unexpected batch name %q", name)
	}
	batch, err := s.CreateBatch(ctx, f.ChickenMealID, name, []string{f.OrderIDs["CK-1001"], f.OrderIDs["CK-1002"], f.OrderIDs["CK-1003"]})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(batch.Orders) != 2 {
		t.Errorf("Expected the two active orders in the batch, got %d", len(batch.Orders))
	}

	if _, err := s.CreateBatch(ctx, f.KittenPackID, "empty", []string{f.OrderIDs["CK-1003"]}); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("Expected validation error for inactive orders, got %v", err)
	}
}

func TestReplaceRecipe(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	lines := []production.RecipeLine{
		{IngredientID: f.ChickenID, Percentage: d("70")},
		{IngredientID: f.FishOilID, Percentage: d("30"), WasteFactor: decimal.NewNullDecimal(d("0.1"))},
	}
	rows, err := s.ReplaceRecipe(ctx, f.KittenPackID, lines)
	if err != nil {
		t.Fatalf("ReplaceRecipe: %v", err)
	}
	if len(rows) != 2 || !rows[0].Percentage.Equal(d("70")) {
		t.Fatalf("Unexpected recipe %+v", rows)
	}
	if !rows[1].WasteFactor.Valid || !rows[1].WasteFactor.Decimal.Equal(d("0.1")) {
		t.Errorf("Expected waste override 0.1, got %+v", rows[1].WasteFactor)
	}

	testCases := []struct {
		name      string
		productID string
		lines     []production.RecipeLine
		want      apperr.Kind
	}{
		{"sum below 100", f.KittenPackID, []production.RecipeLine{{IngredientID: f.ChickenID, Percentage: d("90")}}, apperr.Validation},
		{"unknown ingredient", f.KittenPackID, []production.RecipeLine{{IngredientID: "nope", Percentage: d("100")}}, apperr.Validation},
		{"unknown product", "nope", []production.RecipeLine{{IngredientID: f.ChickenID, Percentage: d("100")}}, apperr.NotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.ReplaceRecipe(ctx, tc.productID, tc.lines)
			if apperr.KindOf(err) != tc.want {
				t.Errorf("Expected %s, got %v", tc.want, err)
			}
		})
	}

	after, err := s.Recipe(ctx, f.KittenPackID)
	if err != nil {
		t.Fatalf("Recipe: %v", err)
	}
	if len(after) != 2 {
		t.Errorf("Expected failed replaces to keep the recipe, got %d rows", len(after))
	}
}

func TestVendorByName_CaseInsensitive(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)

	v, err := s.VendorByName(context.Background(), "  fresh FARMS ")
	if err != nil {
		t.Fatalf("VendorByName: %v", err)
	}
	if v.ID != f.VendorID {
		t.Errorf("Expected vendor %s, got %s", f.VendorID, v.ID)
	}
	if _, err := s.VendorByName(context.Background(), "Nobody"); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("Expected not_found, got %v", err)
	}
}

func TestCreatePurchaseOrder(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	po, created, err := s.CreatePurchaseOrder(ctx, store.NewPurchaseOrder{
		VendorID:     f.VendorID,
		IngredientID: f.RiceID,
		Quantity:     d("1"),
		Notes:        "Auto-generated",
	})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	if !created || po.Status != model.PODraft {
		t.Fatalf("Expected a new draft PO, got created=%v status=%s", created, po.Status)
	}
	if !po.TotalAmount.Equal(d("2.5")) {
		t.Errorf("Expected amount 2.5, got %s", po.TotalAmount)
	}

	again, created, err := s.CreatePurchaseOrder(ctx, store.NewPurchaseOrder{VendorID: f.VendorID, IngredientID: f.RiceID, Quantity: d("3")})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder again: %v", err)
	}
	if created || again.ID != po.ID {
		t.Errorf("Expected the existing PO %s back, got created=%v id=%s", po.ID, created, again.ID)
	}

	vendor, _ := s.VendorByName(ctx, "Fresh Farms")
	if vendor.LastOrderedAt == nil {
		t.Error("Expected vendor last_ordered_at to be stamped")
	}

	if _, err := s.UpdatePOStatusByNumber(ctx, po.PONumber, model.POCancelled); err != nil {
		t.Fatalf("UpdatePOStatusByNumber: %v", err)
	}
	active, err := s.ActivePOFor(ctx, f.VendorID, f.RiceID)
	if err != nil {
		t.Fatalf("ActivePOFor: %v", err)
	}
	if active != nil {
		t.Errorf("Expected no active PO after cancel, got %s", active.PONumber)
	}

	byID, err := s.PurchaseOrdersByID(ctx, []string{po.ID, "missing"})
	if err != nil {
		t.Fatalf("PurchaseOrdersByID: %v", err)
	}
	if len(byID) != 1 || byID[po.ID].Status != model.POCancelled || len(byID[po.ID].Items) != 1 {
		t.Errorf("Unexpected purchase orders %+v", byID)
	}
}

func TestCreatePurchaseOrder_Rejects(t *testing.T) {
	s := storetest.New(t)
	f := storetest.Seed(t, s)
	ctx := context.Background()

	if _, _, err := s.CreatePurchaseOrder(ctx, store.NewPurchaseOrder{VendorID: f.VendorID, IngredientID: f.RiceID, Quantity: d("0")}); apperr.KindOf(err) != apperr.Validation {
		t.Errorf("Expected validation error for zero quantity, got %v", err)
	}
	if _, _, err := s.CreatePurchaseOrder(ctx, store.NewPurchaseOrder{VendorID: f.VendorID, IngredientID: "nope", Quantity: d("1")}); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("Expected not_found for unknown ingredient, got %v", err)
	}
	if _, err := s.UpdatePOStatusByNumber(ctx, "PO-0-X", model.POSent); apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("Expected not_found for unknown PO, got %v", err)
	}
}
