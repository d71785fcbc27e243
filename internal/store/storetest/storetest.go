// Package storetest opens throwaway in-memory databases seeded with a small
// catalog of cat-food products, for tests across packages.
package storetest

import (
	"fmt"
	"testing"
	"time"

	"production_queue/internal/model"
	"production_queue/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// New opens a private in-memory SQLite database and migrates it.
func New(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := store.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps concurrent tests off SQLite's shared-cache table locks
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return store.New(db)
}

// Fixture holds the ids of the seeded rows.
//
// Active demand: CK-1001 and CK-1002 each hold 2 x 250 g Chicken Meal,
// CK-1004 holds 1 x 500 g Kitten Starter Pack. CK-1003 is delivered.
// With the default 7.5% waste this needs 752.5 g chicken (500 in stock),
// 537.5 g rice (none in stock) and 322.5 g fish oil (10 kg in stock).
type Fixture struct {
	VendorID string

	ChickenID string
	RiceID    string
	FishOilID string

	ChickenMealID string
	KittenPackID  string

	MealVariantID   string
	KittenVariantID string

	OrderIDs map[string]string
}

// Seed writes the fixture catalog and orders.
func Seed(t *testing.T, s *store.Store) Fixture {
	t.Helper()
	db := s.DB()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	dec := decimal.RequireFromString

	vendor := model.Vendor{Name: "Fresh Farms", Phone: "+960 7771234", Email: "orders@freshfarms.mv", Active: true}
	must(db.Create(&vendor).Error)

	chicken := model.Ingredient{Name: "Chicken", Unit: "g", GramsPerUnit: dec("1"), CurrentStock: dec("500"), ReorderLevel: dec("1000"), UnitCost: dec("0.02"), VendorID: &vendor.ID}
	rice := model.Ingredient{Name: "Rice", Unit: "kg", GramsPerUnit: dec("1000"), CurrentStock: dec("0"), ReorderLevel: dec("5000"), UnitCost: dec("2.5"), VendorID: &vendor.ID}
	fishOil := model.Ingredient{Name: "Fish Oil", Unit: "g", GramsPerUnit: dec("1"), CurrentStock: dec("10000"), UnitCost: dec("0.05")}
	must(db.Create(&chicken).Error)
	must(db.Create(&rice).Error)
	must(db.Create(&fishOil).Error)

	meal := model.Product{Name: "Chicken Meal", Slug: "chicken-meal", Category: "dry", Active: true}
	kitten := model.Product{Name: "Kitten Starter Pack", Slug: "kitten-starter-pack", Category: "kitten", Active: true}
	must(db.Create(&meal).Error)
	must(db.Create(&kitten).Error)

	mealVariant := model.ProductVariant{ProductID: meal.ID, WeightGrams: 250, Price: dec("85")}
	kittenVariant := model.ProductVariant{ProductID: kitten.ID, WeightGrams: 500, Price: dec("150")}
	must(db.Create(&mealVariant).Error)
	must(db.Create(&kittenVariant).Error)

	must(db.Create(&[]model.Recipe{
		{ProductID: meal.ID, IngredientID: chicken.ID, Percentage: dec("40")},
		{ProductID: meal.ID, IngredientID: rice.ID, Percentage: dec("50")},
		{ProductID: meal.ID, IngredientID: fishOil.ID, Percentage: dec("10")},
		{ProductID: kitten.ID, IngredientID: chicken.ID, Percentage: dec("60")},
		{ProductID: kitten.ID, IngredientID: fishOil.ID, Percentage: dec("40")},
	}).Error)

	f := Fixture{
		VendorID:        vendor.ID,
		ChickenID:       chicken.ID,
		RiceID:          rice.ID,
		FishOilID:       fishOil.ID,
		ChickenMealID:   meal.ID,
		KittenPackID:    kitten.ID,
		MealVariantID:   mealVariant.ID,
		KittenVariantID: kittenVariant.ID,
		OrderIDs:        make(map[string]string),
	}

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	orders := []struct {
		number    string
		status    model.OrderStatus
		variantID string
		qty       int
		price     string
	}{
		{"CK-1001", model.OrderPending, mealVariant.ID, 2, "85"},
		{"CK-1002", model.OrderConfirmed, mealVariant.ID, 2, "85"},
		{"CK-1003", model.OrderDelivered, kittenVariant.ID, 1, "150"},
		{"CK-1004", model.OrderProcessing, kittenVariant.ID, 1, "150"},
	}
	for i, o := range orders {
		total := dec(o.price).Mul(decimal.NewFromInt(int64(o.qty)))
		order := model.Order{
			Base:        model.Base{CreatedAt: start.Add(time.Duration(i) * time.Minute)},
			OrderNumber: o.number,
			Status:      o.status,
			TotalAmount: total,
			Items: []model.OrderItem{{
				ProductVariantID: o.variantID,
				Quantity:         o.qty,
				UnitPrice:        dec(o.price),
				TotalPrice:       total,
			}},
		}
		must(db.Create(&order).Error)
		f.OrderIDs[o.number] = order.ID
	}
	return f
}
