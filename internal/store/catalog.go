package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"production_queue/internal/apperr"
	"production_queue/internal/model"
	"production_queue/internal/production"

	"gorm.io/gorm"
)

// Product loads one product.
func (s *Store) Product(ctx context.Context, id string) (model.Product, error) {
	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p, apperr.NotFoundf("product %s not found", id)
		}
		return p, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

// PlanInputs loads the recipes of every product in lines and the stock of
// every ingredient those recipes use.
func (s *Store) PlanInputs(ctx context.Context, lines []production.Line) (map[string][]production.RecipeLine, map[string]production.Stock, error) {
	tx := s.db.WithContext(ctx)
	recipes, err := recipesFor(tx, productIDs(lines))
	if err != nil {
		return nil, nil, err
	}
	var ingredientIDs []string
	seen := make(map[string]bool)
	for _, rs := range recipes {
		for _, r := range rs {
			if !seen[r.IngredientID] {
				seen[r.IngredientID] = true
				ingredientIDs = append(ingredientIDs, r.IngredientID)
			}
		}
	}
	stock, err := stockFor(tx, ingredientIDs)
	if err != nil {
		return nil, nil, err
	}
	return recipes, stock, nil
}

func productIDs(lines []production.Line) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, l := range lines {
		if l.ProductID != "" && !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

func recipesFor(tx *gorm.DB, productIDs []string) (map[string][]production.RecipeLine, error) {
	out := make(map[string][]production.RecipeLine)
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []model.Recipe
	if err := tx.Where("product_id IN ?", productIDs).Order("percentage DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}
	for _, r := range rows {
		out[r.ProductID] = append(out[r.ProductID], recipeLine(r))
	}
	return out, nil
}

func recipeLine(r model.Recipe) production.RecipeLine {
	return production.RecipeLine{
		ProductID:    r.ProductID,
		IngredientID: r.IngredientID,
		Percentage:   r.Percentage,
		WasteFactor:  r.WasteFactor,
	}
}

func stockFor(tx *gorm.DB, ingredientIDs []string) (map[string]production.Stock, error) {
	out := make(map[string]production.Stock)
	if len(ingredientIDs) == 0 {
		return out, nil
	}
	var rows []model.Ingredient
	if err := tx.Preload("Vendor").Where("id IN ?", ingredientIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	for _, ing := range rows {
		out[ing.ID] = StockOf(ing)
	}
	return out, nil
}

// StockOf converts an ingredient row into planning stock.
func StockOf(ing model.Ingredient) production.Stock {
	st := production.Stock{
		IngredientID: ing.ID,
		Name:         ing.Name,
		Unit:         ing.Unit,
		GramsPerUnit: ing.GramsPerUnit,
		CurrentStock: ing.CurrentStock,
		UnitCost:     ing.UnitCost,
	}
	if v := ing.Vendor; v != nil {
		st.Supplier = &production.Supplier{ID: v.ID, Name: v.Name, Phone: v.Phone, Email: v.Email}
	}
	return st
}

// Recipe returns a product's recipe rows with their ingredients.
func (s *Store) Recipe(ctx context.Context, productID string) ([]model.Recipe, error) {
	var rows []model.Recipe
	err := s.db.WithContext(ctx).
		Preload("Ingredient").
		Where("product_id = ?", productID).
		Order("percentage DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	return rows, nil
}

// ReplaceRecipe validates lines and swaps them in for the product's recipe.
func (s *Store) ReplaceRecipe(ctx context.Context, productID string, lines []production.RecipeLine) ([]model.Recipe, error) {
	if err := production.ValidateRecipe(lines); err != nil {
		return nil, apperr.Validationf("%s", err.Error())
	}
	if _, err := s.Product(ctx, productID); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.IngredientID)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var found int64
		if err := tx.Model(&model.Ingredient{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return fmt.Errorf("check ingredients: %w", err)
		}
		if int(found) != len(ids) {
			return apperr.Validationf("recipe references unknown ingredients")
		}
		if err := tx.Where("product_id = ?", productID).Delete(&model.Recipe{}).Error; err != nil {
			return fmt.Errorf("clear recipe: %w", err)
		}
		rows := make([]model.Recipe, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, model.Recipe{
				ProductID:    productID,
				IngredientID: l.IngredientID,
				Percentage:   l.Percentage,
				WasteFactor:  l.WasteFactor,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert recipe: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Recipe(ctx, productID)
}

// Ingredient loads one ingredient with its vendor.
func (s *Store) Ingredient(ctx context.Context, id string) (model.Ingredient, error) {
	var ing model.Ingredient
	if err := s.db.WithContext(ctx).Preload("Vendor").First(&ing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ing, apperr.NotFoundf("ingredient %s not found", id)
		}
		return ing, fmt.Errorf("load ingredient: %w", err)
	}
	return ing, nil
}

// VendorByName matches the vendor name case-insensitively.
func (s *Store) VendorByName(ctx context.Context, name string) (model.Vendor, error) {
	var v model.Vendor
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return v, apperr.NotFoundf("vendor %q not found", name)
		}
		return v, fmt.Errorf("load vendor: %w", err)
	}
	return v, nil
}

// PackagingMaterials lists packaging stock with vendors.
func (s *Store) PackagingMaterials(ctx context.Context) ([]model.PackagingMaterial, error) {
	var rows []model.PackagingMaterial
	if err := s.db.WithContext(ctx).Preload("Vendor").Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load packaging materials: %w", err)
	}
	return rows, nil
}
