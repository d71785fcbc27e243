package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable recipe, e.g. "Chicken Meal".
type Product struct {
	Base

	Name     string `gorm:"size:128;not null;index" json:"name"`
	Slug     string `gorm:"size:160;uniqueIndex;not null" json:"slug"`
	Category string `gorm:"size:64" json:"category"`
	Active   bool   `gorm:"not null;default:true" json:"active"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	Recipes  []Recipe         `gorm:"foreignKey:ProductID" json:"recipes,omitempty"`
}

func (Product) TableName() string { return "products" }

// ProductVariant is a pack size of a product.
type ProductVariant struct {
	Base

	ProductID   string          `gorm:"size:36;not null;index" json:"product_id"`
	WeightGrams int             `gorm:"not null" json:"weight_grams"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (ProductVariant) TableName() string { return "product_variants" }

// Recipe is one ingredient share of a product. Percentage is 0-100 of the
// product weight; WasteFactor overrides the default production loss.
type Recipe struct {
	Base

	ProductID    string              `gorm:"size:36;not null;uniqueIndex:idx_recipe_product_ingredient" json:"product_id"`
	IngredientID string              `gorm:"size:36;not null;uniqueIndex:idx_recipe_product_ingredient" json:"ingredient_id"`
	Percentage   decimal.Decimal     `gorm:"type:decimal(7,4);not null" json:"percentage"`
	WasteFactor  decimal.NullDecimal `gorm:"type:decimal(6,4)" json:"waste_factor"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}

func (Recipe) TableName() string { return "ingredient_requirements" }

// Ingredient stock is kept in grams; Unit and GramsPerUnit only drive display
// and purchasing quantities.
type Ingredient struct {
	Base

	Name         string          `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Unit         string          `gorm:"size:16;not null;default:g" json:"unit"`
	GramsPerUnit decimal.Decimal `gorm:"type:decimal(12,4);not null;default:1" json:"grams_per_unit"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"current_stock"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"reorder_level"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"unit_cost"`
	VendorID     *string         `gorm:"size:36;index" json:"vendor_id,omitempty"`

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

func (Ingredient) TableName() string { return "ingredients" }

// Vendor supplies ingredients and packaging.
type Vendor struct {
	Base

	Name          string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	ContactPerson string     `gorm:"size:100" json:"contact_person"`
	Phone         string     `gorm:"size:32" json:"phone"`
	Email         string     `gorm:"size:128" json:"email"`
	PaymentTerms  string     `gorm:"size:64" json:"payment_terms"`
	Active        bool       `gorm:"not null;default:true" json:"active"`
	LastOrderedAt *time.Time `json:"last_ordered_at,omitempty"`
}

func (Vendor) TableName() string { return "vendors" }

// PackagingMaterial is packaging/label stock, independent of recipes.
type PackagingMaterial struct {
	Base

	Name         string          `gorm:"size:128;not null" json:"name"`
	Type         string          `gorm:"size:16;not null;default:packaging" json:"type"`
	Unit         string          `gorm:"size:16;not null;default:pcs" json:"unit"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"current_stock"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"reorder_level"`
	UnitCost     decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0" json:"unit_cost"`
	Description  string          `gorm:"size:255" json:"description"`
	VendorID     *string         `gorm:"size:36;index" json:"vendor_id,omitempty"`

	Vendor *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
}

func (PackagingMaterial) TableName() string { return "packaging_materials" }
