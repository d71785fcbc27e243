// Package production holds the pure planning functions behind the
// production queue: grouping open order lines by product and turning recipes
// into ingredient requirements against current stock.
package production

import "github.com/shopspring/decimal"

// DefaultWasteFactor is the production loss added on top of the raw
// ingredient requirement when a recipe does not override it.
var DefaultWasteFactor = decimal.RequireFromString("0.075")

// Line is one flattened order item with its product and variant resolved.
type Line struct {
	OrderID     string
	OrderNumber string
	ProductID   string
	ProductName string
	VariantID   string
	Quantity    int
	WeightGrams int
}

// Weight is quantity × variant weight in grams.
func (l Line) Weight() decimal.Decimal {
	return decimal.NewFromInt(int64(l.Quantity)).Mul(decimal.NewFromInt(int64(l.WeightGrams)))
}

// RecipeLine is one ingredient share of a product. Percentage is 0-100.
type RecipeLine struct {
	ProductID    string
	IngredientID string
	Percentage   decimal.Decimal
	WasteFactor  decimal.NullDecimal
}

// Supplier is the vendor contact attached to a requirement.
type Supplier struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Stock is the current state of one ingredient. Quantities are grams.
type Stock struct {
	IngredientID string
	Name         string
	Unit         string
	GramsPerUnit decimal.Decimal
	CurrentStock decimal.Decimal
	UnitCost     decimal.Decimal
	Supplier     *Supplier
}

// StockStatus classifies stock against a requirement.
type StockStatus string

const (
	OutOfStock   StockStatus = "out_of_stock"
	Insufficient StockStatus = "insufficient"
	Sufficient   StockStatus = "sufficient"
)

// Rank orders statuses most urgent first.
func (s StockStatus) Rank() int {
	switch s {
	case OutOfStock:
		return 0
	case Insufficient:
		return 1
	default:
		return 2
	}
}

// Requirement is the aggregated demand for one ingredient.
type Requirement struct {
	IngredientID   string
	IngredientName string
	Unit           string
	GramsPerUnit   decimal.Decimal
	Required       decimal.Decimal
	Waste          decimal.Decimal
	Total          decimal.Decimal
	CurrentStock   decimal.Decimal
	Shortage       decimal.Decimal
	Status         StockStatus
	AffectedOrders []string
	Supplier       *Supplier
}

// Options tunes Aggregate.
type Options struct {
	// WasteFactor applies to recipes without their own override. Unset means
	// DefaultWasteFactor; a set zero disables waste.
	WasteFactor decimal.NullDecimal
}

// WithWaste returns Options using factor as the default waste.
func WithWaste(factor decimal.Decimal) Options {
	return Options{WasteFactor: decimal.NewNullDecimal(factor)}
}

func (o Options) wasteFactor() decimal.Decimal {
	if !o.WasteFactor.Valid {
		return DefaultWasteFactor
	}
	return o.WasteFactor.Decimal
}
