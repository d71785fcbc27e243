package production

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidRecipe is wrapped by every ValidateRecipe failure.
var ErrInvalidRecipe = errors.New("invalid recipe")

var hundred = decimal.NewFromInt(100)

// ValidateRecipe checks a full recipe before it is written: each percentage
// within [0,100], no ingredient listed twice, and shares summing to exactly 100.
func ValidateRecipe(lines []RecipeLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: recipe has no ingredients", ErrInvalidRecipe)
	}
	seen := make(map[string]bool, len(lines))
	sum := decimal.Zero
	for _, l := range lines {
		if l.IngredientID == "" {
			return fmt.Errorf("%w: ingredient id is required", ErrInvalidRecipe)
		}
		if seen[l.IngredientID] {
			return fmt.Errorf("%w: ingredient %s listed twice", ErrInvalidRecipe, l.IngredientID)
		}
		seen[l.IngredientID] = true
		if l.Percentage.IsNegative() || l.Percentage.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage for %s must be between 0 and 100, got %s", ErrInvalidRecipe, l.IngredientID, l.Percentage)
		}
		if l.WasteFactor.Valid && (l.WasteFactor.Decimal.IsNegative() || l.WasteFactor.Decimal.GreaterThanOrEqual(decimal.NewFromInt(1))) {
			return fmt.Errorf("%w: waste factor for %s must be in [0,1), got %s", ErrInvalidRecipe, l.IngredientID, l.WasteFactor.Decimal)
		}
		sum = sum.Add(l.Percentage)
	}
	if !sum.Equal(hundred) {
		return fmt.Errorf("%w: percentages sum to %s, want 100", ErrInvalidRecipe, sum)
	}
	return nil
}

// RecipeWarning flags a stored recipe whose shares do not sum to 100.
type RecipeWarning struct {
	ProductID string          `json:"product_id"`
	Sum       decimal.Decimal `json:"percentage_sum"`
}

// RecipeWarnings reports stored recipes that break the 100% rule. Such
// recipes are still used for planning.
func RecipeWarnings(recipes map[string][]RecipeLine) []RecipeWarning {
	var out []RecipeWarning
	for productID, lines := range recipes {
		sum := decimal.Zero
		for _, l := range lines {
			sum = sum.Add(l.Percentage)
		}
		if !sum.Equal(hundred) {
			out = append(out, RecipeWarning{ProductID: productID, Sum: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
