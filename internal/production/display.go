package production

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayQuantity converts grams to the ingredient's own unit.
func DisplayQuantity(grams, gramsPerUnit decimal.Decimal) decimal.Decimal {
	if !gramsPerUnit.IsPositive() {
		return grams
	}
	return grams.Div(gramsPerUnit)
}

// FormatQuantity renders a display quantity with its unit label.
func FormatQuantity(qty decimal.Decimal, unit string) string {
	switch strings.ToLower(unit) {
	case "kg":
		return qty.StringFixed(2) + " kg"
	case "pieces", "pcs":
		return qty.StringFixed(1) + " pcs"
	case "g", "":
		return qty.StringFixed(1) + " g"
	default:
		return qty.StringFixed(1) + " " + unit
	}
}

// SuggestedOrderQuantity is the total requirement in display units, rounded up.
func SuggestedOrderQuantity(r Requirement) decimal.Decimal {
	return DisplayQuantity(r.Total, r.GramsPerUnit).Ceil()
}
