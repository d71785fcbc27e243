package production

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Classify compares available stock with the total requirement.
func Classify(currentStock, total decimal.Decimal) StockStatus {
	switch {
	case currentStock.LessThanOrEqual(decimal.Zero):
		return OutOfStock
	case currentStock.LessThan(total):
		return Insufficient
	default:
		return Sufficient
	}
}

// Aggregate computes per-ingredient demand for lines. For every recipe line of
// a line's product:
//
//	required = percentage/100 × quantity × weight_grams
//	waste    = required × waste factor
//	total    = required + waste
//
// summed over all lines, then classified against stock. Arithmetic is exact.
// Ingredients missing from stock are treated as zero stock. Results are
// ordered out_of_stock, insufficient, sufficient, then by name.
func Aggregate(lines []Line, recipes map[string][]RecipeLine, stock map[string]Stock, opts Options) []Requirement {
	defaultWaste := opts.wasteFactor()
	index := make(map[string]int)
	affected := make(map[string]map[string]bool)
	var out []Requirement

	for _, l := range lines {
		weight := l.Weight()
		for _, r := range recipes[l.ProductID] {
			i, ok := index[r.IngredientID]
			if !ok {
				i = len(out)
				index[r.IngredientID] = i
				affected[r.IngredientID] = make(map[string]bool)
				out = append(out, newRequirement(r.IngredientID, stock))
			}
			req := &out[i]

			required := r.Percentage.Shift(-2).Mul(weight)
			factor := defaultWaste
			if r.WasteFactor.Valid {
				factor = r.WasteFactor.Decimal
			}
			waste := required.Mul(factor)

			req.Required = req.Required.Add(required)
			req.Waste = req.Waste.Add(waste)
			req.Total = req.Total.Add(required.Add(waste))

			ref := l.OrderNumber
			if ref == "" {
				ref = l.OrderID
			}
			if ref != "" && !affected[r.IngredientID][ref] {
				affected[r.IngredientID][ref] = true
				req.AffectedOrders = append(req.AffectedOrders, ref)
			}
		}
	}

	for i := range out {
		req := &out[i]
		req.Status = Classify(req.CurrentStock, req.Total)
		req.Shortage = decimal.Max(decimal.Zero, req.Total.Sub(req.CurrentStock))
	}
	SortRequirements(out)
	return out
}

func newRequirement(ingredientID string, stock map[string]Stock) Requirement {
	req := Requirement{
		IngredientID:   ingredientID,
		IngredientName: ingredientID,
		Unit:           "g",
		GramsPerUnit:   decimal.NewFromInt(1),
		Required:       decimal.Zero,
		Waste:          decimal.Zero,
		Total:          decimal.Zero,
		CurrentStock:   decimal.Zero,
	}
	if s, ok := stock[ingredientID]; ok {
		req.IngredientName = s.Name
		req.CurrentStock = s.CurrentStock
		req.Supplier = s.Supplier
		if s.Unit != "" {
			req.Unit = s.Unit
		}
		if s.GramsPerUnit.IsPositive() {
			req.GramsPerUnit = s.GramsPerUnit
		}
	}
	return req
}

// SortRequirements orders by status rank then ingredient name. The sort is
// stable, so equal entries keep their input order.
func SortRequirements(reqs []Requirement) {
	sort.SliceStable(reqs, func(i, j int) bool {
		ri, rj := reqs[i].Status.Rank(), reqs[j].Status.Rank()
		if ri != rj {
			return ri < rj
		}
		return reqs[i].IngredientName < reqs[j].IngredientName
	})
}

// InsufficientCount counts requirements that are not sufficient.
func InsufficientCount(reqs []Requirement) int {
	n := 0
	for _, r := range reqs {
		if r.Status != Sufficient {
			n++
		}
	}
	return n
}

// OrderSummary is the production-queue view of a single order.
type OrderSummary struct {
	OrderID           string
	OrderNumber       string
	Lines             []Line
	TotalWeight       decimal.Decimal
	Requirements      []Requirement
	CanProduce        bool
	InsufficientCount int
}

// SummarizeOrders aggregates each order on its own against full stock.
// Orders keep their first-seen order from lines.
func SummarizeOrders(lines []Line, recipes map[string][]RecipeLine, stock map[string]Stock, opts Options) []OrderSummary {
	index := make(map[string]int)
	var out []OrderSummary
	for _, l := range lines {
		i, ok := index[l.OrderID]
		if !ok {
			i = len(out)
			index[l.OrderID] = i
			out = append(out, OrderSummary{OrderID: l.OrderID, OrderNumber: l.OrderNumber, TotalWeight: decimal.Zero})
		}
		out[i].Lines = append(out[i].Lines, l)
		out[i].TotalWeight = out[i].TotalWeight.Add(l.Weight())
	}
	for i := range out {
		s := &out[i]
		s.Requirements = Aggregate(s.Lines, recipes, stock, opts)
		s.InsufficientCount = InsufficientCount(s.Requirements)
		s.CanProduce = s.InsufficientCount == 0
	}
	return out
}
