package production

import "github.com/shopspring/decimal"

// UnknownProduct names lines whose product could not be resolved.
const UnknownProduct = "Unknown Product"

// ProductGroup is the set of open orders containing one product.
type ProductGroup struct {
	Key         string
	ProductID   string
	ProductName string
	// OrderIDs lists each order once, in first-seen order.
	OrderIDs    []string
	Lines       []Line
	TotalWeight decimal.Decimal
}

// OrderCount is the number of distinct orders in the group.
func (g ProductGroup) OrderCount() int { return len(g.OrderIDs) }

// GroupByProduct buckets lines by product id. Products that share a display
// name stay in separate groups. Lines without a product id fall back to a
// name key, so two unidentified products with the same name still merge.
func GroupByProduct(lines []Line) []ProductGroup {
	return group(lines, func(l Line) string {
		if l.ProductID != "" {
			return "id:" + l.ProductID
		}
		return "name:" + displayName(l)
	})
}

// GroupByProductName buckets lines by product display name only. Distinct
// products sharing a name are merged into one group.
func GroupByProductName(lines []Line) []ProductGroup {
	return group(lines, func(l Line) string { return "name:" + displayName(l) })
}

func displayName(l Line) string {
	if l.ProductName == "" {
		return UnknownProduct
	}
	return l.ProductName
}

func group(lines []Line, keyOf func(Line) string) []ProductGroup {
	index := make(map[string]int)
	seen := make(map[string]map[string]bool)
	var out []ProductGroup

	for _, l := range lines {
		key := keyOf(l)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			seen[key] = make(map[string]bool)
			out = append(out, ProductGroup{
				Key:         key,
				ProductID:   l.ProductID,
				ProductName: displayName(l),
				TotalWeight: decimal.Zero,
			})
		}
		g := &out[i]
		g.Lines = append(g.Lines, l)
		g.TotalWeight = g.TotalWeight.Add(l.Weight())
		if !seen[key][l.OrderID] {
			seen[key][l.OrderID] = true
			g.OrderIDs = append(g.OrderIDs, l.OrderID)
		}
	}
	return out
}
