package pricing

import "github.com/shopspring/decimal"

// Item is the per-line attribution record returned to the caller.
type Item struct {
	ID        int
	Product   Product
	Quantity  int
	UnitPrice decimal.Decimal
	// DiscountedUnitPrice is set only when the applied rule affects the line.
	DiscountedUnitPrice *decimal.Decimal
}

// Attribute produces one record per aggregated line. Under a total-quantity
// rule every line is affected; under a product or category rule only the
// targeted lines are. Affected lines get the unit price reduced by the rule's
// percentage, quantised independently per line.
func Attribute(agg Aggregates, applied *Rule) []Item {
	items := make([]Item, 0, len(agg.Lines))
	for i, la := range agg.Lines {
		item := Item{
			ID:        i + 1,
			Product:   la.Product,
			Quantity:  la.Line.Quantity,
			UnitPrice: la.UnitPrice,
		}
		if applied != nil && lineAffected(la, *applied) {
			discounted := round2(la.UnitPrice.Mul(hundred.Sub(applied.Percent)).Div(hundred))
			item.DiscountedUnitPrice = &discounted
		}
		items = append(items, item)
	}
	return items
}

func lineAffected(la LineAgg, r Rule) bool {
	switch r.Type {
	case RuleTotalQuantity:
		return true
	case RuleProductQuantity:
		return la.Product.ID == *r.ProductTarget
	case RuleCategoryQuantity:
		return la.InCategory(*r.CategoryTarget)
	}
	return false
}
