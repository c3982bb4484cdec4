package pricing

import "github.com/shopspring/decimal"

// Basis returns the subset subtotal the rule's percentage applies to: the full
// cart subtotal for a total-quantity rule, otherwise the summed totals of the
// lines the rule targets. The percentage is deliberately applied to the
// targeted subset only, not the whole cart.
func Basis(agg Aggregates, r Rule) decimal.Decimal {
	switch r.Type {
	case RuleTotalQuantity:
		return agg.Subtotal
	case RuleProductQuantity:
		basis := decimal.Zero
		for _, la := range agg.Lines {
			if la.Product.ID == *r.ProductTarget {
				basis = basis.Add(la.Total)
			}
		}
		return basis
	case RuleCategoryQuantity:
		basis := decimal.Zero
		for _, la := range agg.Lines {
			if la.InCategory(*r.CategoryTarget) {
				basis = basis.Add(la.Total)
			}
		}
		return basis
	}
	return decimal.Zero
}

// Qualifies reports whether the aggregates satisfy the rule's quantity
// condition.
func Qualifies(agg Aggregates, r Rule) bool {
	return relevantQuantity(agg, r) >= r.MinQuantity
}

func relevantQuantity(agg Aggregates, r Rule) int {
	switch r.Type {
	case RuleTotalQuantity:
		return agg.TotalQuantity
	case RuleProductQuantity:
		return agg.PerProduct[*r.ProductTarget]
	case RuleCategoryQuantity:
		return agg.PerCategory[*r.CategoryTarget]
	}
	return 0
}

// SelectBest computes one discount candidate per active, well-formed rule and
// keeps the strictly largest one. Rules must arrive in the caller's stable
// order (ascending creation); because the comparison is strict, the first
// rule carrying the maximal candidate wins ties, which is user-observable and
// must stay reproducible. Returns (nil, 0) when no rule qualifies.
func SelectBest(agg Aggregates, rules []Rule) (*Rule, decimal.Decimal) {
	var applied *Rule
	best := decimal.Zero
	for i := range rules {
		r := rules[i]
		if !r.Active || r.Validate() != nil {
			continue
		}
		if !Qualifies(agg, r) {
			continue
		}
		candidate := Basis(agg, r).Mul(r.Percent).Div(hundred)
		if candidate.GreaterThan(best) {
			best = candidate
			applied = &rules[i]
		}
	}
	if applied == nil {
		return nil, decimal.Zero
	}
	return applied, best
}
