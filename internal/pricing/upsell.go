package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Advise renders the "almost qualified" hint shown when no rule applied: the
// rule with the smallest strictly positive shortfall wins, with the same
// first-encountered-wins tie policy as rule selection. Returns "" when no
// active rule is within reach.
func Advise(agg Aggregates, rules []Rule, snap Snapshot) string {
	hint := ""
	bestNeeded := 0
	for _, r := range rules {
		if !r.Active || r.Validate() != nil {
			continue
		}
		needed := r.MinQuantity - relevantQuantity(agg, r)
		if needed <= 0 {
			continue
		}
		rendered := renderHint(r, needed, snap)
		if rendered == "" {
			continue
		}
		if hint == "" || needed < bestNeeded {
			bestNeeded = needed
			hint = rendered
		}
	}
	return hint
}

func renderHint(r Rule, needed int, snap Snapshot) string {
	pct := formatPercent(r.Percent)
	switch r.Type {
	case RuleTotalQuantity:
		return fmt.Sprintf("Добавьте еще %d шт. любого товара, чтобы получить скидку %s%%!", needed, pct)
	case RuleProductQuantity:
		product, ok := snap.Products[*r.ProductTarget]
		if !ok {
			return ""
		}
		return fmt.Sprintf("Добавьте еще %d шт. товара «%s», чтобы получить скидку %s%%!", needed, product.Name, pct)
	case RuleCategoryQuantity:
		category, ok := snap.Categories[*r.CategoryTarget]
		if !ok {
			return ""
		}
		return fmt.Sprintf("Добавьте еще %d шт. из категории «%s», чтобы получить скидку %s%%!", needed, category.Name, pct)
	}
	return ""
}

// formatPercent renders the percentage without trailing zeros so the hint
// reads "10%" rather than "10.00%".
func formatPercent(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
