// Package pricing implements the cart pricing and discount-attribution
// engine: a pure function of the cart lines, a consistent catalog snapshot,
// the discount rule set, and the evaluation instant. It holds no state, reads
// no ambient clock, and is safe to invoke concurrently.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the full pricing outcome for one cart.
type Result struct {
	Items          []Item
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
	// AppliedRule is the display name of the selected rule, nil when none.
	AppliedRule *string
	// UpsellHint is rendered only when no rule applied and at least one
	// active rule is within reach.
	UpsellHint *string
	// Skipped counts submitted lines dropped because their product is gone
	// from the catalog.
	Skipped int
}

// Compute aggregates the lines, selects the single most beneficial rule,
// attributes the discount to the affected lines, and renders the upsell hint
// when nothing applied. An empty cart yields a neutral result; rejecting it,
// if desired, is the transport layer's concern.
func Compute(lines []Line, rules []Rule, snap Snapshot, now time.Time) (Result, error) {
	agg, err := Aggregate(lines, snap, now)
	if err != nil {
		return Result{}, err
	}

	applied, discount := SelectBest(agg, rules)

	result := Result{
		Items:          Attribute(agg, applied),
		Subtotal:       round2(agg.Subtotal),
		DiscountAmount: round2(discount),
		Skipped:        agg.Skipped,
	}
	result.FinalTotal = result.Subtotal.Sub(result.DiscountAmount)

	if applied != nil {
		name := applied.Name
		result.AppliedRule = &name
		return result, nil
	}
	// An empty cart stays neutral: nothing to nudge towards.
	if len(agg.Lines) > 0 {
		if hint := Advise(agg, rules, snap); hint != "" {
			result.UpsellHint = &hint
		}
	}
	return result, nil
}
