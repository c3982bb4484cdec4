package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineAgg is the per-line working state shared by the evaluator and the
// attributor: the resolved product, its effective unit price, the line total,
// and the rolled-up set of ancestor category ids.
type LineAgg struct {
	Line       Line
	Product    Product
	UnitPrice  decimal.Decimal
	Total      decimal.Decimal
	Categories map[uuid.UUID]struct{}
}

// InCategory reports whether the line's product belongs to the category or
// any of its descendants.
func (la LineAgg) InCategory(id uuid.UUID) bool {
	_, ok := la.Categories[id]
	return ok
}

// Aggregates holds the cart totals rule conditions are checked against.
type Aggregates struct {
	Subtotal      decimal.Decimal
	TotalQuantity int
	PerProduct    map[uuid.UUID]int
	PerCategory   map[uuid.UUID]int
	Lines         []LineAgg
	// Skipped counts lines referencing products absent from the snapshot.
	// Dropping them silently is the documented policy: a cart may still hold
	// a product the administrator deleted moments ago.
	Skipped int
}

// Aggregate walks the cart lines once, resolving effective unit prices and
// accumulating subtotal, total quantity, and per-product / per-category
// quantities. Category quantities roll up: every ancestor of the product's
// category receives the line quantity, so a rule targeting a parent category
// is satisfied by purchases in a child.
func Aggregate(lines []Line, snap Snapshot, now time.Time) (Aggregates, error) {
	agg := Aggregates{
		Subtotal:    decimal.Zero,
		PerProduct:  make(map[uuid.UUID]int),
		PerCategory: make(map[uuid.UUID]int),
		Lines:       make([]LineAgg, 0, len(lines)),
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Aggregates{}, fmt.Errorf("line %s: quantity must be positive: %w", line.ProductID, ErrInvalidInput)
		}
		product, ok := snap.Products[line.ProductID]
		if !ok {
			agg.Skipped++
			continue
		}
		unit := EffectivePrice(product, now)
		total := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))

		chain, err := snap.Ancestors(product.CategoryID)
		if err != nil {
			return Aggregates{}, err
		}
		catSet := make(map[uuid.UUID]struct{}, len(chain))
		for _, cat := range chain {
			catSet[cat.ID] = struct{}{}
			agg.PerCategory[cat.ID] += line.Quantity
		}

		agg.Subtotal = agg.Subtotal.Add(total)
		agg.TotalQuantity += line.Quantity
		agg.PerProduct[product.ID] += line.Quantity
		agg.Lines = append(agg.Lines, LineAgg{
			Line:       line,
			Product:    product,
			UnitPrice:  unit,
			Total:      total,
			Categories: catSet,
		})
	}
	return agg, nil
}
