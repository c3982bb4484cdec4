package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidInput marks failures caused by a bad caller payload, such as a
	// non-positive line quantity. These belong to the request boundary.
	ErrInvalidInput = errors.New("pricing: invalid input")
	// ErrCatalogData marks invariant violations in the catalog snapshot, such
	// as a category parent cycle. These belong to the catalog administrator.
	ErrCatalogData = errors.New("pricing: catalog data invariant violated")
)

// RuleType enumerates the supported discount rule conditions.
type RuleType string

const (
	// RuleTotalQuantity activates on the total number of units in the cart.
	RuleTotalQuantity RuleType = "TOTAL_QTY"
	// RuleProductQuantity activates on the quantity of one specific product.
	RuleProductQuantity RuleType = "PRODUCT_QTY"
	// RuleCategoryQuantity activates on the quantity of units whose product
	// belongs to a category or any of its descendants.
	RuleCategoryQuantity RuleType = "CATEGORY_QTY"
)

// Product is the catalog view the engine prices against.
type Product struct {
	ID           uuid.UUID
	Name         string
	RegularPrice decimal.Decimal
	DealPrice    *decimal.Decimal
	DealEndsAt   *time.Time
	CategoryID   uuid.UUID
}

// DealActive reports whether the time-boxed deal price applies at the instant.
func (p Product) DealActive(now time.Time) bool {
	return p.DealPrice != nil && p.DealEndsAt != nil && p.DealEndsAt.After(now)
}

// EffectivePrice resolves the unit price actually charged: the deal price
// while the deal is active, the regular price otherwise.
func EffectivePrice(p Product, now time.Time) decimal.Decimal {
	if p.DealActive(now) {
		return *p.DealPrice
	}
	return p.RegularPrice
}

// Category is a node in the category forest.
type Category struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
}

// Rule captures one discount rule from the catalog.
type Rule struct {
	ID             uuid.UUID
	Name           string
	Type           RuleType
	MinQuantity    int
	Percent        decimal.Decimal
	ProductTarget  *uuid.UUID
	CategoryTarget *uuid.UUID
	Active         bool
}

// Validate ensures the rule is well formed: a known type, a positive
// activation threshold, a percentage within (0, 100], and exactly the target
// field its type requires. A failing rule is a catalog invariant violation;
// the evaluator skips such rules and the admin boundary rejects them.
func (r Rule) Validate() error {
	if r.MinQuantity <= 0 {
		return fmt.Errorf("rule %q: min quantity must be positive: %w", r.Name, ErrCatalogData)
	}
	if r.Percent.LessThanOrEqual(decimal.Zero) || r.Percent.GreaterThan(hundred) {
		return fmt.Errorf("rule %q: percentage out of range: %w", r.Name, ErrCatalogData)
	}
	switch r.Type {
	case RuleTotalQuantity:
		if r.ProductTarget != nil || r.CategoryTarget != nil {
			return fmt.Errorf("rule %q: total-quantity rule must not carry a target: %w", r.Name, ErrCatalogData)
		}
	case RuleProductQuantity:
		if r.ProductTarget == nil || r.CategoryTarget != nil {
			return fmt.Errorf("rule %q: product-quantity rule requires exactly a product target: %w", r.Name, ErrCatalogData)
		}
	case RuleCategoryQuantity:
		if r.CategoryTarget == nil || r.ProductTarget != nil {
			return fmt.Errorf("rule %q: category-quantity rule requires exactly a category target: %w", r.Name, ErrCatalogData)
		}
	default:
		return fmt.Errorf("rule %q: unknown rule type %q: %w", r.Name, r.Type, ErrCatalogData)
	}
	return nil
}

// Line is one cart position handed in by the caller.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

// Snapshot is the immutable catalog view one computation operates on. The
// caller is responsible for reading products, categories, and rules within a
// single consistent read so nothing mutates mid-computation.
type Snapshot struct {
	Products   map[uuid.UUID]Product
	Categories map[uuid.UUID]Category
}

var hundred = decimal.NewFromInt(100)

// round2 quantises a monetary amount to two decimal places using banker's
// rounding. Applied uniformly to per-line discounted prices and to the
// headline totals.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}
