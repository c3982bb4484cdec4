package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/pricing"
)

func TestAdvisePicksSmallestShortfall(t *testing.T) {
	now := testNow()
	snap := testSnapshot(now)
	// One case: the total rule needs 2 more, the category rule needs 2
	// phones, the product rule needs 2 headphones. First smallest wins.
	agg := aggregateFixture(t, pricing.Line{ProductID: prodCase, Quantity: 1})
	hint := pricing.Advise(agg, testRules(), snap)
	require.Equal(t, "Добавьте еще 2 шт. любого товара, чтобы получить скидку 10%!", hint)
}

func TestAdviseNamesProductTarget(t *testing.T) {
	now := testNow()
	snap := testSnapshot(now)
	agg := aggregateFixture(t, pricing.Line{ProductID: prodDeal, Quantity: 1})
	rules := []pricing.Rule{
		{Name: "наушники", Type: pricing.RuleProductQuantity, MinQuantity: 2, Percent: dec("50.00"), ProductTarget: &prodDeal, Active: true},
	}
	hint := pricing.Advise(agg, rules, snap)
	require.Equal(t, "Добавьте еще 1 шт. товара «Товар Дня Наушники», чтобы получить скидку 50%!", hint)
}

func TestAdviseNamesCategoryTarget(t *testing.T) {
	now := testNow()
	snap := testSnapshot(now)
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 1})
	rules := []pricing.Rule{
		{Name: "телефоны", Type: pricing.RuleCategoryQuantity, MinQuantity: 2, Percent: dec("20.50"), CategoryTarget: &catPhones, Active: true},
	}
	hint := pricing.Advise(agg, rules, snap)
	require.Equal(t, "Добавьте еще 1 шт. из категории «Телефоны», чтобы получить скидку 20.5%!", hint)
}

func TestAdviseIgnoresInactiveAndSatisfied(t *testing.T) {
	now := testNow()
	snap := testSnapshot(now)
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 3})
	rules := []pricing.Rule{
		// Already satisfied: shortfall is not positive, nothing to advise.
		{Name: "сработавшее", Type: pricing.RuleTotalQuantity, MinQuantity: 3, Percent: dec("10"), Active: true},
		{Name: "выключено", Type: pricing.RuleTotalQuantity, MinQuantity: 10, Percent: dec("30"), Active: false},
	}
	hint := pricing.Advise(agg, rules, snap)
	require.Empty(t, hint)
}

func TestAdviseEmptyWhenNoRules(t *testing.T) {
	now := testNow()
	snap := testSnapshot(now)
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 1})
	require.Empty(t, pricing.Advise(agg, nil, snap))
}
