package pricing_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/pricing"
)

func aggregateFixture(t *testing.T, lines ...pricing.Line) pricing.Aggregates {
	t.Helper()
	now := testNow()
	agg, err := pricing.Aggregate(lines, testSnapshot(now), now)
	require.NoError(t, err)
	return agg
}

func TestSelectBestFirstRuleWinsTies(t *testing.T) {
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 3})
	rules := []pricing.Rule{
		{ID: uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001"), Name: "первая", Type: pricing.RuleTotalQuantity, MinQuantity: 3, Percent: dec("10"), Active: true},
		{ID: uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000002"), Name: "вторая", Type: pricing.RuleTotalQuantity, MinQuantity: 3, Percent: dec("10"), Active: true},
	}
	applied, discount := pricing.SelectBest(agg, rules)
	require.NotNil(t, applied)
	require.Equal(t, "первая", applied.Name)
	require.Equal(t, "300.00", discount.RoundBank(2).StringFixed(2))
}

func TestSelectBestSkipsInactive(t *testing.T) {
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 3})
	rules := []pricing.Rule{
		{Name: "выключено", Type: pricing.RuleTotalQuantity, MinQuantity: 1, Percent: dec("50"), Active: false},
		{Name: "активно", Type: pricing.RuleTotalQuantity, MinQuantity: 3, Percent: dec("10"), Active: true},
	}
	applied, _ := pricing.SelectBest(agg, rules)
	require.NotNil(t, applied)
	require.Equal(t, "активно", applied.Name)
}

func TestSelectBestSkipsMalformedRule(t *testing.T) {
	agg := aggregateFixture(t, pricing.Line{ProductID: prodPhone, Quantity: 3})
	// A product-quantity rule without its target is a catalog invariant
	// violation; the evaluator must ignore it rather than crash or apply it.
	rules := []pricing.Rule{
		{Name: "битое правило", Type: pricing.RuleProductQuantity, MinQuantity: 1, Percent: dec("90"), Active: true},
		{Name: "рабочее", Type: pricing.RuleTotalQuantity, MinQuantity: 3, Percent: dec("10"), Active: true},
	}
	applied, _ := pricing.SelectBest(agg, rules)
	require.NotNil(t, applied)
	require.Equal(t, "рабочее", applied.Name)
}

func TestSelectBestNoneQualifies(t *testing.T) {
	agg := aggregateFixture(t, pricing.Line{ProductID: prodCase, Quantity: 1})
	applied, discount := pricing.SelectBest(agg, testRules())
	require.Nil(t, applied)
	require.True(t, discount.IsZero())
}

func TestBasisTargetsSubsetOnly(t *testing.T) {
	agg := aggregateFixture(t,
		pricing.Line{ProductID: prodPhone, Quantity: 2},
		pricing.Line{ProductID: prodCase, Quantity: 1},
	)
	category := pricing.Rule{Type: pricing.RuleCategoryQuantity, CategoryTarget: &catPhones}
	require.Equal(t, "2000.00", pricing.Basis(agg, category).StringFixed(2))

	product := pricing.Rule{Type: pricing.RuleProductQuantity, ProductTarget: &prodCase}
	require.Equal(t, "500.00", pricing.Basis(agg, product).StringFixed(2))

	total := pricing.Rule{Type: pricing.RuleTotalQuantity}
	require.Equal(t, "2500.00", pricing.Basis(agg, total).StringFixed(2))
}

func TestRuleValidate(t *testing.T) {
	valid := testRules()
	for _, r := range valid {
		require.NoError(t, r.Validate())
	}

	cases := []pricing.Rule{
		{Name: "no target", Type: pricing.RuleProductQuantity, MinQuantity: 2, Percent: dec("10"), Active: true},
		{Name: "wrong target", Type: pricing.RuleTotalQuantity, MinQuantity: 2, Percent: dec("10"), ProductTarget: &prodPhone, Active: true},
		{Name: "both targets", Type: pricing.RuleCategoryQuantity, MinQuantity: 2, Percent: dec("10"), ProductTarget: &prodPhone, CategoryTarget: &catPhones, Active: true},
		{Name: "zero min", Type: pricing.RuleTotalQuantity, MinQuantity: 0, Percent: dec("10"), Active: true},
		{Name: "over 100", Type: pricing.RuleTotalQuantity, MinQuantity: 2, Percent: dec("120"), Active: true},
		{Name: "unknown type", Type: pricing.RuleType("BOGOF"), MinQuantity: 2, Percent: dec("10"), Active: true},
	}
	for _, r := range cases {
		require.ErrorIs(t, r.Validate(), pricing.ErrCatalogData, "rule %q", r.Name)
	}
}
