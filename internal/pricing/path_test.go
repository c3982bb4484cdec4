package pricing_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/pricing"
)

func TestAncestorsChain(t *testing.T) {
	snap := testSnapshot(testNow())
	chain, err := snap.Ancestors(catIphones)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, "iPhone", chain[0].Name)
	require.Equal(t, "Телефоны", chain[1].Name)
}

func TestAncestorsRoot(t *testing.T) {
	snap := testSnapshot(testNow())
	chain, err := snap.Ancestors(catCases)
	require.NoError(t, err)
	require.Len(t, chain, 1)
}

func TestAncestorsUnknownCategory(t *testing.T) {
	snap := testSnapshot(testNow())
	chain, err := snap.Ancestors(uuid.MustParse("deadbeef-0000-4000-8000-000000000000"))
	require.NoError(t, err)
	require.Nil(t, chain)
}

func TestAncestorsDanglingParentEndsChain(t *testing.T) {
	snap := testSnapshot(testNow())
	orphan := uuid.MustParse("deadbeef-0000-4000-8000-000000000001")
	missing := uuid.MustParse("deadbeef-0000-4000-8000-000000000002")
	snap.Categories[orphan] = pricing.Category{ID: orphan, Name: "Сироты", ParentID: &missing}

	chain, err := snap.Ancestors(orphan)
	require.NoError(t, err)
	require.Len(t, chain, 1)
}

func TestAncestorsDetectsCycle(t *testing.T) {
	snap := testSnapshot(testNow())
	phones := snap.Categories[catPhones]
	phones.ParentID = &catIphones
	snap.Categories[catPhones] = phones

	_, err := snap.Ancestors(catIphones)
	require.ErrorIs(t, err, pricing.ErrCatalogData)
}

func TestAncestorsSelfParentCycle(t *testing.T) {
	snap := testSnapshot(testNow())
	cases := snap.Categories[catCases]
	cases.ParentID = &catCases
	snap.Categories[catCases] = cases

	_, err := snap.Ancestors(catCases)
	require.ErrorIs(t, err, pricing.ErrCatalogData)
}
