package catalog_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/catalog"
	"github.com/tglavka/backend-lavka/internal/pricing"
)

var (
	catRoot  = uuid.MustParse("1c9d1b3a-0000-4000-8000-000000000001")
	catChild = uuid.MustParse("1c9d1b3a-0000-4000-8000-000000000002")
	prodA    = uuid.MustParse("2d8e2c4b-0000-4000-8000-000000000001")
	prodB    = uuid.MustParse("2d8e2c4b-0000-4000-8000-000000000002")
)

type fakeStore struct {
	products   []catalog.Product
	categories []pricing.Category
	rules      []pricing.Rule

	insertedRule *pricing.Rule
	deletedRule  *uuid.UUID
}

func (f *fakeStore) Snapshot(context.Context) (pricing.Snapshot, error) {
	snap := pricing.Snapshot{
		Products:   make(map[uuid.UUID]pricing.Product),
		Categories: make(map[uuid.UUID]pricing.Category),
	}
	for _, p := range f.products {
		snap.Products[p.ID] = p.Product
	}
	for _, c := range f.categories {
		snap.Categories[c.ID] = c
	}
	return snap, nil
}

func (f *fakeStore) ListRules(context.Context) ([]pricing.Rule, error) { return f.rules, nil }

func (f *fakeStore) ListCategories(context.Context) ([]pricing.Category, error) {
	return f.categories, nil
}

func (f *fakeStore) ListProducts(_ context.Context, q catalog.ProductQuery) ([]catalog.Product, int64, error) {
	var out []catalog.Product
	for _, p := range f.products {
		if len(q.IDs) > 0 && !containsID(q.IDs, p.ID) {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeStore) DealOfTheDay(_ context.Context, now time.Time) (catalog.Product, error) {
	for _, p := range f.products {
		if p.DealActive(now) {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeStore) GetRule(_ context.Context, id uuid.UUID) (pricing.Rule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return pricing.Rule{}, catalog.ErrNotFound
}

func (f *fakeStore) InsertRule(_ context.Context, r pricing.Rule) (pricing.Rule, error) {
	r.ID = uuid.New()
	f.insertedRule = &r
	return r, nil
}

func (f *fakeStore) UpdateRule(_ context.Context, r pricing.Rule) (pricing.Rule, error) {
	for _, existing := range f.rules {
		if existing.ID == r.ID {
			return r, nil
		}
	}
	return pricing.Rule{}, catalog.ErrNotFound
}

func (f *fakeStore) DeleteRule(_ context.Context, id uuid.UUID) error {
	f.deletedRule = &id
	for _, existing := range f.rules {
		if existing.ID == id {
			return nil
		}
	}
	return catalog.ErrNotFound
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func fixtureStore(now time.Time) *fakeStore {
	dealPrice := decimal.RequireFromString("1500")
	dealEnds := now.Add(6 * time.Hour)
	return &fakeStore{
		categories: []pricing.Category{
			{ID: catRoot, Name: "Телефоны"},
			{ID: catChild, Name: "iPhone", ParentID: &catRoot},
		},
		products: []catalog.Product{
			{
				Product: pricing.Product{
					ID:           prodA,
					Name:         "СуперФон 15",
					RegularPrice: decimal.RequireFromString("1000"),
					CategoryID:   catChild,
				},
				Description: "Флагман",
				Active:      true,
				CreatedAt:   now,
			},
			{
				Product: pricing.Product{
					ID:           prodB,
					Name:         "Наушники",
					RegularPrice: decimal.RequireFromString("2000"),
					DealPrice:    &dealPrice,
					DealEndsAt:   &dealEnds,
					CategoryID:   catRoot,
				},
				Description: "Товар дня",
				Active:      true,
				CreatedAt:   now,
			},
		},
	}
}

func newService(t *testing.T, store catalog.Store, now time.Time) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store: store,
		Now:   func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc
}

func TestCategoriesBuildsTree(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	tree, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, "Телефоны", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, "iPhone", tree[0].Children[0].Name)
}

func TestListProductsRendersPrices(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	result, err := svc.ListProducts(context.Background(), catalog.ListParams{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	byName := map[string]catalog.ProductListItem{}
	for _, item := range result.Items {
		byName[item.Name] = item
	}
	require.Equal(t, "1000.00", byName["СуперФон 15"].Price)
	require.False(t, byName["СуперФон 15"].IsDeal)
	require.Equal(t, "1500.00", byName["Наушники"].Price)
	require.Equal(t, "2000.00", byName["Наушники"].RegularPrice)
	require.True(t, byName["Наушники"].IsDeal)
}

func TestProductDetailIncludesCategoryPath(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	detail, err := svc.GetProductDetail(context.Background(), prodA)
	require.NoError(t, err)
	require.Equal(t, []string{"Телефоны", "iPhone"}, detail.CategoryPath)
	require.Equal(t, "Флагман", detail.Description)
}

func TestDealOfTheDay(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	item, err := svc.DealOfTheDay(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item)
	require.Equal(t, "Наушники", item.Name)
	require.Equal(t, "1500.00", item.Price)

	later := newService(t, &fakeStore{}, now)
	none, err := later.DealOfTheDay(context.Background())
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestParseListParams(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	values := url.Values{}
	values.Set("search", "чехол")
	values.Set("category", catRoot.String())
	values.Set("page", "2")
	values.Set("limit", "10")
	values.Set("sort", "-price")
	params, err := svc.ParseListParams(values)
	require.NoError(t, err)
	require.Equal(t, "чехол", params.Search)
	require.Equal(t, catRoot, *params.Category)
	require.Equal(t, 2, params.Page)
	require.Equal(t, 10, params.Limit)
	require.Equal(t, "-price", params.Sort)

	bad := url.Values{}
	bad.Set("category", "not-a-uuid")
	_, err = svc.ParseListParams(bad)
	require.Error(t, err)
}

func TestCreateRuleValidatesShape(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store := fixtureStore(now)
	svc := newService(t, store, now)

	target := prodA.String()
	view, err := svc.CreateRule(context.Background(), catalog.RuleInput{
		Name:          "Скидка 50% на 2 товара дня",
		Type:          "PRODUCT_QTY",
		MinQuantity:   2,
		Percent:       "50",
		ProductTarget: &target,
		Active:        true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, view.ID)
	require.NotNil(t, store.insertedRule)
	require.Equal(t, pricing.RuleProductQuantity, store.insertedRule.Type)

	// a total-quantity rule must not carry a target
	_, err = svc.CreateRule(context.Background(), catalog.RuleInput{
		Name:          "Сломанное правило",
		Type:          "TOTAL_QTY",
		MinQuantity:   3,
		Percent:       "10",
		ProductTarget: &target,
		Active:        true,
	})
	require.Error(t, err)
}

func TestUpdateRuleNotFound(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(t, fixtureStore(now), now)

	_, err := svc.UpdateRule(context.Background(), uuid.New(), catalog.RuleInput{
		Name:        "Скидка 10% от 3-х штук",
		Type:        "TOTAL_QTY",
		MinQuantity: 3,
		Percent:     "10",
		Active:      true,
	})
	require.Error(t, err)
}
