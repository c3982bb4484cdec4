package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/catalog"
)

func newRouter(t *testing.T, store catalog.Store, now time.Time) http.Handler {
	t.Helper()
	svc := newService(t, store, now)
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})

	r := chi.NewRouter()
	r.Get("/api/v1/categories", h.Categories)
	r.Get("/api/v1/products", h.Products)
	r.Get("/api/v1/products/{id}", h.ProductDetail)
	r.Get("/api/v1/deal-of-the-day", h.DealOfTheDay)
	r.Get("/api/v1/admin/rules", h.AdminListRules)
	r.Post("/api/v1/admin/rules", h.AdminCreateRule)
	r.Put("/api/v1/admin/rules/{id}", h.AdminUpdateRule)
	r.Delete("/api/v1/admin/rules/{id}", h.AdminDeleteRule)
	return r
}

func TestProductsEndpoint(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	router := newRouter(t, fixtureStore(now), now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "2", rr.Header().Get("X-Total-Count"))

	var payload struct {
		Data       []catalog.ProductListItem `json:"data"`
		Pagination struct {
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 2)
	require.Equal(t, 2, payload.Pagination.TotalItems)
}

func TestProductDetailEndpoint(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	router := newRouter(t, fixtureStore(now), now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+prodA.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Data catalog.ProductDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "СуперФон 15", payload.Data.Name)
	require.Equal(t, "1000.00", payload.Data.Price)

	rr404 := httptest.NewRecorder()
	router.ServeHTTP(rr404, httptest.NewRequest(http.MethodGet, "/api/v1/products/3fa85f64-5717-4562-b3fc-2c963f66afa6", nil))
	require.Equal(t, http.StatusNotFound, rr404.Code)

	rr400 := httptest.NewRecorder()
	router.ServeHTTP(rr400, httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil))
	require.Equal(t, http.StatusBadRequest, rr400.Code)
}

func TestAdminCreateRuleEndpoint(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store := fixtureStore(now)
	router := newRouter(t, store, now)

	payload := `{"name":"Скидка 10% от 3-х штук","type":"TOTAL_QTY","min_quantity":3,"percent":"10","active":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, store.insertedRule)
	require.Equal(t, 3, store.insertedRule.MinQuantity)

	// malformed: category rule without a target is rejected before storage
	bad := `{"name":"x","type":"CATEGORY_QTY","min_quantity":2,"percent":"20","active":true}`
	rrBad := httptest.NewRecorder()
	router.ServeHTTP(rrBad, httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rrBad.Code)
}

func TestAdminValidationRejectsBadPayload(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	router := newRouter(t, fixtureStore(now), now)

	payload := `{"name":"","type":"TOTAL_QTY","min_quantity":0,"percent":"10"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/rules", strings.NewReader(payload)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION", body.Error.Code)
}

func TestAdminDeleteRuleEndpoint(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store := fixtureStore(now)
	router := newRouter(t, store, now)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/rules/3fa85f64-5717-4562-b3fc-2c963f66afa6", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.NotNil(t, store.deletedRule)
}
