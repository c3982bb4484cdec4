package content_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tglavka/backend-lavka/internal/catalog"
	"github.com/tglavka/backend-lavka/internal/content"
)

type fakeStore struct {
	settings     content.Settings
	faq          []content.FaqItem
	banners      []content.Banner
	settingsHits int
}

func (f *fakeStore) Settings(context.Context) (content.Settings, error) {
	f.settingsHits++
	return f.settings, nil
}

func (f *fakeStore) ListFaq(context.Context) ([]content.FaqItem, error) { return f.faq, nil }

func (f *fakeStore) ListBanners(context.Context) ([]content.Banner, error) { return f.banners, nil }

func fixture() *fakeStore {
	threshold := decimal.RequireFromString("3000")
	return &fakeStore{
		settings: content.Settings{
			ManagerUsername:       "lavka_manager",
			FreeShippingThreshold: &threshold,
			SearchPlaceholder:     "Найти чехол или наушники...",
		},
		faq: []content.FaqItem{
			{ID: uuid.New(), Question: "Как оплатить заказ?", Answer: "Менеджер свяжется с вами."},
		},
		banners: []content.Banner{
			{ID: uuid.New(), Title: "Весенняя распродажа", ImageURL: "https://cdn.example.com/spring.webp"},
		},
	}
}

func TestSettingsEndpoint(t *testing.T) {
	h := content.Handler{Store: fixture()}

	rr := httptest.NewRecorder()
	h.Settings(rr, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		Data struct {
			ManagerUsername       string  `json:"manager_username"`
			FreeShippingThreshold *string `json:"free_shipping_threshold"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "lavka_manager", payload.Data.ManagerUsername)
	require.NotNil(t, payload.Data.FreeShippingThreshold)
	require.Equal(t, "3000.00", *payload.Data.FreeShippingThreshold)
}

func TestSettingsServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := fixture()
	h := content.Handler{Store: store, Cache: catalog.NewCache(client, time.Minute)}

	for range 3 {
		rr := httptest.NewRecorder()
		h.Settings(rr, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	require.Equal(t, 1, store.settingsHits)
}

func TestFaqAndBanners(t *testing.T) {
	h := content.Handler{Store: fixture()}

	rr := httptest.NewRecorder()
	h.Faq(rr, httptest.NewRequest(http.MethodGet, "/api/v1/faq", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var faq struct {
		Data []struct {
			Question string `json:"question"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &faq))
	require.Len(t, faq.Data, 1)
	require.Equal(t, "Как оплатить заказ?", faq.Data[0].Question)

	rr2 := httptest.NewRecorder()
	h.Banners(rr2, httptest.NewRequest(http.MethodGet, "/api/v1/banners", nil))
	require.Equal(t, http.StatusOK, rr2.Code)
	var banners struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &banners))
	require.Len(t, banners.Data, 1)
	require.Equal(t, "Весенняя распродажа", banners.Data[0].Title)
}
