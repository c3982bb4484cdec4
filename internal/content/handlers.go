package content

import (
	"context"
	"net/http"

	"github.com/tglavka/backend-lavka/internal/catalog"
	"github.com/tglavka/backend-lavka/internal/common"
)

// Handler exposes the public content endpoints, Redis-cached.
type Handler struct {
	Store Store
	Cache *catalog.Cache
}

type settingsView struct {
	ManagerUsername       string  `json:"manager_username"`
	ContactPhone          string  `json:"contact_phone"`
	AboutUs               string  `json:"about_us"`
	DeliveryTerms         string  `json:"delivery_terms"`
	Warranty              string  `json:"warranty"`
	FreeShippingThreshold *string `json:"free_shipping_threshold"`
	SearchPlaceholder     string  `json:"search_placeholder"`
	PrivacyPolicy         string  `json:"privacy_policy"`
	PublicOffer           string  `json:"public_offer"`
}

type faqView struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type bannerView struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	LinkURL  *string `json:"link_url"`
	Text     string  `json:"text"`
}

// Settings handles GET /api/v1/settings.
func (h Handler) Settings(w http.ResponseWriter, r *http.Request) {
	const key = "content:settings"
	var view settingsView
	if ok := h.cached(r.Context(), key, &view); !ok {
		settings, err := h.Store.Settings(r.Context())
		if err != nil {
			common.WriteAppError(w, err)
			return
		}
		view = settingsView{
			ManagerUsername:   settings.ManagerUsername,
			ContactPhone:      settings.ContactPhone,
			AboutUs:           settings.AboutUs,
			DeliveryTerms:     settings.DeliveryTerms,
			Warranty:          settings.Warranty,
			SearchPlaceholder: settings.SearchPlaceholder,
			PrivacyPolicy:     settings.PrivacyPolicy,
			PublicOffer:       settings.PublicOffer,
		}
		if settings.FreeShippingThreshold != nil {
			threshold := settings.FreeShippingThreshold.StringFixed(2)
			view.FreeShippingThreshold = &threshold
		}
		h.storeCache(r.Context(), key, view)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Faq handles GET /api/v1/faq.
func (h Handler) Faq(w http.ResponseWriter, r *http.Request) {
	const key = "content:faq"
	var views []faqView
	if ok := h.cached(r.Context(), key, &views); !ok {
		items, err := h.Store.ListFaq(r.Context())
		if err != nil {
			common.WriteAppError(w, err)
			return
		}
		views = make([]faqView, 0, len(items))
		for _, item := range items {
			views = append(views, faqView{ID: item.ID.String(), Question: item.Question, Answer: item.Answer})
		}
		h.storeCache(r.Context(), key, views)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// Banners handles GET /api/v1/banners.
func (h Handler) Banners(w http.ResponseWriter, r *http.Request) {
	const key = "content:banners"
	var views []bannerView
	if ok := h.cached(r.Context(), key, &views); !ok {
		banners, err := h.Store.ListBanners(r.Context())
		if err != nil {
			common.WriteAppError(w, err)
			return
		}
		views = make([]bannerView, 0, len(banners))
		for _, b := range banners {
			views = append(views, bannerView{ID: b.ID.String(), Title: b.Title, ImageURL: b.ImageURL, LinkURL: b.LinkURL, Text: b.Text})
		}
		h.storeCache(r.Context(), key, views)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

func (h Handler) cached(ctx context.Context, key string, dst any) bool {
	if h.Cache == nil {
		return false
	}
	ok, err := h.Cache.GetJSON(ctx, key, dst)
	return err == nil && ok
}

func (h Handler) storeCache(ctx context.Context, key string, v any) {
	if h.Cache != nil {
		_ = h.Cache.SetJSON(ctx, key, v)
	}
}
