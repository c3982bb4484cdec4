package order

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tglavka/backend-lavka/internal/common"
)

// Handler exposes order endpoints. All routes expect an authenticated
// Telegram user on the request context.
type Handler struct {
	Service *Service
}

// View is the public order representation.
type View struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	CreatedAt      string     `json:"created_at"`
	DeliveryMethod string     `json:"delivery_method"`
	Subtotal       string     `json:"subtotal"`
	DiscountAmount string     `json:"discount_amount"`
	FinalTotal     string     `json:"final_total"`
	AppliedRule    *string    `json:"applied_rule"`
	Items          []ItemView `json:"items,omitempty"`
}

// ItemView is one order line in the public representation.
type ItemView struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

func toView(o Order, withItems bool) View {
	view := View{
		ID:             o.ID.String(),
		Status:         o.Status,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
		DeliveryMethod: o.DeliveryMethod,
		Subtotal:       o.Subtotal.StringFixed(2),
		DiscountAmount: o.DiscountAmount.StringFixed(2),
		FinalTotal:     o.FinalTotal.StringFixed(2),
		AppliedRule:    o.AppliedRule,
	}
	if withItems {
		view.Items = make([]ItemView, 0, len(o.Items))
		for _, item := range o.Items {
			view.Items = append(view.Items, ItemView{
				ProductID:       item.ProductID.String(),
				Name:            item.Name,
				Quantity:        item.Quantity,
				PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
			})
		}
	}
	return view
}

// Checkout handles POST /api/v1/orders.
func (h Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	var input CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	created, err := h.Service.Checkout(r.Context(), telegramID, input)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toView(created, true)})
}

// List handles GET /api/v1/orders.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	orders, total, err := h.Service.ListForUser(r.Context(), telegramID, perPage, (page-1)*perPage)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o, false))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/orders/{id}.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "order id must be a valid UUID", nil)
		return
	}
	o, err := h.Service.GetForUser(r.Context(), telegramID, id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(o, true)})
}
