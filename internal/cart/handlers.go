package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tglavka/backend-lavka/internal/common"
	"github.com/tglavka/backend-lavka/internal/pricing"
)

// Handler exposes cart endpoints. All routes expect an authenticated Telegram
// user on the request context.
type Handler struct {
	Service *Service
}

type calculateRequest struct {
	Items []calculateItem `json:"items"`
}

type calculateItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type calculateResponse struct {
	Items          []calculatedItem `json:"items"`
	Subtotal       string           `json:"subtotal"`
	DiscountAmount string           `json:"discount_amount"`
	FinalTotal     string           `json:"final_total"`
	AppliedRule    *string          `json:"applied_rule"`
	UpsellHint     *string          `json:"upsell_hint"`
}

type calculatedItem struct {
	ID                  int     `json:"id"`
	ProductID           string  `json:"product_id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	UnitPrice           string  `json:"unit_price"`
	DiscountedUnitPrice *string `json:"discounted_unit_price"`
}

// Calculate handles POST /api/v1/cart/calculate.
func (h Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if len(req.Items) == 0 {
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart is empty", nil)
		return
	}
	lines := make([]pricing.Line, 0, len(req.Items))
	for _, item := range req.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product_id must be a valid UUID", map[string]any{"product_id": item.ProductID})
			return
		}
		lines = append(lines, pricing.Line{ProductID: id, Quantity: item.Quantity})
	}
	result, err := h.Service.Calculate(r.Context(), lines)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidInput) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, renderResult(result))
}

func renderResult(result pricing.Result) calculateResponse {
	resp := calculateResponse{
		Items:          make([]calculatedItem, 0, len(result.Items)),
		Subtotal:       result.Subtotal.StringFixed(2),
		DiscountAmount: result.DiscountAmount.StringFixed(2),
		FinalTotal:     result.FinalTotal.StringFixed(2),
		AppliedRule:    result.AppliedRule,
		UpsellHint:     result.UpsellHint,
	}
	for _, item := range result.Items {
		rendered := calculatedItem{
			ID:        item.ID,
			ProductID: item.Product.ID.String(),
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		}
		if item.DiscountedUnitPrice != nil {
			price := item.DiscountedUnitPrice.StringFixed(2)
			rendered.DiscountedUnitPrice = &price
		}
		resp.Items = append(resp.Items, rendered)
	}
	return resp
}

// List handles GET /api/v1/cart.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	view, err := h.Service.List(r.Context(), telegramID)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// AddItem handles POST /api/v1/cart/items.
func (h Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product_id must be a valid UUID", nil)
		return
	}
	if err := h.Service.Add(r.Context(), telegramID, productID, req.Quantity); err != nil {
		h.writeCartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem handles PATCH /api/v1/cart/items/{productId}.
func (h Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id must be a valid UUID", nil)
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if err := h.Service.UpdateQuantity(r.Context(), telegramID, productID, req.Quantity); err != nil {
		h.writeCartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}.
func (h Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	telegramID, ok := common.TelegramID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing telegram user", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "product id must be a valid UUID", nil)
		return
	}
	if err := h.Service.Remove(r.Context(), telegramID, productID); err != nil {
		h.writeCartError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handler) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
	default:
		common.WriteAppError(w, err)
	}
}
