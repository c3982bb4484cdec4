package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tglavka/backend-lavka/internal/common"
)

// Handler exposes public catalog endpoints and the admin rules surface.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, validate: validator.New()}
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tree})
}

// Products handles GET /api/v1/products with filters, sorting, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.ParseListParams(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	result, err := h.service.ListProducts(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       result.Items,
		"pagination": common.Pagination{Page: result.Page, PerPage: result.Limit, TotalItems: int(result.Total)},
	})
}

// ProductDetail handles GET /api/v1/products/{id}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, common.BadRequest("product id must be a valid UUID", err))
		return
	}
	detail, err := h.service.GetProductDetail(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

// DealOfTheDay handles GET /api/v1/deal-of-the-day.
func (h *Handler) DealOfTheDay(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.DealOfTheDay(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if item == nil {
		common.JSON(w, http.StatusOK, map[string]any{"data": nil})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}

// AdminListRules handles GET /api/v1/admin/rules.
func (h *Handler) AdminListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.ListRules(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rules})
}

// AdminCreateRule handles POST /api/v1/admin/rules.
func (h *Handler) AdminCreateRule(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateRule(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// AdminUpdateRule handles PUT /api/v1/admin/rules/{id}.
func (h *Handler) AdminUpdateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, common.BadRequest("rule id must be a valid UUID", err))
		return
	}
	input, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	updated, err := h.service.UpdateRule(r.Context(), id, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// AdminDeleteRule handles DELETE /api/v1/admin/rules/{id}.
func (h *Handler) AdminDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, common.BadRequest("rule id must be a valid UUID", err))
		return
	}
	if err := h.service.DeleteRule(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeRule(w http.ResponseWriter, r *http.Request) (RuleInput, bool) {
	var input RuleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, common.BadRequest("invalid JSON payload", err))
		return input, false
	}
	if err := h.validate.Struct(input); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid rule payload", details)
		return input, false
	}
	return input, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	common.WriteAppError(w, err)
}
