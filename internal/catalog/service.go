package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tglavka/backend-lavka/internal/common"
	"github.com/tglavka/backend-lavka/internal/pricing"
)

// Service orchestrates catalog queries, DTO assembly, and caching.
type Service struct {
	store        Store
	cache        *Cache
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          now,
	}, nil
}

// CategoryNode is one node of the public category tree.
type CategoryNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Children []CategoryNode `json:"children"`
}

// ProductListItem represents an entry in list responses.
type ProductListItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        string  `json:"price"`
	RegularPrice string  `json:"regular_price"`
	IsDeal       bool    `json:"is_deal_of_the_day"`
	DealEndsAt   *string `json:"deal_ends_at,omitempty"`
	ImageURL     *string `json:"image_url,omitempty"`
	CategoryID   string  `json:"category_id"`
}

// ProductDetail aggregates the full detail payload.
type ProductDetail struct {
	ProductListItem
	Description  string   `json:"description"`
	CategoryPath []string `json:"category_path"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductListItem
	Total int64
	Page  int
	Limit int
}

// ListParams captures filters for product listing.
type ListParams struct {
	Search   string
	IDs      []uuid.UUID
	Category *uuid.UUID
	Sort     string
	Page     int
	Limit    int
}

// ParseListParams normalises raw query values into strongly typed filters.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: s.defaultLimit}
	params.Search = strings.TrimSpace(values.Get("search"))

	for _, raw := range values["ids"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return params, badRequest("ids", "ids must be valid UUIDs", err)
			}
			params.IDs = append(params.IDs, id)
		}
	}

	if v := strings.TrimSpace(values.Get("category")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return params, badRequest("category", "category must be a valid UUID", err)
		}
		params.Category = &id
	}

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}

	limit := s.defaultLimit
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		limit = l
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	params.Limit = limit

	params.Sort = normalizeSort(values.Get("sort"))
	return params, nil
}

// Categories returns the root-level category tree.
func (s *Service) Categories(ctx context.Context) ([]CategoryNode, error) {
	const key = "catalog:categories"
	if s.cache != nil {
		var cached []CategoryNode
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tree := buildCategoryTree(cats)
	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, tree)
	}
	return tree, nil
}

func buildCategoryTree(cats []pricing.Category) []CategoryNode {
	children := make(map[uuid.UUID][]pricing.Category)
	var roots []pricing.Category
	byID := make(map[uuid.UUID]pricing.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	for _, c := range cats {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			// dangling parent reference, surface as a root
			roots = append(roots, c)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], c)
	}
	var build func(c pricing.Category) CategoryNode
	build = func(c pricing.Category) CategoryNode {
		node := CategoryNode{ID: c.ID.String(), Name: c.Name, Children: []CategoryNode{}}
		for _, child := range children[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}
	tree := make([]CategoryNode, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root))
	}
	return tree
}

// ListProducts returns a filtered product page.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductListResult, error) {
	key, cacheable := listCacheKey(params, s.defaultLimit)
	if cacheable && s.cache != nil {
		var cached cachedList
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return ProductListResult{Items: cached.Items, Total: cached.Total, Page: params.Page, Limit: params.Limit}, nil
		}
	}
	offset := (params.Page - 1) * params.Limit
	products, total, err := s.store.ListProducts(ctx, ProductQuery{
		Search:     params.Search,
		IDs:        params.IDs,
		CategoryID: params.Category,
		Sort:       params.Sort,
		Limit:      params.Limit,
		Offset:     offset,
	})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	now := s.now()
	items := make([]ProductListItem, 0, len(products))
	for _, p := range products {
		items = append(items, s.listItem(p, now))
	}
	result := ProductListResult{Items: items, Total: total, Page: params.Page, Limit: params.Limit}
	if cacheable && s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, cachedList{Items: items, Total: total})
	}
	return result, nil
}

// GetProductDetail returns the full product payload including its category path.
func (s *Service) GetProductDetail(ctx context.Context, id uuid.UUID) (ProductDetail, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProductDetail{}, common.NotFound("product not found", err)
		}
		return ProductDetail{}, fmt.Errorf("get product: %w", err)
	}
	detail := ProductDetail{
		ProductListItem: s.listItem(product, s.now()),
		Description:     product.Description,
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("load snapshot: %w", err)
	}
	ancestors, err := snap.Ancestors(product.CategoryID)
	if err != nil {
		return ProductDetail{}, fmt.Errorf("category path: %w", err)
	}
	// render root first
	detail.CategoryPath = make([]string, 0, len(ancestors))
	for i := len(ancestors) - 1; i >= 0; i-- {
		detail.CategoryPath = append(detail.CategoryPath, ancestors[i].Name)
	}
	return detail, nil
}

// DealOfTheDay returns the current deal product, if any.
func (s *Service) DealOfTheDay(ctx context.Context) (*ProductListItem, error) {
	now := s.now()
	product, err := s.store.DealOfTheDay(ctx, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("deal of the day: %w", err)
	}
	item := s.listItem(product, now)
	return &item, nil
}

func (s *Service) listItem(p Product, now time.Time) ProductListItem {
	item := ProductListItem{
		ID:           p.ID.String(),
		Name:         p.Name,
		Price:        pricing.EffectivePrice(p.Product, now).StringFixed(2),
		RegularPrice: p.RegularPrice.StringFixed(2),
		IsDeal:       p.DealActive(now),
		ImageURL:     p.ImageURL,
		CategoryID:   p.CategoryID.String(),
	}
	if item.IsDeal && p.DealEndsAt != nil {
		ends := p.DealEndsAt.UTC().Format(time.RFC3339)
		item.DealEndsAt = &ends
	}
	return item
}

// RuleInput is the admin payload for creating or replacing a discount rule.
type RuleInput struct {
	Name           string  `json:"name" validate:"required,max=255"`
	Type           string  `json:"type" validate:"required,oneof=TOTAL_QTY PRODUCT_QTY CATEGORY_QTY"`
	MinQuantity    int     `json:"min_quantity" validate:"required,gt=0"`
	Percent        string  `json:"percent" validate:"required"`
	ProductTarget  *string `json:"product_target,omitempty"`
	CategoryTarget *string `json:"category_target,omitempty"`
	Active         bool    `json:"active"`
}

// RuleView is the admin-facing representation of a discount rule.
type RuleView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	MinQuantity    int     `json:"min_quantity"`
	Percent        string  `json:"percent"`
	ProductTarget  *string `json:"product_target,omitempty"`
	CategoryTarget *string `json:"category_target,omitempty"`
	Active         bool    `json:"active"`
}

func ruleView(r pricing.Rule) RuleView {
	view := RuleView{
		ID:          r.ID.String(),
		Name:        r.Name,
		Type:        string(r.Type),
		MinQuantity: r.MinQuantity,
		Percent:     r.Percent.String(),
		Active:      r.Active,
	}
	if r.ProductTarget != nil {
		s := r.ProductTarget.String()
		view.ProductTarget = &s
	}
	if r.CategoryTarget != nil {
		s := r.CategoryTarget.String()
		view.CategoryTarget = &s
	}
	return view
}

func (s *Service) ruleFromInput(in RuleInput) (pricing.Rule, error) {
	percent, err := decimal.NewFromString(strings.TrimSpace(in.Percent))
	if err != nil {
		return pricing.Rule{}, badRequest("percent", "percent must be a decimal number", err)
	}
	rule := pricing.Rule{
		Name:        strings.TrimSpace(in.Name),
		Type:        pricing.RuleType(in.Type),
		MinQuantity: in.MinQuantity,
		Percent:     percent,
		Active:      in.Active,
	}
	if in.ProductTarget != nil {
		id, err := uuid.Parse(*in.ProductTarget)
		if err != nil {
			return pricing.Rule{}, badRequest("product_target", "product_target must be a valid UUID", err)
		}
		rule.ProductTarget = &id
	}
	if in.CategoryTarget != nil {
		id, err := uuid.Parse(*in.CategoryTarget)
		if err != nil {
			return pricing.Rule{}, badRequest("category_target", "category_target must be a valid UUID", err)
		}
		rule.CategoryTarget = &id
	}
	if err := rule.Validate(); err != nil {
		return pricing.Rule{}, badRequest("rule", err.Error(), err)
	}
	return rule, nil
}

// ListRules returns all discount rules for the admin surface.
func (s *Service) ListRules(ctx context.Context) ([]RuleView, error) {
	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	views := make([]RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, ruleView(r))
	}
	return views, nil
}

// CreateRule validates and persists a new discount rule.
func (s *Service) CreateRule(ctx context.Context, in RuleInput) (RuleView, error) {
	rule, err := s.ruleFromInput(in)
	if err != nil {
		return RuleView{}, err
	}
	created, err := s.store.InsertRule(ctx, rule)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return RuleView{}, common.NewAppError("CONFLICT", "a rule with this name already exists", http.StatusConflict, err)
		}
		return RuleView{}, fmt.Errorf("create rule: %w", err)
	}
	return ruleView(created), nil
}

// UpdateRule validates and replaces an existing discount rule.
func (s *Service) UpdateRule(ctx context.Context, id uuid.UUID, in RuleInput) (RuleView, error) {
	rule, err := s.ruleFromInput(in)
	if err != nil {
		return RuleView{}, err
	}
	rule.ID = id
	updated, err := s.store.UpdateRule(ctx, rule)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RuleView{}, common.NotFound("rule not found", err)
		}
		if errors.Is(err, ErrDuplicate) {
			return RuleView{}, common.NewAppError("CONFLICT", "a rule with this name already exists", http.StatusConflict, err)
		}
		return RuleView{}, fmt.Errorf("update rule: %w", err)
	}
	return ruleView(updated), nil
}

// DeleteRule removes a discount rule.
func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return common.NotFound("rule not found", err)
		}
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

type cachedList struct {
	Items []ProductListItem `json:"items"`
	Total int64             `json:"total"`
}

func listCacheKey(params ListParams, defaultLimit int) (string, bool) {
	if params.Page != 1 || params.Limit != defaultLimit {
		return "", false
	}
	if params.Search != "" || len(params.IDs) > 0 || params.Category != nil || params.Sort != "" {
		return "", false
	}
	return "catalog:products:list:front", true
}

func normalizeSort(s string) string {
	switch strings.TrimSpace(s) {
	case "price", "-price", "created_at", "-created_at":
		return strings.TrimSpace(s)
	default:
		return ""
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details: map[string]any{
			"field": field,
		},
	}
}
