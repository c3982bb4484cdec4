package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tglavka/backend-lavka/internal/obs"
	"github.com/tglavka/backend-lavka/internal/pricing"
)

// CatalogSource supplies the catalog snapshot and rule set the engine needs.
type CatalogSource interface {
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
	ListRules(ctx context.Context) ([]pricing.Rule, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store   Store
	Catalog CatalogSource
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// View is the stored cart rendered with current prices.
type View struct {
	Items []ViewItem `json:"items"`
	Total string     `json:"total"`
}

// ViewItem is one stored cart line with its current effective price.
type ViewItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// List renders the user's stored cart against the current catalog. Lines whose
// product disappeared from the catalog are dropped from the view.
func (s *Service) List(ctx context.Context, telegramID int64) (View, error) {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return View{}, errors.New("cart service not configured")
	}
	lines, err := s.Store.ListItems(ctx, telegramID)
	if err != nil {
		return View{}, err
	}
	snap, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		return View{}, fmt.Errorf("load snapshot: %w", err)
	}
	now := s.now()
	view := View{Items: []ViewItem{}}
	agg, err := pricing.Aggregate(lines, snap, now)
	if err != nil {
		return View{}, err
	}
	for _, line := range agg.Lines {
		view.Items = append(view.Items, ViewItem{
			ProductID: line.Product.ID.String(),
			Name:      line.Product.Name,
			Quantity:  line.Line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			LineTotal: line.Total.StringFixed(2),
		})
	}
	view.Total = agg.Subtotal.StringFixed(2)
	return view, nil
}

// Add puts qty units of a product into the user's cart.
func (s *Service) Add(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", pricing.ErrInvalidInput)
	}
	if err := s.Store.EnsureCart(ctx, telegramID); err != nil {
		return err
	}
	return s.Store.AddItem(ctx, telegramID, productID, qty)
}

// UpdateQuantity replaces the quantity of a cart line. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error {
	if qty < 0 {
		return fmt.Errorf("quantity must not be negative: %w", pricing.ErrInvalidInput)
	}
	if qty == 0 {
		return s.Store.RemoveItem(ctx, telegramID, productID)
	}
	return s.Store.SetItemQuantity(ctx, telegramID, productID, qty)
}

// Remove deletes a cart line.
func (s *Service) Remove(ctx context.Context, telegramID int64, productID uuid.UUID) error {
	return s.Store.RemoveItem(ctx, telegramID, productID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, telegramID int64) error {
	return s.Store.Clear(ctx, telegramID)
}

// Calculate prices the submitted lines against a fresh catalog snapshot.
func (s *Service) Calculate(ctx context.Context, lines []pricing.Line) (pricing.Result, error) {
	if s == nil || s.Catalog == nil {
		return pricing.Result{}, errors.New("cart service not configured")
	}
	start := time.Now()
	snap, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		recordCalc("error")
		return pricing.Result{}, fmt.Errorf("load snapshot: %w", err)
	}
	rules, err := s.Catalog.ListRules(ctx)
	if err != nil {
		recordCalc("error")
		return pricing.Result{}, fmt.Errorf("load rules: %w", err)
	}
	result, err := pricing.Compute(lines, rules, snap, s.now())
	if err != nil {
		recordCalc("rejected")
		return pricing.Result{}, err
	}
	recordCalc("ok")
	if obs.CartCalcDuration != nil {
		obs.CartCalcDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	if result.AppliedRule != nil && obs.DiscountAppliedTotal != nil {
		if rule := findRuleByName(rules, *result.AppliedRule); rule != nil {
			obs.DiscountAppliedTotal.WithLabelValues(string(rule.Type)).Inc()
		}
	}
	if result.UpsellHint != nil && obs.UpsellHintTotal != nil {
		obs.UpsellHintTotal.Inc()
	}
	if result.Skipped > 0 && obs.SkippedLinesTotal != nil {
		obs.SkippedLinesTotal.Add(float64(result.Skipped))
	}
	return result, nil
}

func findRuleByName(rules []pricing.Rule, name string) *pricing.Rule {
	for i := range rules {
		if rules[i].Name == name {
			return &rules[i]
		}
	}
	return nil
}

func recordCalc(result string) {
	if obs.CartCalcTotal != nil {
		obs.CartCalcTotal.WithLabelValues(result).Inc()
	}
}
