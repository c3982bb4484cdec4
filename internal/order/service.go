package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tglavka/backend-lavka/internal/cart"
	"github.com/tglavka/backend-lavka/internal/common"
	"github.com/tglavka/backend-lavka/internal/lock"
	"github.com/tglavka/backend-lavka/internal/obs"
	"github.com/tglavka/backend-lavka/internal/pricing"
)

// CheckoutInput is the payload posted by the mini app at checkout.
type CheckoutInput struct {
	Items []CheckoutItem `json:"items" validate:"required,min=1,dive"`

	LastName   string `json:"last_name" validate:"required,max=100"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	Patronymic string `json:"patronymic" validate:"max=100"`
	Phone      string `json:"phone" validate:"required,max=20"`

	DeliveryMethod    string `json:"delivery_method" validate:"required"`
	City              string `json:"city" validate:"max=100"`
	District          string `json:"district" validate:"max=150"`
	Street            string `json:"street" validate:"max=255"`
	House             string `json:"house" validate:"max=20"`
	Apartment         string `json:"apartment" validate:"max=20"`
	Postcode          string `json:"postcode" validate:"max=6"`
	CdekOfficeAddress string `json:"cdek_office_address" validate:"max=255"`
}

// CheckoutItem is one ordered line.
type CheckoutItem struct {
	ProductID string `json:"product_id" validate:"required,uuid_rfc4122"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// Service prices the checkout payload and persists the resulting order.
type Service struct {
	Store    Store
	Catalog  cart.CatalogSource
	CartRepo cart.Store
	Validate *validator.Validate
	Lock     *lock.Locker
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout validates the input, prices it against a fresh snapshot, and
// persists the order with per-item prices frozen at purchase time. The user's
// stored cart is cleared on success.
func (s *Service) Checkout(ctx context.Context, telegramID int64, in CheckoutInput) (Order, error) {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return Order{}, errors.New("order service not configured")
	}
	if s.Validate != nil {
		if err := s.Validate.Struct(in); err != nil {
			recordCheckout("invalid")
			return Order{}, validationError(err)
		}
	}
	if err := validateDelivery(in); err != nil {
		recordCheckout("invalid")
		return Order{}, err
	}

	lines := make([]pricing.Line, 0, len(in.Items))
	for _, item := range in.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			recordCheckout("invalid")
			return Order{}, common.BadRequest("product_id must be a valid UUID", err)
		}
		lines = append(lines, pricing.Line{ProductID: id, Quantity: item.Quantity})
	}

	var created Order
	place := func(ctx context.Context) error {
		var err error
		created, err = s.placeOrder(ctx, telegramID, in, lines)
		return err
	}
	if s.Lock != nil {
		key := "checkout:tg:" + strconv.FormatInt(telegramID, 10)
		if err := s.Lock.WithLock(ctx, key, 15*time.Second, place); err != nil {
			return Order{}, err
		}
	} else if err := place(ctx); err != nil {
		return Order{}, err
	}
	return created, nil
}

// placeOrder prices the submitted lines against a fresh snapshot and persists
// the order. Concurrent checkouts for one user are serialized by the caller.
func (s *Service) placeOrder(ctx context.Context, telegramID int64, in CheckoutInput, lines []pricing.Line) (Order, error) {
	snap, err := s.Catalog.Snapshot(ctx)
	if err != nil {
		recordCheckout("error")
		return Order{}, fmt.Errorf("load snapshot: %w", err)
	}
	rules, err := s.Catalog.ListRules(ctx)
	if err != nil {
		recordCheckout("error")
		return Order{}, fmt.Errorf("load rules: %w", err)
	}
	result, err := pricing.Compute(lines, rules, snap, s.now())
	if err != nil {
		recordCheckout("invalid")
		if errors.Is(err, pricing.ErrInvalidInput) {
			return Order{}, common.BadRequest(err.Error(), err)
		}
		return Order{}, err
	}
	if len(result.Items) == 0 {
		recordCheckout("invalid")
		return Order{}, common.BadRequest("no known products in order", nil)
	}

	o := Order{
		TelegramID:        telegramID,
		Status:            StatusNew,
		LastName:          strings.TrimSpace(in.LastName),
		FirstName:         strings.TrimSpace(in.FirstName),
		Patronymic:        strings.TrimSpace(in.Patronymic),
		Phone:             strings.TrimSpace(in.Phone),
		DeliveryMethod:    in.DeliveryMethod,
		City:              strings.TrimSpace(in.City),
		District:          strings.TrimSpace(in.District),
		Street:            strings.TrimSpace(in.Street),
		House:             strings.TrimSpace(in.House),
		Apartment:         strings.TrimSpace(in.Apartment),
		Postcode:          strings.TrimSpace(in.Postcode),
		CdekOfficeAddress: strings.TrimSpace(in.CdekOfficeAddress),
		Subtotal:          result.Subtotal,
		DiscountAmount:    result.DiscountAmount,
		FinalTotal:        result.FinalTotal,
		AppliedRule:       result.AppliedRule,
	}
	for _, item := range result.Items {
		price := item.UnitPrice
		if item.DiscountedUnitPrice != nil {
			price = *item.DiscountedUnitPrice
		}
		o.Items = append(o.Items, Item{
			ProductID:       item.Product.ID,
			Name:            item.Product.Name,
			Quantity:        item.Quantity,
			PriceAtPurchase: price,
		})
	}

	created, err := s.Store.Create(ctx, o)
	if err != nil {
		recordCheckout("error")
		return Order{}, err
	}
	if s.CartRepo != nil {
		_ = s.CartRepo.Clear(ctx, telegramID)
	}
	recordCheckout("ok")
	return created, nil
}

// ListForUser pages through the user's orders.
func (s *Service) ListForUser(ctx context.Context, telegramID int64, limit, offset int) ([]Order, int64, error) {
	return s.Store.ListForUser(ctx, telegramID, limit, offset)
}

// GetForUser fetches one of the user's orders.
func (s *Service) GetForUser(ctx context.Context, telegramID int64, id uuid.UUID) (Order, error) {
	o, err := s.Store.GetForUser(ctx, telegramID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, common.NotFound("order not found", err)
		}
		return Order{}, err
	}
	return o, nil
}

func validateDelivery(in CheckoutInput) error {
	switch in.DeliveryMethod {
	case DeliveryPost:
		missing := []string{}
		if strings.TrimSpace(in.City) == "" {
			missing = append(missing, "city")
		}
		if strings.TrimSpace(in.Street) == "" {
			missing = append(missing, "street")
		}
		if strings.TrimSpace(in.House) == "" {
			missing = append(missing, "house")
		}
		if strings.TrimSpace(in.Postcode) == "" {
			missing = append(missing, "postcode")
		}
		if len(missing) > 0 {
			return &common.AppError{
				Code:       "VALIDATION",
				Message:    "postal delivery requires a full address",
				HTTPStatus: 400,
				Details:    map[string]any{"missing": missing},
			}
		}
	case DeliveryCDEK:
		if strings.TrimSpace(in.CdekOfficeAddress) == "" {
			return &common.AppError{
				Code:       "VALIDATION",
				Message:    "CDEK delivery requires a pickup point address",
				HTTPStatus: 400,
				Details:    map[string]any{"missing": []string{"cdek_office_address"}},
			}
		}
	default:
		return &common.AppError{
			Code:       "VALIDATION",
			Message:    "unsupported delivery method",
			HTTPStatus: 400,
			Details:    map[string]any{"delivery_method": in.DeliveryMethod},
		}
	}
	return nil
}

func validationError(err error) error {
	details := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return &common.AppError{
		Code:       "VALIDATION",
		Message:    "invalid checkout payload",
		HTTPStatus: 400,
		Err:        err,
		Details:    details,
	}
}

func recordCheckout(result string) {
	if obs.CheckoutTotal != nil {
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
}
