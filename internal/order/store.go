// Package order persists checkouts with the priced totals frozen at purchase
// time.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrStoreUnavailable indicates the order store dependency is not configured.
var ErrStoreUnavailable = errors.New("order: store unavailable")

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order: not found")

// Statuses an order moves through.
const (
	StatusNew        = "new"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusCompleted  = "completed"
	StatusCanceled   = "canceled"
)

// Delivery methods the shop supports.
const (
	DeliveryPost = "Почта России"
	DeliveryCDEK = "СДЭК"
)

// Order is the persisted checkout record.
type Order struct {
	ID         uuid.UUID
	TelegramID int64
	Status     string
	CreatedAt  time.Time

	LastName   string
	FirstName  string
	Patronymic string
	Phone      string

	DeliveryMethod    string
	City              string
	District          string
	Street            string
	House             string
	Apartment         string
	Postcode          string
	CdekOfficeAddress string

	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
	AppliedRule    *string

	Items []Item
}

// Item is one order line with the price frozen at purchase time.
type Item struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	Name            string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Store provides database accessors for orders.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	ListForUser(ctx context.Context, telegramID int64, limit, offset int) ([]Order, int64, error)
	GetForUser(ctx context.Context, telegramID int64, id uuid.UUID) (Order, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Create persists the order and its items in one transaction.
func (s *pgStore) Create(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `INSERT INTO orders (telegram_id, status, last_name, first_name, patronymic, phone,
delivery_method, city, district, street, house, apartment, postcode, cdek_office_address,
subtotal, discount_amount, final_total, applied_rule)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING id, created_at`,
		o.TelegramID, o.Status, o.LastName, o.FirstName, o.Patronymic, o.Phone,
		o.DeliveryMethod, o.City, o.District, o.Street, o.House, o.Apartment, o.Postcode, o.CdekOfficeAddress,
		o.Subtotal, o.DiscountAmount, o.FinalTotal, o.AppliedRule).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		err = tx.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, name, quantity, price_at_purchase)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			o.ID, o.Items[i].ProductID, o.Items[i].Name, o.Items[i].Quantity, o.Items[i].PriceAtPurchase).
			Scan(&o.Items[i].ID)
		if err != nil {
			return Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, fmt.Errorf("commit order tx: %w", err)
	}
	return o, nil
}

const orderColumns = `id, telegram_id, status, created_at, last_name, first_name, patronymic, phone,
delivery_method, city, district, street, house, apartment, postcode, cdek_office_address,
subtotal, discount_amount, final_total, applied_rule`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TelegramID, &o.Status, &o.CreatedAt, &o.LastName, &o.FirstName, &o.Patronymic, &o.Phone,
		&o.DeliveryMethod, &o.City, &o.District, &o.Street, &o.House, &o.Apartment, &o.Postcode, &o.CdekOfficeAddress,
		&o.Subtotal, &o.DiscountAmount, &o.FinalTotal, &o.AppliedRule)
	return o, err
}

// ListForUser returns the user's orders, newest first, plus the total count.
func (s *pgStore) ListForUser(ctx context.Context, telegramID int64, limit, offset int) ([]Order, int64, error) {
	if s == nil || s.pool == nil {
		return nil, 0, ErrStoreUnavailable
	}
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE telegram_id = $1`, telegramID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders
WHERE telegram_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, telegramID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// GetForUser fetches one order including its items, scoped to the owner.
func (s *pgStore) GetForUser(ctx context.Context, telegramID int64, id uuid.UUID) (Order, error) {
	if s == nil || s.pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders
WHERE id = $1 AND telegram_id = $2`, id, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT id, product_id, name, quantity, price_at_purchase
FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return Order{}, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &item.Quantity, &item.PriceAtPurchase); err != nil {
			return Order{}, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}
