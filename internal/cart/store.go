// Package cart keeps per-user carts keyed by Telegram id and prices them
// through the discount engine.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tglavka/backend-lavka/internal/pricing"
)

// ErrStoreUnavailable indicates the cart store dependency is not configured.
var ErrStoreUnavailable = errors.New("cart: store unavailable")

// ErrItemNotFound is returned when a cart line does not exist.
var ErrItemNotFound = errors.New("cart: item not found")

// ErrUnknownProduct is returned when an added line references a product that
// is not in the catalog.
var ErrUnknownProduct = errors.New("cart: unknown product")

// Store provides database accessors for cart persistence.
type Store interface {
	EnsureCart(ctx context.Context, telegramID int64) error
	ListItems(ctx context.Context, telegramID int64) ([]pricing.Line, error)
	AddItem(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error
	SetItemQuantity(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error
	RemoveItem(ctx context.Context, telegramID int64, productID uuid.UUID) error
	Clear(ctx context.Context, telegramID int64) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// EnsureCart creates the cart row for the user when it does not exist yet.
func (s *pgStore) EnsureCart(ctx context.Context, telegramID int64) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO carts (telegram_id) VALUES ($1)
ON CONFLICT (telegram_id) DO UPDATE SET updated_at = now()`, telegramID)
	if err != nil {
		return fmt.Errorf("ensure cart: %w", err)
	}
	return nil
}

// ListItems returns the cart lines in the order they were added.
func (s *pgStore) ListItems(ctx context.Context, telegramID int64) ([]pricing.Line, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT product_id, quantity FROM cart_items
WHERE telegram_id = $1 ORDER BY added_at, product_id`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()
	var lines []pricing.Line
	for rows.Next() {
		var line pricing.Line
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// AddItem inserts a cart line or increments the quantity of an existing one.
func (s *pgStore) AddItem(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cart_items (telegram_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (telegram_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		telegramID, productID, qty)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrUnknownProduct
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// SetItemQuantity replaces the quantity of an existing cart line.
func (s *pgStore) SetItemQuantity(ctx context.Context, telegramID int64, productID uuid.UUID, qty int) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE cart_items SET quantity = $3
WHERE telegram_id = $1 AND product_id = $2`, telegramID, productID, qty)
	if err != nil {
		return fmt.Errorf("set cart item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveItem deletes a cart line.
func (s *pgStore) RemoveItem(ctx context.Context, telegramID int64, productID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM cart_items
WHERE telegram_id = $1 AND product_id = $2`, telegramID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Clear removes every line from the user's cart.
func (s *pgStore) Clear(ctx context.Context, telegramID int64) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE telegram_id = $1`, telegramID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
