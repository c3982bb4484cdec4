package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tglavka/backend-lavka/internal/pricing"
)

// ErrStoreUnavailable indicates the catalog store dependency is not configured.
var ErrStoreUnavailable = errors.New("catalog: store unavailable")

// ErrNotFound is returned when a requested catalog entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("catalog: duplicate")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Product extends the pricing view of a product with presentation fields.
type Product struct {
	pricing.Product
	Description string
	ImageURL    *string
	Active      bool
	CreatedAt   time.Time
}

// ProductQuery captures filters for product listing.
type ProductQuery struct {
	Search     string
	IDs        []uuid.UUID
	CategoryID *uuid.UUID
	Sort       string
	Limit      int
	Offset     int
}

// Store provides database accessors for catalog data and discount rules.
type Store interface {
	Snapshot(ctx context.Context) (pricing.Snapshot, error)
	ListRules(ctx context.Context) ([]pricing.Rule, error)
	ListCategories(ctx context.Context) ([]pricing.Category, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]Product, int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	DealOfTheDay(ctx context.Context, now time.Time) (Product, error)
	GetRule(ctx context.Context, id uuid.UUID) (pricing.Rule, error)
	InsertRule(ctx context.Context, r pricing.Rule) (pricing.Rule, error)
	UpdateRule(ctx context.Context, r pricing.Rule) (pricing.Rule, error)
	DeleteRule(ctx context.Context, id uuid.UUID) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

const productColumns = `id, name, description, image_url, regular_price, deal_price, deal_ends_at, category_id, is_active, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var dealPrice *decimal.Decimal
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.RegularPrice,
		&dealPrice, &p.DealEndsAt, &p.CategoryID, &p.Active, &p.CreatedAt)
	if err != nil {
		return Product{}, err
	}
	p.DealPrice = dealPrice
	return p, nil
}

// Snapshot loads active products, all categories, and nothing else in one
// read-only transaction so the pricing engine sees a consistent catalog.
func (s *pgStore) Snapshot(ctx context.Context) (pricing.Snapshot, error) {
	if s == nil || s.pool == nil {
		return pricing.Snapshot{}, ErrStoreUnavailable
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := pricing.Snapshot{
		Products:   make(map[uuid.UUID]pricing.Product),
		Categories: make(map[uuid.UUID]pricing.Category),
	}

	rows, err := tx.Query(ctx, `SELECT id, name, regular_price, deal_price, deal_ends_at, category_id
FROM products WHERE is_active`)
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("snapshot products: %w", err)
	}
	for rows.Next() {
		var p pricing.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.RegularPrice, &p.DealPrice, &p.DealEndsAt, &p.CategoryID); err != nil {
			rows.Close()
			return pricing.Snapshot{}, fmt.Errorf("scan snapshot product: %w", err)
		}
		snap.Products[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return pricing.Snapshot{}, fmt.Errorf("snapshot products: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT id, name, parent_id FROM categories`)
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("snapshot categories: %w", err)
	}
	for rows.Next() {
		var c pricing.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			rows.Close()
			return pricing.Snapshot{}, fmt.Errorf("scan snapshot category: %w", err)
		}
		snap.Categories[c.ID] = c
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return pricing.Snapshot{}, fmt.Errorf("snapshot categories: %w", err)
	}

	return snap, tx.Commit(ctx)
}

// ListRules returns all rules in creation order. The stable ordering is what
// makes tie-breaking between equal discounts deterministic.
func (s *pgStore) ListRules(ctx context.Context) ([]pricing.Rule, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, rule_type, min_quantity, percent, product_target, category_target, is_active
FROM discount_rules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()
	var rules []pricing.Rule
	for rows.Next() {
		var r pricing.Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.MinQuantity, &r.Percent, &r.ProductTarget, &r.CategoryTarget, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ListCategories returns every category ordered by name.
func (s *pgStore) ListCategories(ctx context.Context) ([]pricing.Category, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, name, parent_id FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var cats []pricing.Category
	for rows.Next() {
		var c pricing.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListProducts returns active products matching the query plus the total count.
// A category filter includes the whole category subtree.
func (s *pgStore) ListProducts(ctx context.Context, q ProductQuery) ([]Product, int64, error) {
	if s == nil || s.pool == nil {
		return nil, 0, ErrStoreUnavailable
	}

	where := []string{"is_active"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.IDs) > 0 {
		where = append(where, "id = ANY("+arg(q.IDs)+")")
	}
	if q.CategoryID != nil {
		where = append(where, `category_id IN (
WITH RECURSIVE subtree AS (
  SELECT id FROM categories WHERE id = `+arg(*q.CategoryID)+`
  UNION ALL
  SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
)
SELECT id FROM subtree)`)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		p := arg("%" + search + "%")
		where = append(where, "(name ILIKE "+p+" OR description ILIKE "+p+")")
	}

	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	orderSQL := productOrder(q.Sort)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sql := `SELECT ` + productColumns + ` FROM products WHERE ` + whereSQL +
		` ORDER BY ` + orderSQL + ` LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func productOrder(sort string) string {
	switch sort {
	case "price":
		return "COALESCE(CASE WHEN deal_price IS NOT NULL AND deal_ends_at > now() THEN deal_price END, regular_price) ASC, id"
	case "-price":
		return "COALESCE(CASE WHEN deal_price IS NOT NULL AND deal_ends_at > now() THEN deal_price END, regular_price) DESC, id"
	case "created_at":
		return "created_at ASC, id"
	default:
		return "created_at DESC, id"
	}
}

// GetProduct fetches an active product by identifier.
func (s *pgStore) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 AND is_active`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// DealOfTheDay returns the active product whose deal ends soonest but has not
// ended yet.
func (s *pgStore) DealOfTheDay(ctx context.Context, now time.Time) (Product, error) {
	if s == nil || s.pool == nil {
		return Product{}, ErrStoreUnavailable
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products
WHERE is_active AND deal_price IS NOT NULL AND deal_ends_at > $1
ORDER BY deal_ends_at ASC LIMIT 1`, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("deal of the day: %w", err)
	}
	return p, nil
}

// GetRule fetches a discount rule by identifier.
func (s *pgStore) GetRule(ctx context.Context, id uuid.UUID) (pricing.Rule, error) {
	if s == nil || s.pool == nil {
		return pricing.Rule{}, ErrStoreUnavailable
	}
	var r pricing.Rule
	err := s.pool.QueryRow(ctx, `SELECT id, name, rule_type, min_quantity, percent, product_target, category_target, is_active
FROM discount_rules WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Type, &r.MinQuantity, &r.Percent, &r.ProductTarget, &r.CategoryTarget, &r.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Rule{}, ErrNotFound
		}
		return pricing.Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

// InsertRule persists a new discount rule and returns it with the generated id.
func (s *pgStore) InsertRule(ctx context.Context, r pricing.Rule) (pricing.Rule, error) {
	if s == nil || s.pool == nil {
		return pricing.Rule{}, ErrStoreUnavailable
	}
	err := s.pool.QueryRow(ctx, `INSERT INTO discount_rules (name, rule_type, min_quantity, percent, product_target, category_target, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		r.Name, r.Type, r.MinQuantity, r.Percent, r.ProductTarget, r.CategoryTarget, r.Active).Scan(&r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return pricing.Rule{}, ErrDuplicate
		}
		return pricing.Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	return r, nil
}

// UpdateRule replaces a discount rule in place.
func (s *pgStore) UpdateRule(ctx context.Context, r pricing.Rule) (pricing.Rule, error) {
	if s == nil || s.pool == nil {
		return pricing.Rule{}, ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `UPDATE discount_rules
SET name = $2, rule_type = $3, min_quantity = $4, percent = $5, product_target = $6, category_target = $7, is_active = $8
WHERE id = $1`,
		r.ID, r.Name, r.Type, r.MinQuantity, r.Percent, r.ProductTarget, r.CategoryTarget, r.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return pricing.Rule{}, ErrDuplicate
		}
		return pricing.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.Rule{}, ErrNotFound
	}
	return r, nil
}

// DeleteRule removes a discount rule by identifier.
func (s *pgStore) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM discount_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
