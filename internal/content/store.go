// Package content serves shop settings, FAQ entries, and promo banners.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrStoreUnavailable indicates the content store dependency is not configured.
var ErrStoreUnavailable = errors.New("content: store unavailable")

// Settings is the singleton shop configuration row.
type Settings struct {
	ManagerUsername       string
	ContactPhone          string
	AboutUs               string
	DeliveryTerms         string
	Warranty              string
	FreeShippingThreshold *decimal.Decimal
	SearchPlaceholder     string
	PrivacyPolicy         string
	PublicOffer           string
}

// FaqItem is one question/answer pair.
type FaqItem struct {
	ID       uuid.UUID
	Question string
	Answer   string
}

// Banner is one promo banner shown in the mini app.
type Banner struct {
	ID       uuid.UUID
	Title    string
	ImageURL string
	LinkURL  *string
	Text     string
}

// Store provides database accessors for shop content.
type Store interface {
	Settings(ctx context.Context) (Settings, error)
	ListFaq(ctx context.Context) ([]FaqItem, error)
	ListBanners(ctx context.Context) ([]Banner, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Settings loads the singleton settings row; a missing row yields defaults.
func (s *pgStore) Settings(ctx context.Context) (Settings, error) {
	if s == nil || s.pool == nil {
		return Settings{}, ErrStoreUnavailable
	}
	var out Settings
	err := s.pool.QueryRow(ctx, `SELECT manager_username, contact_phone, about_us, delivery_terms, warranty,
free_shipping_threshold, search_placeholder, privacy_policy, public_offer
FROM shop_settings WHERE id = 1`).
		Scan(&out.ManagerUsername, &out.ContactPhone, &out.AboutUs, &out.DeliveryTerms, &out.Warranty,
			&out.FreeShippingThreshold, &out.SearchPlaceholder, &out.PrivacyPolicy, &out.PublicOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

// ListFaq returns active FAQ items in display order.
func (s *pgStore) ListFaq(ctx context.Context) ([]FaqItem, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, question, answer FROM faq_items
WHERE is_active ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list faq: %w", err)
	}
	defer rows.Close()
	var items []FaqItem
	for rows.Next() {
		var item FaqItem
		if err := rows.Scan(&item.ID, &item.Question, &item.Answer); err != nil {
			return nil, fmt.Errorf("scan faq item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListBanners returns active promo banners in display order.
func (s *pgStore) ListBanners(ctx context.Context) ([]Banner, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.pool.Query(ctx, `SELECT id, title, image_url, link_url, text_content FROM promo_banners
WHERE is_active ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	defer rows.Close()
	var banners []Banner
	for rows.Next() {
		var b Banner
		if err := rows.Scan(&b.ID, &b.Title, &b.ImageURL, &b.LinkURL, &b.Text); err != nil {
			return nil, fmt.Errorf("scan banner: %w", err)
		}
		banners = append(banners, b)
	}
	return banners, rows.Err()
}
