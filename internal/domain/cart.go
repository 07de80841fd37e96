package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product in a cart. Name, UnitPrice and ImageRef are snapshots taken when the
// product was first added; LineTotal is always UnitPrice * Quantity * RentalDays.
type LineItem struct {
	ProductID  int64           `json:"product_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ImageRef   string          `json:"image_ref"`
	Quantity   int             `json:"quantity"`
	RentalDays int             `json:"rental_days"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

func NewLineItem(p Product) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.ImageURL,
	}.WithCounts(1, 1)
}

// WithCounts returns a copy with both counts clamped to at least 1 and the total recomputed.
func (l LineItem) WithCounts(quantity, rentalDays int) LineItem {
	l.Quantity = ClampCount(quantity)
	l.RentalDays = ClampCount(rentalDays)
	l.LineTotal = l.UnitPrice.
		Mul(decimal.NewFromInt(int64(l.Quantity))).
		Mul(decimal.NewFromInt(int64(l.RentalDays)))
	return l
}

func ClampCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

type WishlistItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  string          `json:"image_ref"`
	AddedAt   time.Time       `json:"added_at"`
}

func NewWishlistItem(p Product, now time.Time) WishlistItem {
	return WishlistItem{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		ImageRef:  p.ImageURL,
		AddedAt:   now,
	}
}

// Product rebuilds the catalog snapshot carried by a wishlist entry.
func (w WishlistItem) Product() Product {
	return Product{
		ID:       w.ProductID,
		Name:     w.Name,
		Price:    w.UnitPrice,
		ImageURL: w.ImageRef,
		Status:   ProductStatusActive,
	}
}
