package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

// SampleProducts mirrors the rows inserted by the sqlite seed migration.
func SampleProducts() []domain.Product {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{
			ID:          1,
			Name:        "Designer Evening Gown",
			Description: "Elegant evening gown for special occasions",
			Category:    "fashion",
			Price:       decimal.NewFromInt(1500),
			ImageURL:    "/images/products/evening-gown.jpg",
			Status:      domain.ProductStatusActive,
			CreatedAt:   created,
		},
		{
			ID:          2,
			Name:        "Persian Carpet",
			Description: "Beautiful handwoven Persian carpet",
			Category:    "home",
			Price:       decimal.NewFromInt(2500),
			ImageURL:    "/images/products/persian-carpet.jpg",
			Status:      domain.ProductStatusActive,
			CreatedAt:   created,
		},
		{
			ID:          3,
			Name:        "Wedding Decor Set",
			Description: "Complete wedding decoration package",
			Category:    "events",
			Price:       decimal.NewFromInt(3500),
			ImageURL:    "/images/products/wedding-decor.jpg",
			Status:      domain.ProductStatusActive,
			CreatedAt:   created,
		},
		{
			ID:          4,
			Name:        "Party Tent",
			Description: "10x10 party tent for outdoor events",
			Category:    "events",
			Price:       decimal.NewFromInt(2000),
			ImageURL:    "/images/products/party-tent.jpg",
			Status:      domain.ProductStatusActive,
			CreatedAt:   created,
		},
		{
			ID:          5,
			Name:        "Vintage Gramophone",
			Description: "Working 1940s gramophone, awaiting review",
			Category:    "home",
			Price:       decimal.NewFromInt(1200),
			ImageURL:    "/images/products/gramophone.jpg",
			Status:      domain.ProductStatusInactive,
			CreatedAt:   created,
		},
	}
}
