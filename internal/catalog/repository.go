package catalog

import (
	"context"
	"errors"

	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidStatus   = errors.New("invalid product status")
)

// Filter narrows List. Hidden products are only returned with IncludeHidden, which is meant for
// moderators.
type Filter struct {
	Category      string
	IncludeHidden bool
}

type Repository interface {
	List(ctx context.Context, filter Filter) ([]domain.Product, error)
	// Get returns a product the storefront may show; hidden products are reported as not found.
	Get(ctx context.Context, id int64) (*domain.Product, error)
	SetStatus(ctx context.Context, id int64, status domain.ProductStatus) (*domain.Product, error)
	// Create stores a lender's submission. It starts inactive and stays hidden until a
	// moderator activates it. Invalid submissions fail with ErrInvalidProduct.
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
}
