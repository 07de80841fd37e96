package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderExists       = errors.New("order with this id already exists")
	ErrIllegalTransition = errors.New("illegal order status transition")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// Repository stores placed orders. Orders are written once; afterwards only the status moves.
type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	// ListByOwner returns the owner's orders, newest first.
	ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

func applyStatus(order *domain.Order, next domain.OrderStatus, now time.Time) error {
	if !order.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, order.Status, next)
	}
	order.Status = next
	order.UpdatedAt = now
	return nil
}
