package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
)

// StoreRepository keeps all orders in the shared "orders" collection.
type StoreRepository struct {
	mu         sync.Mutex
	collection *store.Collection[domain.Order]
	now        func() time.Time
}

func NewStoreRepository(s store.Store, logger zerolog.Logger) *StoreRepository {
	return &StoreRepository{
		collection: store.NewCollection[domain.Order](s, store.OrdersCollection, logger),
		now:        time.Now,
	}
}

func (r *StoreRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.collection.LoadStrict(ctx)
	if err != nil {
		return err
	}
	if indexOfOrder(all, order.OrderID) >= 0 {
		return ErrOrderExists
	}

	return r.collection.Save(ctx, append(all, *order.Clone()))
}

func (r *StoreRepository) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	all, err := r.collection.Load(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOfOrder(all, orderID)
	if idx < 0 {
		return nil, ErrOrderNotFound
	}
	return all[idx].Clone(), nil
}

func (r *StoreRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Order, error) {
	all, err := r.collection.Load(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0)
	for i := range all {
		if all[i].Owner == owner {
			orders = append(orders, all[i].Clone())
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *StoreRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.collection.LoadStrict(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOfOrder(all, orderID)
	if idx < 0 {
		return nil, ErrOrderNotFound
	}

	updated := all[idx].Clone()
	if err := applyStatus(updated, status, r.now().UTC()); err != nil {
		return nil, err
	}

	all[idx] = *updated
	if err := r.collection.Save(ctx, all); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

func indexOfOrder(all []domain.Order, orderID string) int {
	for i := range all {
		if all[i].OrderID == orderID {
			return i
		}
	}
	return -1
}
