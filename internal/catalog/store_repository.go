package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
)

// StoreRepository serves the catalog from the "products" collection.
type StoreRepository struct {
	mu         sync.Mutex
	collection *store.Collection[domain.Product]
	now        func() time.Time
}

func NewStoreRepository(s store.Store, logger zerolog.Logger) *StoreRepository {
	return &StoreRepository{
		collection: store.NewCollection[domain.Product](s, store.ProductsCollection, logger),
		now:        time.Now,
	}
}

// Seed writes SampleProducts when the collection is empty.
func (r *StoreRepository) Seed(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.collection.LoadStrict(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	return r.collection.Save(ctx, SampleProducts())
}

func (r *StoreRepository) List(ctx context.Context, filter Filter) ([]domain.Product, error) {
	all, err := r.collection.Load(ctx)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(all))
	for _, p := range all {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !filter.IncludeHidden && !p.Visible() {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *StoreRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	all, err := r.collection.Load(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range all {
		if p.ID == id && p.Visible() {
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

func (r *StoreRepository) SetStatus(ctx context.Context, id int64, status domain.ProductStatus) (*domain.Product, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.collection.LoadStrict(ctx)
	if err != nil {
		return nil, err
	}

	for i := range all {
		if all[i].ID != id {
			continue
		}
		all[i].Status = status
		if err := r.collection.Save(ctx, all); err != nil {
			return nil, err
		}
		p := all[i]
		return &p, nil
	}
	return nil, ErrProductNotFound
}

func (r *StoreRepository) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p, err := newSubmission(p, r.now())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.collection.LoadStrict(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range all {
		if existing.ID > p.ID {
			p.ID = existing.ID
		}
	}
	p.ID++

	if err := r.collection.Save(ctx, append(all, p)); err != nil {
		return nil, err
	}
	return &p, nil
}
