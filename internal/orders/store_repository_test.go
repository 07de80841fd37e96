package orders

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(id, owner string, createdAt time.Time) *domain.Order {
	item := domain.LineItem{ProductID: 1, Name: "Designer Evening Gown", UnitPrice: decimal.NewFromInt(1500)}.WithCounts(1, 3)
	return &domain.Order{
		OrderID: id,
		Owner:   owner,
		Customer: domain.Customer{
			FirstName: "Ayesha",
			LastName:  "Khan",
			Email:     "ayesha@example.com",
			Phone:     "03001234567",
			Address:   "12 Mall Road",
			City:      "Lahore",
		},
		Items:             []domain.LineItem{item},
		Subtotal:          decimal.NewFromInt(4500),
		Tax:               decimal.NewFromInt(225),
		Delivery:          decimal.Zero,
		Total:             decimal.NewFromInt(4725),
		PaymentMethod:     domain.PaymentCreditCard,
		PaymentStatus:     domain.PaymentStatusPaid,
		Status:            domain.OrderStatusConfirmed,
		CreatedAt:         createdAt,
		EstimatedDelivery: createdAt.Add(domain.DeliveryWindow),
		UpdatedAt:         createdAt,
	}
}

func TestStoreRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", now)))

	got, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, "user-123", got.Owner)
	assert.Equal(t, "4725", got.Total.String())
	assert.True(t, got.EstimatedDelivery.Equal(now.Add(72*time.Hour)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].RentalDays)
}

func TestStoreRepository_GetMissing(t *testing.T) {
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())

	_, err := repo.Get(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStoreRepository_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", now)))
	err := repo.Create(ctx, newTestOrder("ORD-1", "user-456", now))
	assert.ErrorIs(t, err, ErrOrderExists)
}

func TestStoreRepository_StoredOrderIsIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())
	order := newTestOrder("ORD-1", "user-123", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, order))
	order.Items[0].Quantity = 50
	order.Total = decimal.NewFromInt(1)

	got, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
	assert.Equal(t, "4725", got.Total.String())
}

func TestStoreRepository_ListByOwnerNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", base)))
	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-2", "user-456", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-3", "user-123", base.Add(time.Hour))))

	list, err := repo.ListByOwner(ctx, "user-123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ORD-3", list[0].OrderID)
	assert.Equal(t, "ORD-1", list[1].OrderID)

	empty, err := repo.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStoreRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewStoreRepository(store.NewMemoryStore(), zerolog.Nop())
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	later := created.Add(2 * time.Hour)
	repo.now = func() time.Time { return later }

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-1", "user-123", created)))

	updated, err := repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)
	assert.Equal(t, later, updated.UpdatedAt)

	got, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
	assert.Equal(t, "4725", got.Total.String())

	_, err = repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusDelivered)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, "ORD-1", domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = repo.UpdateStatus(ctx, "ORD-404", domain.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to domain.OrderStatus
		ok       bool
	}{
		{domain.OrderStatusConfirmed, domain.OrderStatusShipped, true},
		{domain.OrderStatusConfirmed, domain.OrderStatusCancelled, true},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, true},
		{domain.OrderStatusShipped, domain.OrderStatusCancelled, true},
		{domain.OrderStatusConfirmed, domain.OrderStatusDelivered, false},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStoreRepository_CorruptHistoryIsNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	repo := NewStoreRepository(s, zerolog.Nop())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder("ORD-OLD", "user-123", now)))
	require.NoError(t, s.Set(ctx, store.OrdersCollection, []byte("{not json")))

	err := repo.Create(ctx, newTestOrder("ORD-NEW", "user-456", now.Add(time.Hour)))
	require.Error(t, err)
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "decode", pe.Op)

	_, err = repo.UpdateStatus(ctx, "ORD-OLD", domain.OrderStatusShipped)
	require.ErrorAs(t, err, &pe)

	data, err := s.Get(ctx, store.OrdersCollection)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}
