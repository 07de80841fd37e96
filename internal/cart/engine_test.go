package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore wraps a MemoryStore without exposing Apply, counts writes and can fail writes to
// collections matching a prefix.
type mockStore struct {
	inner *store.MemoryStore

	mu         sync.Mutex
	writes     int
	failPrefix string
	failGets   bool
	failOnce   bool
}

func newMockStore() *mockStore {
	return &mockStore{inner: store.NewMemoryStore()}
}

var errBackendDown = errors.New("backend down")

func (m *mockStore) shouldFail(collection string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPrefix == "" || !strings.HasPrefix(collection, m.failPrefix) {
		return false
	}
	if m.failOnce {
		m.failPrefix = ""
	}
	return true
}

func (m *mockStore) failWrites(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPrefix = prefix
}

func (m *mockStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *mockStore) Get(ctx context.Context, c string) ([]byte, error) {
	m.mu.Lock()
	fail := m.failGets
	m.mu.Unlock()
	if fail {
		return nil, errBackendDown
	}
	return m.inner.Get(ctx, c)
}

func (m *mockStore) Set(ctx context.Context, c string, data []byte) error {
	if m.shouldFail(c) {
		return errBackendDown
	}
	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return m.inner.Set(ctx, c, data)
}

func (m *mockStore) Remove(ctx context.Context, c string) error {
	if m.shouldFail(c) {
		return errBackendDown
	}
	m.mu.Lock()
	m.writes++
	m.mu.Unlock()
	return m.inner.Remove(ctx, c)
}

var (
	gown = domain.Product{ID: 1, Name: "Designer Evening Gown", Price: decimal.NewFromInt(1500), ImageURL: "gown.jpg", Status: domain.ProductStatusActive}
	rug  = domain.Product{ID: 2, Name: "Persian Carpet", Price: decimal.NewFromInt(2500), ImageURL: "carpet.jpg", Status: domain.ProductStatusActive}
	tent = domain.Product{ID: 7, Name: "Party Tent", Price: decimal.RequireFromString("2000.50"), ImageURL: "tent.jpg", Status: domain.ProductStatusActive}
)

func intPtr(n int) *int { return &n }

func openEngine(t *testing.T, s store.Store) *Engine {
	t.Helper()
	e, err := Open(context.Background(), s, "user123", zerolog.Nop())
	require.NoError(t, err)
	return e
}

func TestAddToCart_NewItemDefaults(t *testing.T) {
	e := openEngine(t, store.NewMemoryStore())

	items, err := e.AddToCart(context.Background(), gown)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, int64(1), item.ProductID)
	assert.Equal(t, "Designer Evening Gown", item.Name)
	assert.Equal(t, "gown.jpg", item.ImageRef)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 1, item.RentalDays)
	assert.True(t, item.LineTotal.Equal(gown.Price))
	assert.Equal(t, 1, e.CartCount())
}

func TestAddToCart_SameProductMerges(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())

	_, err := e.AddToCart(ctx, tent)
	require.NoError(t, err)
	_, err = e.UpdateCartItem(ctx, tent.ID, Update{RentalDays: intPtr(3)})
	require.NoError(t, err)
	items, err := e.AddToCart(ctx, tent)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 3, items[0].RentalDays)
	assert.Equal(t, "12003", items[0].LineTotal.String())
}

func TestAddToCart_KeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())

	for _, p := range []domain.Product{rug, gown, tent, rug} {
		_, err := e.AddToCart(ctx, p)
		require.NoError(t, err)
	}

	items := e.Cart()
	require.Len(t, items, 3)
	assert.Equal(t, []int64{2, 1, 7}, []int64{items[0].ProductID, items[1].ProductID, items[2].ProductID})
	assert.Equal(t, 4, e.CartCount())
}

func TestAddToCart_SnapshotIgnoresLaterCatalogEdits(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())

	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)

	repriced := gown
	repriced.Price = decimal.NewFromInt(9999)
	repriced.Name = "Renamed"
	items, err := e.AddToCart(ctx, repriced)
	require.NoError(t, err)

	assert.Equal(t, "Designer Evening Gown", items[0].Name)
	assert.Equal(t, "3000", items[0].LineTotal.String())
}

func TestUpdateCartItem_ClampsNonPositive(t *testing.T) {
	ctx := context.Background()

	for _, n := range []int{0, -1, -250} {
		e := openEngine(t, store.NewMemoryStore())
		_, err := e.AddToCart(ctx, gown)
		require.NoError(t, err)

		items, err := e.UpdateCartItem(ctx, gown.ID, Update{Quantity: intPtr(n), RentalDays: intPtr(n)})
		require.NoError(t, err)
		assert.Equal(t, 1, items[0].Quantity, "quantity for %d", n)
		assert.Equal(t, 1, items[0].RentalDays, "days for %d", n)
		assert.Equal(t, "1500", items[0].LineTotal.String())
	}
}

func TestUpdateCartItem_FieldsAreIndependent(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())
	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)

	_, err = e.UpdateCartItem(ctx, gown.ID, Update{Quantity: intPtr(2)})
	require.NoError(t, err)
	items, err := e.UpdateCartItem(ctx, gown.ID, Update{RentalDays: intPtr(4)})
	require.NoError(t, err)

	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 4, items[0].RentalDays)
	assert.Equal(t, "12000", items[0].LineTotal.String())
}

func TestUpdateCartItem_UnknownProductIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)
	writes := s.writeCount()

	items, err := e.UpdateCartItem(ctx, 404, Update{Quantity: intPtr(5)})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, writes, s.writeCount())
}

func TestRemoveFromCart_AbsentLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)
	_, err = e.AddToCart(ctx, rug)
	require.NoError(t, err)

	before, err := s.Get(ctx, store.CartCollection("user123"))
	require.NoError(t, err)

	items, err := e.RemoveFromCart(ctx, 404)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	after, err := s.Get(ctx, store.CartCollection("user123"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 2, s.writeCount())
}

func TestRemoveFromCart_RemovesAndRecounts(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())
	_, _ = e.AddToCart(ctx, gown)
	_, _ = e.AddToCart(ctx, gown)
	_, _ = e.AddToCart(ctx, rug)

	items, err := e.RemoveFromCart(ctx, gown.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.Equal(t, 1, e.CartCount())
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := openEngine(t, s)
	_, _ = e.AddToCart(ctx, gown)

	require.NoError(t, e.ClearCart(ctx))
	assert.Empty(t, e.Cart())
	assert.Equal(t, 0, e.CartCount())
	assert.True(t, e.CartTotal().IsZero())

	reopened := openEngine(t, s)
	assert.Empty(t, reopened.Cart())
}

func TestCartTotal_MatchesSumOfLineTotals(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())

	steps := []func() error{
		func() error { _, err := e.AddToCart(ctx, gown); return err },
		func() error { _, err := e.AddToCart(ctx, tent); return err },
		func() error { _, err := e.UpdateCartItem(ctx, tent.ID, Update{Quantity: intPtr(3)}); return err },
		func() error { _, err := e.AddToCart(ctx, rug); return err },
		func() error { _, err := e.UpdateCartItem(ctx, gown.ID, Update{RentalDays: intPtr(-2)}); return err },
		func() error { _, err := e.RemoveFromCart(ctx, rug.ID); return err },
		func() error { _, err := e.AddToCart(ctx, tent); return err },
	}

	for i, step := range steps {
		require.NoError(t, step())

		sum := decimal.Zero
		for _, item := range e.Cart() {
			expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity * item.RentalDays)))
			assert.True(t, item.LineTotal.Equal(expected), "step %d line total", i)
			sum = sum.Add(item.LineTotal)
		}
		assert.True(t, e.CartTotal().Equal(sum), "step %d", i)
	}
}

func TestCartTotal_GownScenario(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())
	_, err := e.AddToCart(ctx, domain.Product{ID: 1, Name: "Gown", Price: decimal.NewFromInt(1500)})
	require.NoError(t, err)
	_, err = e.UpdateCartItem(ctx, 1, Update{RentalDays: intPtr(3)})
	require.NoError(t, err)

	assert.Equal(t, "4500", e.CartTotal().String())
}

func TestPersistenceFailure_LeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)

	s.failWrites("cart:")

	_, err = e.AddToCart(ctx, rug)
	require.Error(t, err)
	assert.True(t, store.IsPersistenceError(err))

	_, err = e.UpdateCartItem(ctx, gown.ID, Update{Quantity: intPtr(9)})
	require.ErrorIs(t, err, errBackendDown)
	_, err = e.RemoveFromCart(ctx, gown.ID)
	require.Error(t, err)
	require.Error(t, e.ClearCart(ctx))

	items := e.Cart()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, 1, e.CartCount())
}

func TestOpen_CorruptCartFailsOpen(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, store.CartCollection("user123"), []byte("{not json")))

	e := openEngine(t, s)
	assert.Empty(t, e.Cart())

	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)
	assert.Len(t, openEngine(t, s).Cart(), 1)
}

func TestOpen_NormalizesStoredItems(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	stored := `[
		{"product_id":1,"name":"Gown","unit_price":"1500","quantity":0,"rental_days":2,"line_total":"1"},
		{"product_id":2,"name":"Carpet","unit_price":"2500","quantity":1,"rental_days":1,"line_total":"2500"},
		{"product_id":1,"name":"Gown","unit_price":"1500","quantity":2,"rental_days":5,"line_total":"15000"}
	]`
	require.NoError(t, s.Set(ctx, store.CartCollection("user123"), []byte(stored)))

	items := openEngine(t, s).Cart()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 2, items[0].RentalDays)
	assert.Equal(t, "9000", items[0].LineTotal.String())
}

func TestOpen_BackendFailure(t *testing.T) {
	s := newMockStore()
	s.failGets = true

	_, err := Open(context.Background(), s, "user123", zerolog.Nop())
	assert.ErrorIs(t, err, errBackendDown)
}

func TestWishlist_Membership(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)

	_, err := e.AddToWishlist(ctx, gown)
	require.NoError(t, err)
	wished, err := e.AddToWishlist(ctx, gown)
	require.NoError(t, err)

	require.Len(t, wished, 1)
	assert.Equal(t, 1, s.writeCount())
	assert.True(t, e.IsInWishlist(gown.ID))
	assert.False(t, e.IsInWishlist(rug.ID))
	assert.Equal(t, 1, e.WishlistCount())
	assert.False(t, wished[0].AddedAt.IsZero())

	wished, err = e.RemoveFromWishlist(ctx, rug.ID)
	require.NoError(t, err)
	assert.Len(t, wished, 1)
	assert.Equal(t, 1, s.writeCount())

	wished, err = e.RemoveFromWishlist(ctx, gown.ID)
	require.NoError(t, err)
	assert.Empty(t, wished)
	assert.False(t, e.IsInWishlist(gown.ID))
}

func TestClearWishlist(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := openEngine(t, s)
	_, _ = e.AddToWishlist(ctx, gown)
	_, _ = e.AddToWishlist(ctx, rug)

	require.NoError(t, e.ClearWishlist(ctx))
	assert.Equal(t, 0, e.WishlistCount())
	assert.Empty(t, openEngine(t, s).Wishlist())
}

func TestWishlist_FailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToWishlist(ctx, gown)
	require.NoError(t, err)

	s.failWrites("wishlist:")
	_, err = e.AddToWishlist(ctx, rug)
	require.Error(t, err)
	_, err = e.RemoveFromWishlist(ctx, gown.ID)
	require.Error(t, err)
	require.Error(t, e.ClearWishlist(ctx))

	assert.Equal(t, 1, e.WishlistCount())
	assert.True(t, e.IsInWishlist(gown.ID))
}

func TestMoveToCart_Batched(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	e := openEngine(t, s)
	_, err := e.AddToWishlist(ctx, rug)
	require.NoError(t, err)

	items, wished, err := e.AddToCartAndRemoveFromWishlist(ctx, rug)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, wished)

	reopened := openEngine(t, s)
	assert.Len(t, reopened.Cart(), 1)
	assert.False(t, reopened.IsInWishlist(rug.ID))
}

func TestMoveToCart_Sequential(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToWishlist(ctx, rug)
	require.NoError(t, err)

	items, wished, err := e.AddToCartAndRemoveFromWishlist(ctx, rug)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, wished)

	reopened := openEngine(t, s)
	assert.Len(t, reopened.Cart(), 1)
	assert.Equal(t, 0, reopened.WishlistCount())
}

func TestMoveToCart_NotWishedStillAddsToCart(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)

	items, wished, err := e.AddToCartAndRemoveFromWishlist(ctx, gown)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Empty(t, wished)
	assert.Equal(t, 1, s.writeCount())
}

func TestMoveToCart_WishlistFailureRestoresCart(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)
	_, err = e.AddToWishlist(ctx, rug)
	require.NoError(t, err)

	s.failWrites("wishlist:")
	_, _, err = e.AddToCartAndRemoveFromWishlist(ctx, rug)
	require.ErrorIs(t, err, errBackendDown)

	// caller sees neither half
	assert.Len(t, e.Cart(), 1)
	assert.True(t, e.IsInWishlist(rug.ID))

	reopened := openEngine(t, s)
	require.Len(t, reopened.Cart(), 1)
	assert.Equal(t, gown.ID, reopened.Cart()[0].ProductID)
	assert.True(t, reopened.IsInWishlist(rug.ID))
}

func TestMoveToCart_CartFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newMockStore()
	e := openEngine(t, s)
	_, err := e.AddToWishlist(ctx, rug)
	require.NoError(t, err)

	s.failWrites("cart:")
	_, _, err = e.AddToCartAndRemoveFromWishlist(ctx, rug)
	require.Error(t, err)

	reopened := openEngine(t, s)
	assert.Empty(t, reopened.Cart())
	assert.True(t, reopened.IsInWishlist(rug.ID))
}

func TestCart_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	e := openEngine(t, store.NewMemoryStore())
	items, err := e.AddToCart(ctx, gown)
	require.NoError(t, err)

	items[0].Quantity = 99
	e.Cart()[0].Quantity = 42

	assert.Equal(t, 1, e.Cart()[0].Quantity)
}
