package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
)

// Update carries the optional fields of an UpdateCartItem call. Nil fields are left alone.
type Update struct {
	Quantity   *int
	RentalDays *int
}

// Engine holds one owner's cart and wishlist. Every mutation builds the next state, persists it,
// and only then replaces the in-memory copy, so a failed write leaves the engine untouched.
type Engine struct {
	owner    string
	store    store.Store
	cart     *store.Collection[domain.LineItem]
	wishlist *store.Collection[domain.WishlistItem]
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	items  []domain.LineItem
	wished []domain.WishlistItem
}

// Open loads the owner's persisted cart and wishlist.
func Open(ctx context.Context, s store.Store, owner string, logger zerolog.Logger) (*Engine, error) {
	e := newEngine(s, owner, logger)

	items, wished, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.items = items
	e.wished = wished
	return e, nil
}

func newEngine(s store.Store, owner string, logger zerolog.Logger) *Engine {
	logger = logger.With().Str("owner", owner).Logger()
	return &Engine{
		owner: owner,
		store: s,
		cart: store.NewCollection[domain.LineItem](s, store.CartCollection(owner), logger).
			WithNormalizer(func(l domain.LineItem) domain.LineItem {
				return l.WithCounts(l.Quantity, l.RentalDays)
			}),
		wishlist: store.NewCollection[domain.WishlistItem](s, store.WishlistCollection(owner), logger),
		logger:   logger,
		now:      time.Now,
	}
}

func (e *Engine) load(ctx context.Context) ([]domain.LineItem, []domain.WishlistItem, error) {
	items, err := e.cart.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	wished, err := e.wishlist.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return mergeDuplicates(items), dedupeWishlist(wished), nil
}

func (e *Engine) Owner() string {
	return e.owner
}

func (e *Engine) AddToCart(ctx context.Context, p domain.Product) ([]domain.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := addItem(e.items, p)
	if err := e.cart.Save(ctx, next); err != nil {
		e.logger.Error().Err(err).Int64("product_id", p.ID).Msg("add to cart failed")
		return nil, err
	}
	e.items = next
	return domain.CloneLineItems(next), nil
}

// UpdateCartItem applies u to the matching line item. An unknown product id is not an error:
// the cart is returned as is and nothing is written.
func (e *Engine) UpdateCartItem(ctx context.Context, productID int64, u Update) ([]domain.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := indexOfItem(e.items, productID)
	if idx < 0 {
		return domain.CloneLineItems(e.items), nil
	}

	next := domain.CloneLineItems(e.items)
	quantity, days := next[idx].Quantity, next[idx].RentalDays
	if u.Quantity != nil {
		quantity = *u.Quantity
	}
	if u.RentalDays != nil {
		days = *u.RentalDays
	}
	next[idx] = next[idx].WithCounts(quantity, days)

	if err := e.cart.Save(ctx, next); err != nil {
		e.logger.Error().Err(err).Int64("product_id", productID).Msg("update cart item failed")
		return nil, err
	}
	e.items = next
	return domain.CloneLineItems(next), nil
}

func (e *Engine) RemoveFromCart(ctx context.Context, productID int64) ([]domain.LineItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if indexOfItem(e.items, productID) < 0 {
		return domain.CloneLineItems(e.items), nil
	}

	next := removeItem(e.items, productID)
	if err := e.cart.Save(ctx, next); err != nil {
		e.logger.Error().Err(err).Int64("product_id", productID).Msg("remove from cart failed")
		return nil, err
	}
	e.items = next
	return domain.CloneLineItems(next), nil
}

func (e *Engine) ClearCart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.cart.Clear(ctx); err != nil {
		e.logger.Error().Err(err).Msg("clear cart failed")
		return err
	}
	e.items = []domain.LineItem{}
	return nil
}

func (e *Engine) Cart() []domain.LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.CloneLineItems(e.items)
}

// CartTotal is the sum of all line totals.
func (e *Engine) CartTotal() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SumLineTotals(e.items)
}

// CartCount is the sum of all quantities.
func (e *Engine) CartCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, item := range e.items {
		count += item.Quantity
	}
	return count
}

func (e *Engine) AddToWishlist(ctx context.Context, p domain.Product) ([]domain.WishlistItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if indexOfWish(e.wished, p.ID) >= 0 {
		return cloneWishlist(e.wished), nil
	}

	next := append(cloneWishlist(e.wished), domain.NewWishlistItem(p, e.now().UTC()))
	if err := e.wishlist.Save(ctx, next); err != nil {
		e.logger.Error().Err(err).Int64("product_id", p.ID).Msg("add to wishlist failed")
		return nil, err
	}
	e.wished = next
	return cloneWishlist(next), nil
}

func (e *Engine) RemoveFromWishlist(ctx context.Context, productID int64) ([]domain.WishlistItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if indexOfWish(e.wished, productID) < 0 {
		return cloneWishlist(e.wished), nil
	}

	next := removeWish(e.wished, productID)
	if err := e.wishlist.Save(ctx, next); err != nil {
		e.logger.Error().Err(err).Int64("product_id", productID).Msg("remove from wishlist failed")
		return nil, err
	}
	e.wished = next
	return cloneWishlist(next), nil
}

func (e *Engine) IsInWishlist(productID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return indexOfWish(e.wished, productID) >= 0
}

func (e *Engine) ClearWishlist(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.wishlist.Clear(ctx); err != nil {
		e.logger.Error().Err(err).Msg("clear wishlist failed")
		return err
	}
	e.wished = []domain.WishlistItem{}
	return nil
}

func (e *Engine) Wishlist() []domain.WishlistItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneWishlist(e.wished)
}

func (e *Engine) WishlistCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.wished)
}

// AddToCartAndRemoveFromWishlist moves a product from the wishlist into the cart. Both
// collections go out in one batch when the store supports it. Otherwise the cart is written
// first and restored to its previous contents if the wishlist write fails.
func (e *Engine) AddToCartAndRemoveFromWishlist(ctx context.Context, p domain.Product) ([]domain.LineItem, []domain.WishlistItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nextItems := addItem(e.items, p)
	nextWished := removeWish(e.wished, p.ID)

	cartWrite, err := e.cart.Write(nextItems)
	if err != nil {
		return nil, nil, err
	}
	wishWrite, err := e.wishlist.Write(nextWished)
	if err != nil {
		return nil, nil, err
	}

	err = store.Apply(ctx, e.store, cartWrite, wishWrite)
	if errors.Is(err, store.ErrBatchUnsupported) {
		err = e.moveSequentially(ctx, nextItems, nextWished)
	}
	if err != nil {
		e.logger.Error().Err(err).Int64("product_id", p.ID).Msg("move to cart failed")
		return nil, nil, err
	}

	e.items = nextItems
	e.wished = nextWished
	return domain.CloneLineItems(nextItems), cloneWishlist(nextWished), nil
}

func (e *Engine) moveSequentially(ctx context.Context, nextItems []domain.LineItem, nextWished []domain.WishlistItem) error {
	if err := e.cart.Save(ctx, nextItems); err != nil {
		return err
	}
	if len(nextWished) == len(e.wished) {
		return nil
	}

	wishErr := e.wishlist.Save(ctx, nextWished)
	if wishErr == nil {
		return nil
	}

	if err := e.cart.Save(ctx, e.items); err != nil {
		// the stored cart now holds the product while the wishlist still lists it
		e.logger.Error().Err(err).Msg("restoring cart after failed wishlist write failed")
		return errors.Join(wishErr, err)
	}
	return wishErr
}

// SumLineTotals adds up the line totals of items.
func SumLineTotals(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

func addItem(items []domain.LineItem, p domain.Product) []domain.LineItem {
	next := domain.CloneLineItems(items)
	if idx := indexOfItem(next, p.ID); idx >= 0 {
		next[idx] = next[idx].WithCounts(next[idx].Quantity+1, next[idx].RentalDays)
		return next
	}
	return append(next, domain.NewLineItem(p))
}

func removeItem(items []domain.LineItem, productID int64) []domain.LineItem {
	next := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID != productID {
			next = append(next, item)
		}
	}
	return next
}

func indexOfItem(items []domain.LineItem, productID int64) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func removeWish(wished []domain.WishlistItem, productID int64) []domain.WishlistItem {
	next := make([]domain.WishlistItem, 0, len(wished))
	for _, w := range wished {
		if w.ProductID != productID {
			next = append(next, w)
		}
	}
	return next
}

func indexOfWish(wished []domain.WishlistItem, productID int64) int {
	for i, w := range wished {
		if w.ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneWishlist(wished []domain.WishlistItem) []domain.WishlistItem {
	out := make([]domain.WishlistItem, len(wished))
	copy(out, wished)
	return out
}

// mergeDuplicates folds repeated product ids from stored data into the first occurrence.
func mergeDuplicates(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if idx := indexOfItem(out, item.ProductID); idx >= 0 {
			out[idx] = out[idx].WithCounts(out[idx].Quantity+item.Quantity, out[idx].RentalDays)
			continue
		}
		out = append(out, item)
	}
	return out
}

func dedupeWishlist(wished []domain.WishlistItem) []domain.WishlistItem {
	out := make([]domain.WishlistItem, 0, len(wished))
	for _, w := range wished {
		if indexOfWish(out, w.ProductID) < 0 {
			out = append(out, w)
		}
	}
	return out
}
