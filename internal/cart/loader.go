package cart

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
	"golang.org/x/sync/singleflight"
)

// Loader opens engines for request handlers. Concurrent opens for the same owner share one
// round trip to the store; every caller still gets its own engine.
type Loader struct {
	store  store.Store
	logger zerolog.Logger
	sfg    singleflight.Group
}

func NewLoader(s store.Store, logger zerolog.Logger) *Loader {
	return &Loader{
		store:  s,
		logger: logger,
	}
}

// loadTimeout bounds a shared load, which no longer follows any single caller's context.
const loadTimeout = 10 * time.Second

type snapshot struct {
	items  []domain.LineItem
	wished []domain.WishlistItem
}

func (l *Loader) Open(ctx context.Context, owner string) (*Engine, error) {
	v, err, _ := l.sfg.Do(owner, func() (interface{}, error) {
		// callers joining this load must not fail because the first one went away
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		e := newEngine(l.store, owner, l.logger)
		items, wished, err := e.load(lctx)
		if err != nil {
			return nil, err
		}
		return snapshot{items: items, wished: wished}, nil
	})
	if err != nil {
		return nil, err
	}

	snap := v.(snapshot)
	e := newEngine(l.store, owner, l.logger)
	e.items = domain.CloneLineItems(snap.items)
	e.wished = cloneWishlist(snap.wished)
	return e, nil
}

// CoerceCount turns a loosely typed quantity or day count into a positive int. Anything that is
// not a number, including NaN and non-numeric strings, becomes 1.
func CoerceCount(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		return domain.ClampCount(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 1
		}
		f = parsed
	default:
		return 1
	}

	if math.IsNaN(f) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
