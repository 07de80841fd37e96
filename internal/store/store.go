package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrBatchUnsupported = errors.New("store does not support multi-collection writes")

const (
	OrdersCollection   = "orders"
	ProductsCollection = "products"
)

func CartCollection(owner string) string {
	return fmt.Sprintf("cart:%s", owner)
}

func WishlistCollection(owner string) string {
	return fmt.Sprintf("wishlist:%s", owner)
}

// Store persists named collections as opaque JSON documents.
// Get returns nil, nil for a collection that was never written or was removed.
type Store interface {
	Get(ctx context.Context, collection string) ([]byte, error)
	Set(ctx context.Context, collection string, data []byte) error
	Remove(ctx context.Context, collection string) error
}

// Write is one collection write inside a batch. Nil Data removes the collection.
type Write struct {
	Collection string
	Data       []byte
}

// Batcher is implemented by stores that can apply several writes all-or-nothing.
type Batcher interface {
	Apply(ctx context.Context, writes []Write) error
}

type PersistenceError struct {
	Op         string
	Collection string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q failed: %v", e.Op, e.Collection, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Apply writes all collections in one atomic step. It returns ErrBatchUnsupported, unwrapped,
// when s cannot do that, so callers can fall back to sequential writes.
func Apply(ctx context.Context, s Store, writes ...Write) error {
	b, ok := s.(Batcher)
	if !ok {
		return ErrBatchUnsupported
	}

	err := b.Apply(ctx, writes)
	if err == nil || errors.Is(err, ErrBatchUnsupported) {
		return err
	}

	names := make([]string, 0, len(writes))
	for _, w := range writes {
		names = append(names, w.Collection)
	}
	return &PersistenceError{Op: "apply", Collection: strings.Join(names, ","), Err: err}
}
