package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Collection is a typed view over one stored JSON array.
type Collection[T any] struct {
	store     Store
	name      string
	logger    zerolog.Logger
	normalize func(T) T
}

func NewCollection[T any](s Store, name string, logger zerolog.Logger) *Collection[T] {
	return &Collection[T]{
		store:  s,
		name:   name,
		logger: logger.With().Str("collection", name).Logger(),
	}
}

// WithNormalizer sets a function applied to every record read back by Load.
func (c *Collection[T]) WithNormalizer(fn func(T) T) *Collection[T] {
	c.normalize = fn
	return c
}

func (c *Collection[T]) Name() string {
	return c.name
}

// Load returns the stored records. Corrupt data is logged and treated as an empty collection;
// only a failing backend produces an error.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	records, err := c.load(ctx)
	var pe *PersistenceError
	if errors.As(err, &pe) && pe.Op == "decode" {
		c.logger.Warn().Err(pe.Err).Msg("discarding unreadable collection")
		return []T{}, nil
	}
	return records, err
}

// LoadStrict is Load for read-modify-write paths: corrupt data is reported as a
// *PersistenceError with Op "decode" so the caller never overwrites it.
func (c *Collection[T]) LoadStrict(ctx context.Context) ([]T, error) {
	records, err := c.load(ctx)
	if err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) && pe.Op == "decode" {
			c.logger.Error().Err(pe.Err).Msg("refusing to rewrite unreadable collection")
		}
		return nil, err
	}
	return records, nil
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.store.Get(ctx, c.name)
	if err != nil {
		return nil, &PersistenceError{Op: "get", Collection: c.name, Err: err}
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &PersistenceError{Op: "decode", Collection: c.name, Err: err}
	}
	if records == nil {
		return []T{}, nil
	}

	if c.normalize != nil {
		for i := range records {
			records[i] = c.normalize(records[i])
		}
	}
	return records, nil
}

func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	w, err := c.Write(records)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, c.name, w.Data); err != nil {
		return &PersistenceError{Op: "set", Collection: c.name, Err: err}
	}
	return nil
}

func (c *Collection[T]) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.name); err != nil {
		return &PersistenceError{Op: "remove", Collection: c.name, Err: err}
	}
	return nil
}

// Write encodes records for use in a batch passed to Apply.
func (c *Collection[T]) Write(records []T) (Write, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return Write{}, fmt.Errorf("encode %s: %w", c.name, err)
	}
	return Write{Collection: c.name, Data: data}, nil
}
