package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/pkg/circuitbreaker"
)

const retryAttempts = 2

// Resilient retries every failing call once and guards the backend with a circuit breaker.
type Resilient struct {
	inner      Store
	breaker    *circuitbreaker.Breaker
	logger     zerolog.Logger
	retryDelay time.Duration
}

func NewResilient(inner Store, breaker *circuitbreaker.Breaker, logger zerolog.Logger) *Resilient {
	return &Resilient{
		inner:      inner,
		breaker:    breaker,
		logger:     logger,
		retryDelay: 50 * time.Millisecond,
	}
}

func (r *Resilient) Get(ctx context.Context, collection string) ([]byte, error) {
	return retry(ctx, r, "get", collection, func() ([]byte, error) {
		return r.inner.Get(ctx, collection)
	})
}

func (r *Resilient) Set(ctx context.Context, collection string, data []byte) error {
	_, err := retry(ctx, r, "set", collection, func() (struct{}, error) {
		return struct{}{}, r.inner.Set(ctx, collection, data)
	})
	return err
}

func (r *Resilient) Remove(ctx context.Context, collection string) error {
	_, err := retry(ctx, r, "remove", collection, func() (struct{}, error) {
		return struct{}{}, r.inner.Remove(ctx, collection)
	})
	return err
}

func (r *Resilient) Apply(ctx context.Context, writes []Write) error {
	b, ok := r.inner.(Batcher)
	if !ok {
		return ErrBatchUnsupported
	}
	_, err := retry(ctx, r, "apply", "", func() (struct{}, error) {
		return struct{}{}, b.Apply(ctx, writes)
	})
	return err
}

func retry[T any](ctx context.Context, r *Resilient, op, collection string, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		out, err = circuitbreaker.Execute(r.breaker, fn)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, circuitbreaker.ErrOpen) || attempt == retryAttempts {
			break
		}

		r.logger.Warn().Err(err).
			Str("op", op).
			Str("collection", collection).
			Int("attempt", attempt).
			Msg("store call failed, retrying")

		select {
		case <-ctx.Done():
			return out, errors.Join(err, ctx.Err())
		case <-time.After(r.retryDelay):
		}
	}
	return out, err
}
