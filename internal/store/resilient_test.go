package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first `failures` calls, then delegates to a MemoryStore.
type flakyStore struct {
	*MemoryStore
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyStore) fail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return nil
}

func (f *flakyStore) Get(ctx context.Context, c string) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.MemoryStore.Get(ctx, c)
}

func (f *flakyStore) Set(ctx context.Context, c string, data []byte) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.MemoryStore.Set(ctx, c, data)
}

func newTestResilient(inner Store, failuresToTrip uint32) *Resilient {
	b := circuitbreaker.New(circuitbreaker.Settings{
		Name:                "store",
		ConsecutiveFailures: failuresToTrip,
		OpenTimeout:         time.Minute,
	}, zerolog.Nop())
	r := NewResilient(inner, b, zerolog.Nop())
	r.retryDelay = time.Millisecond
	return r
}

func TestResilient_RetriesOnce(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 1}
	r := newTestResilient(inner, 10)

	require.NoError(t, r.Set(context.Background(), "cart:u1", []byte("[]")))
	assert.Equal(t, 2, inner.calls)

	data, err := r.Get(context.Background(), "cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestResilient_GivesUpAfterSecondFailure(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 5}
	r := newTestResilient(inner, 10)

	err := r.Set(context.Background(), "cart:u1", []byte("[]"))
	require.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 2, inner.calls)
}

func TestResilient_OpenBreakerStopsCalls(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 100}
	r := newTestResilient(inner, 2)

	_ = r.Set(context.Background(), "cart:u1", []byte("[]"))
	calls := inner.calls

	_, err := r.Get(context.Background(), "cart:u1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, calls, inner.calls)
}

func TestResilient_ApplyPassesThrough(t *testing.T) {
	ctx := context.Background()
	r := newTestResilient(NewMemoryStore(), 5)

	require.NoError(t, Apply(ctx, r, Write{Collection: "cart:u1", Data: []byte("[]")}))

	data, err := r.Get(ctx, "cart:u1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	noBatch := newTestResilient(failingStore{}, 5)
	assert.ErrorIs(t, Apply(ctx, noBatch, Write{Collection: "cart:u1"}), ErrBatchUnsupported)
}
