package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
)

type mockOrders struct {
	mu       sync.Mutex
	created  []*domain.Order
	err      error
	existing map[string]bool
}

func (m *mockOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.existing[order.OrderID] {
		return orders.ErrOrderExists
	}
	m.created = append(m.created, order.Clone())
	return nil
}

func (m *mockOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

type mockPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (m *mockPublisher) PublishOrderConfirmed(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, order.OrderID)
	return nil
}

// mockCart is a Cart whose ClearCart can fail.
type mockCart struct {
	items    []domain.LineItem
	clearErr error
	// clearFailures makes that many ClearCart calls fail with clearErr before one succeeds
	clearFailures int
	clearCalls    int
	cleared       bool
}

func (m *mockCart) Owner() string { return "user-123" }

func (m *mockCart) Cart() []domain.LineItem { return domain.CloneLineItems(m.items) }

func (m *mockCart) ClearCart(context.Context) error {
	m.clearCalls++
	if m.clearErr != nil && (m.clearFailures == 0 || m.clearCalls <= m.clearFailures) {
		return m.clearErr
	}
	m.cleared = true
	m.items = nil
	return nil
}

var errDatabaseDown = errors.New("database down")
