package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/store"
)

const (
	OutboxCollection     = "outbox"
	DeadLetterCollection = "outbox:dead"
	EventOrderConfirmed  = "OrderConfirmed"
)

type Event struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
}

type OrderConfirmedPayload struct {
	OrderID           string               `json:"order_id"`
	Owner             string               `json:"owner"`
	Items             []domain.LineItem    `json:"items"`
	Total             decimal.Decimal      `json:"total"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	PaymentStatus     domain.PaymentStatus `json:"payment_status"`
	CreatedAt         time.Time            `json:"created_at"`
	EstimatedDelivery time.Time            `json:"estimated_delivery"`
}

// Outbox queues order events in the store until the poller hands them to a Sink.
type Outbox struct {
	mu         sync.Mutex
	store      store.Store
	collection *store.Collection[Event]
	dead       *store.Collection[Event]
	now        func() time.Time
}

func NewOutbox(s store.Store, logger zerolog.Logger) *Outbox {
	return &Outbox{
		store:      s,
		collection: store.NewCollection[Event](s, OutboxCollection, logger),
		dead:       store.NewCollection[Event](s, DeadLetterCollection, logger),
		now:        time.Now,
	}
}

// PublishOrderConfirmed enqueues an OrderConfirmed event for order.
func (o *Outbox) PublishOrderConfirmed(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(OrderConfirmedPayload{
		OrderID:           order.OrderID,
		Owner:             order.Owner,
		Items:             order.Items,
		Total:             order.Total,
		PaymentMethod:     order.PaymentMethod,
		PaymentStatus:     order.PaymentStatus,
		CreatedAt:         order.CreatedAt,
		EstimatedDelivery: order.EstimatedDelivery,
	})
	if err != nil {
		return fmt.Errorf("marshal order confirmed payload: %w", err)
	}

	return o.enqueue(ctx, Event{
		ID:        uuid.NewString(),
		OrderID:   order.OrderID,
		Type:      EventOrderConfirmed,
		Payload:   payload,
		CreatedAt: o.now().UTC(),
	})
}

func (o *Outbox) enqueue(ctx context.Context, ev Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	events, err := o.collection.LoadStrict(ctx)
	if err != nil {
		return err
	}
	return o.collection.Save(ctx, append(events, ev))
}

// Pending returns up to limit queued events, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Event, error) {
	events, err := o.collection.Load(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// MarkProcessed drops delivered events from the queue.
func (o *Outbox) MarkProcessed(ctx context.Context, ids ...string) error {
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	return o.update(ctx, func(events []Event) []Event {
		kept := events[:0]
		for _, ev := range events {
			if !done[ev.ID] {
				kept = append(kept, ev)
			}
		}
		return kept
	})
}

// MarkFailed bumps the attempt counter of an event that could not be delivered.
func (o *Outbox) MarkFailed(ctx context.Context, id string) error {
	return o.update(ctx, func(events []Event) []Event {
		for i := range events {
			if events[i].ID == id {
				events[i].Attempts++
			}
		}
		return events
	})
}

// MarkDead moves an event out of the queue into the dead-letter collection.
// Without batch support the dead letter is written first, so a failure in between
// leaves the event parked and still queued rather than lost.
func (o *Outbox) MarkDead(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	events, err := o.collection.LoadStrict(ctx)
	if err != nil {
		return err
	}
	parked, err := o.dead.LoadStrict(ctx)
	if err != nil {
		return err
	}

	kept := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.ID == id {
			parked = append(parked, ev)
			continue
		}
		kept = append(kept, ev)
	}
	if len(kept) == len(events) {
		return nil
	}

	deadWrite, err := o.dead.Write(parked)
	if err != nil {
		return err
	}
	queueWrite, err := o.collection.Write(kept)
	if err != nil {
		return err
	}

	err = store.Apply(ctx, o.store, deadWrite, queueWrite)
	if errors.Is(err, store.ErrBatchUnsupported) {
		if err = o.dead.Save(ctx, parked); err == nil {
			err = o.collection.Save(ctx, kept)
		}
	}
	return err
}

// DeadLetters returns the events that were given up on.
func (o *Outbox) DeadLetters(ctx context.Context) ([]Event, error) {
	return o.dead.Load(ctx)
}

func (o *Outbox) update(ctx context.Context, fn func([]Event) []Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	events, err := o.collection.LoadStrict(ctx)
	if err != nil {
		return err
	}
	return o.collection.Save(ctx, fn(events))
}
