package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
	"github.com/sobia-kanwal/closet-on-wheels/internal/orders"
	"github.com/sobia-kanwal/closet-on-wheels/internal/pricing"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrSubmissionFailed  = errors.New("order could not be placed, please try again")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
)

const (
	idAttempts        = 3
	clearCartAttempts = 2
)

// Cart is the part of the cart engine checkout needs.
type Cart interface {
	Owner() string
	Cart() []domain.LineItem
	ClearCart(ctx context.Context) error
}

type OrderWriter interface {
	Create(ctx context.Context, order *domain.Order) error
}

type EventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, order *domain.Order) error
}

// Result reports where a submission ended. Transitions lists every state it went through.
type Result struct {
	State       State            `json:"state"`
	Order       *domain.Order    `json:"order,omitempty"`
	Errors      *ValidationError `json:"validation,omitempty"`
	Transitions []State          `json:"transitions"`
	// CartCleared is false when the order was placed but the cart could not be emptied.
	CartCleared bool `json:"cart_cleared"`
}

type Pipeline struct {
	orders     OrderWriter
	publisher  EventPublisher
	calculator pricing.Calculator
	validator  *Validator
	logger     zerolog.Logger
	now        func() time.Time
	newID      func(time.Time) string
}

func NewPipeline(repo OrderWriter, publisher EventPublisher, calculator pricing.Calculator, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		orders:     repo,
		publisher:  publisher,
		calculator: calculator,
		validator:  NewValidator(),
		logger:     logger,
		now:        time.Now,
		newID:      NewOrderID,
	}
}

// Begin refuses to start a checkout for an empty cart.
func (p *Pipeline) Begin(c Cart) error {
	if len(c.Cart()) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// Preview prices the current cart for the given method without changing anything.
func (p *Pipeline) Preview(c Cart, method domain.PaymentMethod) pricing.Totals {
	return p.calculator.Calculate(c.Cart(), method)
}

// Submit validates the form, stores the order and clears the cart.
//
// Invalid input is not an error: the result is back in editing with field messages. When the
// order cannot be stored the result is also back in editing, the cart is untouched, and the
// returned error wraps ErrSubmissionFailed.
func (p *Pipeline) Submit(ctx context.Context, c Cart, form Form) (*Result, error) {
	if err := p.Begin(c); err != nil {
		return nil, err
	}

	s := newSession()
	if err := s.transition(StateValidating); err != nil {
		return nil, err
	}

	if verr := p.validator.Validate(form); verr != nil {
		if err := s.transition(StateEditing); err != nil {
			return nil, err
		}
		return &Result{State: s.state, Errors: verr, Transitions: s.history}, nil
	}

	if err := s.transition(StateSubmitting); err != nil {
		return nil, err
	}

	log := p.logger.With().Str("owner", c.Owner()).Logger()

	order, err := p.place(ctx, c, form.trimmed())
	if err != nil {
		log.Error().Err(err).Msg("order submission failed")
		if terr := s.transition(StateFailed); terr != nil {
			return nil, terr
		}
		if terr := s.transition(StateEditing); terr != nil {
			return nil, terr
		}
		return &Result{State: s.state, Transitions: s.history}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	log = log.With().Str("order_id", order.OrderID).Logger()

	if err := p.publisher.PublishOrderConfirmed(ctx, order); err != nil {
		log.Warn().Err(err).Msg("failed to publish order confirmed event")
	}

	// the order exists at this point; a cart that still fails to clear is left for the user to empty
	cleared := p.clearCart(ctx, c, log)

	if err := s.transition(StateConfirmed); err != nil {
		return nil, err
	}
	log.Info().Str("total", order.Total.String()).Msg("order confirmed")

	return &Result{State: s.state, Order: order.Clone(), Transitions: s.history, CartCleared: cleared}, nil
}

func (p *Pipeline) clearCart(ctx context.Context, c Cart, log zerolog.Logger) bool {
	var err error
	for attempt := 1; attempt <= clearCartAttempts; attempt++ {
		if err = c.ClearCart(ctx); err == nil {
			return true
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("failed to clear cart after checkout")
	}
	log.Error().Err(err).Msg("cart still holds items of a placed order")
	return false
}

func (p *Pipeline) place(ctx context.Context, c Cart, form Form) (*domain.Order, error) {
	items := c.Cart()
	totals := p.calculator.Calculate(items, form.PaymentMethod)
	createdAt := p.now().UTC()

	paymentStatus := domain.PaymentStatusPaid
	if form.PaymentMethod == domain.PaymentCashOnDelivery {
		paymentStatus = domain.PaymentStatusPending
	}

	order := &domain.Order{
		Owner:             c.Owner(),
		Customer:          form.Customer(),
		Items:             items,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Delivery:          totals.Delivery,
		Total:             totals.Total,
		PaymentMethod:     form.PaymentMethod,
		PaymentStatus:     paymentStatus,
		Status:            domain.OrderStatusConfirmed,
		CreatedAt:         createdAt,
		EstimatedDelivery: createdAt.Add(domain.DeliveryWindow),
		UpdatedAt:         createdAt,
	}

	var err error
	for attempt := 0; attempt < idAttempts; attempt++ {
		order.OrderID = p.newID(createdAt)
		err = p.orders.Create(ctx, order)
		if !errors.Is(err, orders.ErrOrderExists) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}
