package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBatchSize   = 100
	defaultMaxAttempts = 10
)

type OutboxPoller struct {
	outbox      *Outbox
	sink        Sink
	eventTick   time.Duration
	batchSize   int
	// events failing this many sends are parked in the dead-letter collection
	maxAttempts int
	logger      zerolog.Logger
}

func NewOutboxPoller(outbox *Outbox, sink Sink, tick time.Duration, logger zerolog.Logger) *OutboxPoller {
	if tick <= 0 {
		tick = time.Second
	}
	return &OutboxPoller{
		outbox:      outbox,
		sink:        sink,
		eventTick:   tick,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
}

// WithMaxAttempts sets how many failed sends an event gets before it is parked.
// n <= 0 retries forever.
func (p *OutboxPoller) WithMaxAttempts(n int) *OutboxPoller {
	p.maxAttempts = n
	return p
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.eventTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processPending sends queued events one by one and returns how many were delivered.
func (p *OutboxPoller) processPending(ctx context.Context) int {
	events, err := p.outbox.Pending(ctx, p.batchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to fetch outbox events")
		return 0
	}

	delivered := 0
	for _, ev := range events {
		if err := p.sink.Send(ctx, ev); err != nil {
			p.logger.Warn().Err(err).
				Str("event_id", ev.ID).
				Int("attempts", ev.Attempts+1).
				Msg("failed to publish event")
			if p.maxAttempts > 0 && ev.Attempts+1 >= p.maxAttempts {
				p.park(ctx, ev)
				continue
			}
			if errMark := p.outbox.MarkFailed(ctx, ev.ID); errMark != nil {
				p.logger.Error().Err(errMark).Str("event_id", ev.ID).Msg("failed to record publish attempt")
			}
			continue
		}

		if err := p.outbox.MarkProcessed(ctx, ev.ID); err != nil {
			p.logger.Error().Err(err).Str("event_id", ev.ID).Msg("failed to mark event as processed")
			continue
		}
		delivered++
	}
	return delivered
}

func (p *OutboxPoller) park(ctx context.Context, ev Event) {
	if err := p.outbox.MarkDead(ctx, ev.ID); err != nil {
		p.logger.Error().Err(err).Str("event_id", ev.ID).Msg("failed to park undeliverable event")
		return
	}
	p.logger.Error().
		Str("event_id", ev.ID).
		Str("order_id", ev.OrderID).
		Int("attempts", ev.Attempts+1).
		Msg("giving up on event, moved to dead letters")
}
