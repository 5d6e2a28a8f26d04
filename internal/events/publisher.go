package events

import (
	"context"
	"log/slog"
	"time"
)

// Publisher emits notification events with fail-closed semantics: the write
// must succeed before the calling operation commits. Ledger mutations run
// their event emission after all invariant checks, so a failed append aborts
// the operation with no partial state.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher writing to the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends an event, stamping the time when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "event append failed",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return err
	}
	return nil
}
