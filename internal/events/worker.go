package events

import (
	"context"
	"log/slog"
	"time"
)

// Sink receives drained outbox rows. Implemented by the Kafka producer.
type Sink interface {
	Publish(ctx context.Context, row OutboxRow) error
}

// Worker drains unpublished outbox entries to a sink. Delivery is
// at-least-once: an entry is marked published only after the sink ack, so a
// crash between the two replays it.
type Worker struct {
	outbox    Outbox
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(outbox Outbox, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{
		outbox:    outbox,
		sink:      sink,
		logger:    logger,
		interval:  time.Second,
		batchSize: 100,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	for {
		batch, err := w.outbox.NextBatch(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		published := make([]string, 0, len(batch))
		for _, row := range batch {
			if err := w.sink.Publish(ctx, row); err != nil {
				// Mark what made it through, retry the rest next tick.
				if markErr := w.outbox.MarkPublished(ctx, published); markErr != nil {
					return markErr
				}
				return err
			}
			published = append(published, row.ID)
		}
		if err := w.outbox.MarkPublished(ctx, published); err != nil {
			return err
		}
		if len(batch) < w.batchSize {
			return nil
		}
	}
}
