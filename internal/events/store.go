package events

import "context"

// Store persists emitted events. Implementations: memory (tests), postgres
// (transactional outbox drained to Kafka by the worker).
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, subject string) ([]Event, error)
}

// Outbox extends Store with the operations the drain worker needs. Only the
// Postgres store implements it.
type Outbox interface {
	Store
	// NextBatch returns up to limit unpublished events in insertion order.
	NextBatch(ctx context.Context, limit int) ([]OutboxRow, error)
	// MarkPublished marks the given outbox rows as delivered.
	MarkPublished(ctx context.Context, ids []string) error
}

// OutboxRow is one undelivered outbox entry.
type OutboxRow struct {
	ID      string
	Payload []byte
}
