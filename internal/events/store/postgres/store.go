// Package postgres implements the event store as a transactional outbox.
// Events are inserted into the outbox table and drained to Kafka by the
// outbox worker; Kafka is the downstream source of truth for notifications.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tessera/internal/events"
	"tessera/pkg/domain"
)

// Schema is the DDL for the outbox table. Applied by deployment tooling; kept
// here so integration tests can create the table.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_outbox (
	id            UUID PRIMARY KEY,
	subject       TEXT NOT NULL,
	action        TEXT NOT NULL,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	published_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS ledger_outbox_unpublished
	ON ledger_outbox (created_at) WHERE published_at IS NULL;
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON structure published to Kafka. Field names match
// events.Event so consumers can deserialize directly.
type payload struct {
	ID         string `json:"ID"`
	Timestamp  string `json:"Timestamp"`
	Actor      string `json:"Actor,omitempty"`
	Subject    string `json:"Subject,omitempty"`
	Action     string `json:"Action"`
	Old        string `json:"Old,omitempty"`
	New        string `json:"New,omitempty"`
	Amount     uint64 `json:"Amount,omitempty"`
	FromGroup  uint64 `json:"FromGroup,omitempty"`
	ToGroup    uint64 `json:"ToGroup,omitempty"`
	Asset      string `json:"Asset,omitempty"`
	SnapshotID uint64 `json:"SnapshotID,omitempty"`
}

// Append writes an event to the outbox for Kafka publishing.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	entryID := uuid.New()
	body, err := json.Marshal(payload{
		ID:         entryID.String(),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Actor:      string(event.Actor),
		Subject:    string(event.Subject),
		Action:     string(event.Action),
		Old:        event.Old,
		New:        event.New,
		Amount:     event.Amount,
		FromGroup:  event.FromGroup,
		ToGroup:    event.ToGroup,
		Asset:      string(event.Asset),
		SnapshotID: uint64(event.SnapshotID),
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	const query = `
		INSERT INTO ledger_outbox (id, subject, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query,
		entryID,
		string(event.Subject),
		string(event.Action),
		body,
		time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// List returns events for a subject, newest first. An empty subject returns
// everything.
func (s *Store) List(ctx context.Context, subject string) ([]events.Event, error) {
	const base = `
		SELECT payload FROM ledger_outbox
	`
	var (
		rows *sql.Rows
		err  error
	)
	if subject == "" {
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY created_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, base+` WHERE subject = $1 ORDER BY created_at DESC`, subject)
	}
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		var p payload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		out = append(out, events.Event{
			Timestamp:  ts,
			Actor:      domain.Address(p.Actor),
			Subject:    domain.Address(p.Subject),
			Action:     events.Action(p.Action),
			Old:        p.Old,
			New:        p.New,
			Amount:     p.Amount,
			FromGroup:  p.FromGroup,
			ToGroup:    p.ToGroup,
			Asset:      domain.Address(p.Asset),
			SnapshotID: domain.SnapshotID(p.SnapshotID),
		})
	}
	return out, rows.Err()
}

// NextBatch returns up to limit unpublished entries in insertion order.
func (s *Store) NextBatch(ctx context.Context, limit int) ([]events.OutboxRow, error) {
	const query = `
		SELECT id, payload FROM ledger_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished outbox: %w", err)
	}
	defer rows.Close()

	var batch []events.OutboxRow
	for rows.Next() {
		var row events.OutboxRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, row)
	}
	return batch, rows.Err()
}

// MarkPublished stamps the given entries as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `
		UPDATE ledger_outbox SET published_at = $1 WHERE id = ANY($2)
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), pq.Array(ids)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
