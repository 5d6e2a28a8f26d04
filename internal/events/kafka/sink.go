// Package kafka publishes drained outbox entries to a Kafka topic using
// franz-go. The sink is the downstream half of the transactional outbox:
// at-least-once delivery, with consumers deduplicating on the payload ID.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"tessera/internal/events"
)

// Sink produces outbox payloads to a single topic.
type Sink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Config carries broker and topic settings.
type Config struct {
	Brokers []string
	Topic   string
	// Partitions and ReplicationFactor are used when the topic must be
	// created at startup.
	Partitions        int32
	ReplicationFactor int16
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	partitions := cfg.Partitions
	if partitions == 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication == 0 {
		replication = 1
	}
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, cfg.Topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create topic %s: %w", cfg.Topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}

	return &Sink{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Publish produces one outbox row and waits for the broker ack.
func (s *Sink) Publish(ctx context.Context, row events.OutboxRow) error {
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(row.ID),
		Value: row.Payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce outbox entry %s: %w", row.ID, err)
	}
	return nil
}

// Close flushes and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
