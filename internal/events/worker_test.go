package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
)

type stubOutbox struct {
	rows      []OutboxRow
	published []string
}

func (s *stubOutbox) Append(context.Context, Event) error { return nil }

func (s *stubOutbox) List(context.Context, string) ([]Event, error) { return nil, nil }

func (s *stubOutbox) NextBatch(_ context.Context, limit int) ([]OutboxRow, error) {
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func (s *stubOutbox) MarkPublished(_ context.Context, ids []string) error {
	s.published = append(s.published, ids...)
	remaining := s.rows[:0]
	for _, row := range s.rows {
		keep := true
		for _, id := range ids {
			if row.ID == id {
				keep = false
			}
		}
		if keep {
			remaining = append(remaining, row)
		}
	}
	s.rows = remaining
	return nil
}

type stubSink struct {
	seen   []string
	failOn string
}

func (s *stubSink) Publish(_ context.Context, row OutboxRow) error {
	if row.ID == s.failOn {
		return errors.New("broker unavailable")
	}
	s.seen = append(s.seen, row.ID)
	return nil
}

type WorkerSuite struct {
	suite.Suite
	outbox *stubOutbox
	sink   *stubSink
	worker *Worker
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.outbox = &stubOutbox{}
	s.sink = &stubSink{}
	s.worker = NewWorker(s.outbox, s.sink, slog.Default())
}

func (s *WorkerSuite) TestDrainPublishesAndMarks() {
	s.outbox.rows = []OutboxRow{
		{ID: "a", Payload: []byte(`{}`)},
		{ID: "b", Payload: []byte(`{}`)},
	}

	s.Require().NoError(s.worker.drain(context.Background()))
	s.Equal([]string{"a", "b"}, s.sink.seen)
	s.Equal([]string{"a", "b"}, s.outbox.published)
	s.Empty(s.outbox.rows)
}

func (s *WorkerSuite) TestDrainEmptyOutboxIsNoop() {
	s.Require().NoError(s.worker.drain(context.Background()))
	s.Empty(s.sink.seen)
}

func (s *WorkerSuite) TestSinkFailureLeavesRowUnmarked() {
	s.outbox.rows = []OutboxRow{
		{ID: "a", Payload: []byte(`{}`)},
		{ID: "b", Payload: []byte(`{}`)},
	}
	s.sink.failOn = "b"

	err := s.worker.drain(context.Background())
	s.Error(err)

	// The delivered row was marked; the failed one stays for the next pass.
	s.Equal([]string{"a"}, s.outbox.published)
	s.Require().Len(s.outbox.rows, 1)
	s.Equal("b", s.outbox.rows[0].ID)
}
