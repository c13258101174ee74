package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/hackgods/healthcare-scheduling/internal/appointment"
)

type mockStore struct {
	events    []appointment.EventLog
	published map[int64]bool
}

func (m *mockStore) UnpublishedEvents(_ context.Context, limit int) ([]appointment.EventLog, error) {
	var out []appointment.EventLog
	for _, ev := range m.events {
		if m.published[ev.ID] {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) MarkEventsPublished(_ context.Context, ids []int64) error {
	for _, id := range ids {
		m.published[id] = true
	}
	return nil
}

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func newStore(n int) *mockStore {
	s := &mockStore{published: make(map[int64]bool)}
	for i := 1; i <= n; i++ {
		apptID := int64(100 + i)
		s.events = append(s.events, appointment.EventLog{
			ID:            int64(i),
			EventID:       uuid.New(),
			EventType:     appointment.EventAppointmentBooked,
			AppointmentID: &apptID,
			Payload:       []byte(`{"appointment_id":1}`),
			CreatedAt:     time.Now(),
		})
	}
	return s
}

func TestPublishBatch_WritesAndMarks(t *testing.T) {
	store := newStore(3)
	writer := &mockWriter{}
	relay := NewRelay(store, writer, zerolog.Nop(), Config{TopicPrefix: "clinic", BatchSize: 2})

	n, err := relay.PublishBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || len(writer.msgs) != 2 {
		t.Fatalf("expected a batch of 2, published %d and wrote %d", n, len(writer.msgs))
	}

	msg := writer.msgs[0]
	if msg.Topic != "clinic.APPOINTMENT_BOOKED" {
		t.Fatalf("unexpected topic %s", msg.Topic)
	}
	if string(msg.Key) != "101" {
		t.Fatalf("expected key to be the appointment id, got %s", msg.Key)
	}
	if len(msg.Headers) != 2 || msg.Headers[0].Key != "event_id" || string(msg.Headers[0].Value) != store.events[0].EventID.String() {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	n, _ = relay.PublishBatch(context.Background())
	if n != 1 {
		t.Fatalf("expected the remaining event, got %d", n)
	}
	n, _ = relay.PublishBatch(context.Background())
	if n != 0 {
		t.Fatalf("expected nothing left, got %d", n)
	}
}

func TestPublishBatch_WriteFailureLeavesEventsPending(t *testing.T) {
	store := newStore(2)
	writer := &mockWriter{err: errors.New("broker unreachable")}
	relay := NewRelay(store, writer, zerolog.Nop(), Config{})

	if _, err := relay.PublishBatch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.published) != 0 {
		t.Fatal("events must stay unpublished when the write fails")
	}
}

func TestNilRelayIsDisabled(t *testing.T) {
	relay := NewRelay(newStore(1), nil, zerolog.Nop(), Config{})
	if relay != nil {
		t.Fatal("expected nil relay without a writer")
	}

	n, err := relay.PublishBatch(context.Background())
	if n != 0 || err != nil {
		t.Fatalf("disabled relay should be a no-op, got %d %v", n, err)
	}
	relay.Run(context.Background(), time.Millisecond)
}
