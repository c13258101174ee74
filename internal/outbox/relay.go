// Package outbox relays the appointment event log to Kafka.
package outbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/hackgods/healthcare-scheduling/internal/appointment"
)

// Store is the event log as the relay sees it.
type Store interface {
	UnpublishedEvents(ctx context.Context, limit int) ([]appointment.EventLog, error)
	MarkEventsPublished(ctx context.Context, ids []int64) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	TopicPrefix string
	BatchSize   int
}

type Relay struct {
	store     Store
	writer    MessageWriter
	log       zerolog.Logger
	prefix    string
	batchSize int
}

// NewKafkaWriter builds the writer used in production. Messages carry their
// own topic and are spread over partitions by key.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// NewRelay returns nil when writer is nil. A nil *Relay is a valid disabled
// relay.
func NewRelay(store Store, writer MessageWriter, log zerolog.Logger, cfg Config) *Relay {
	if writer == nil {
		return nil
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "scheduling"
	}
	return &Relay{
		store:     store,
		writer:    writer,
		log:       log.With().Str("component", "outbox").Logger(),
		prefix:    cfg.TopicPrefix,
		batchSize: cfg.BatchSize,
	}
}

// Topic is the kafka topic an event type is published to.
func (r *Relay) Topic(eventType string) string {
	return r.prefix + "." + eventType
}

// Close releases the writer. Run closes it on its own when ctx is done.
func (r *Relay) Close() error {
	if r == nil {
		return nil
	}
	return r.writer.Close()
}

// Run publishes a batch every interval until ctx is done.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	if r == nil {
		return
	}
	defer r.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.PublishBatch(ctx); err != nil {
				r.log.Error().Err(err).Msg("outbox publish failed")
			}
		}
	}
}

// PublishBatch writes up to one batch of unpublished events and marks them
// published. Delivery is at least once: a crash between the write and the
// mark republishes the batch with the same event ids.
func (r *Relay) PublishBatch(ctx context.Context) (int, error) {
	if r == nil {
		return 0, nil
	}

	events, err := r.store.UnpublishedEvents(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, r.message(ev))
		ids = append(ids, ev.ID)
	}

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write %d events: %w", len(msgs), err)
	}
	if err := r.store.MarkEventsPublished(ctx, ids); err != nil {
		return 0, err
	}

	r.log.Debug().Int("count", len(ids)).Msg("events published")
	return len(ids), nil
}

func (r *Relay) message(ev appointment.EventLog) kafka.Message {
	var key []byte
	if ev.AppointmentID != nil {
		key = []byte(strconv.FormatInt(*ev.AppointmentID, 10))
	}
	return kafka.Message{
		Topic: r.Topic(ev.EventType),
		Key:   key,
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID.String())},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}
}
