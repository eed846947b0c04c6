package audit

import (
	"context"
	"fmt"

	"flightbook/pkg/kafka"
	"flightbook/pkg/model"
)

const (
	eventSource   = "flightbook-bookings"
	schemaVersion = "1"
)

// Publisher is the part of kafka.Producer the writer needs.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

// KafkaWriter forwards entries to the audit topic, keyed by entity id so the
// history of one booking stays ordered within a partition.
type KafkaWriter struct {
	publisher Publisher
}

func NewKafkaWriter(publisher Publisher) *KafkaWriter {
	return &KafkaWriter{publisher: publisher}
}

func (w *KafkaWriter) Write(ctx context.Context, entry *model.AuditLog) error {
	msg, err := kafka.NewMessage().
		WithKey(entry.Entity + ":" + entry.EntityID).
		WithValue(entry).
		WithEventType(entry.Action).
		WithSource(eventSource).
		WithSchemaVersion(schemaVersion).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build audit message: %w", err)
	}
	return w.publisher.Publish(ctx, msg)
}

// ConsumerHandler stores audit events read from Kafka using writer. The
// event id becomes the entry id.
func ConsumerHandler(writer Writer) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var entry model.AuditLog
		if err := msg.DecodeValue(&entry); err != nil {
			return kafka.NewPermanentError("failed to decode audit event", err)
		}
		if entry.Action == "" || entry.EntityID == "" {
			return kafka.NewPermanentError("audit event is missing action or entity id", nil)
		}
		if id := msg.GetEventID(); id != "" {
			entry.ID = id
		}

		if err := writer.Write(ctx, &entry); err != nil {
			return kafka.NewTransientError("failed to store audit event", err)
		}
		return nil
	}
}
