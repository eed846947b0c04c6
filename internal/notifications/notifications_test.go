package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"flightbook/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitDispatcher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	d := newRabbitDispatcher(ch, "booking.notifications", logger.Discard())

	err := d.Send(context.Background(), Email{
		Kind:      KindBookingConfirmed,
		To:        "ada@example.com",
		Subject:   "Booking K7M2QP confirmed",
		Reference: "K7M2QP",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(ch.published))
	}
	msg := ch.published[0]
	if ch.keys[0] != "/booking.notifications" {
		t.Errorf("routing = %q", ch.keys[0])
	}
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Errorf("unexpected publishing: %+v", msg)
	}

	var decoded Email
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.Reference != "K7M2QP" || decoded.To != "ada@example.com" {
		t.Errorf("decoded = %+v", decoded)
	}

	if err := d.Close(); err != nil || !ch.closed {
		t.Errorf("Close() did not close the channel")
	}
}

func TestRabbitDispatcher_ReturnsPublishError(t *testing.T) {
	d := newRabbitDispatcher(&fakeChannel{err: errors.New("channel closed")}, "q", logger.Discard())
	if err := d.Send(context.Background(), Email{To: "x@example.com"}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLogDispatcher(t *testing.T) {
	if err := NewLogDispatcher(logger.Discard()).Send(context.Background(), Email{To: "x@example.com"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
}
