package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-1").
		WithValue(map[string]string{"action": "booking_created"}).
		WithEventType("booking_created").
		WithSource("bookings").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if msg.GetEventID() == "" {
		t.Error("event id must be generated")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("timestamp header must be set")
	}
	if msg.GetEventType() != "booking_created" {
		t.Errorf("event type = %q", msg.GetEventType())
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil || decoded["action"] != "booking_created" {
		t.Errorf("DecodeValue = %v, %v", decoded, err)
	}
}

func TestMessageBuilder_ReportsEncodingErrors(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("GetRetryCount() = %d, want 12", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("mongo down", errors.New("x")), ErrorTypeTransient},
		{"explicit permanent", NewPermanentError("bad payload", errors.New("x")), ErrorTypePermanent},
		{"wrapped deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), ErrorTypeTransient},
		{"connection reset text", errors.New("read tcp: Connection Reset by peer"), ErrorTypeTransient},
		{"unknown", errors.New("something odd"), ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("timeout", nil)
	if !ShouldRetry(transient, 0, 3) {
		t.Error("transient error under the limit must be retried")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("retries must stop at the limit")
	}
	if ShouldRetry(NewPermanentError("bad", nil), 0, 3) {
		t.Error("permanent errors must not be retried")
	}
}
