// Package notifications delivers booking emails. Delivery failures are
// reported to the caller, which logs them and carries on.
package notifications

import (
	"context"

	"flightbook/pkg/logger"
)

const (
	KindBookingConfirmed = "booking_confirmed"
	KindBookingCancelled = "booking_cancelled"
)

type Email struct {
	Kind      string `json:"kind"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Reference string `json:"reference,omitempty"`
}

type Dispatcher interface {
	Send(ctx context.Context, email Email) error
}

// LogDispatcher writes emails to the log. Used when no broker is configured.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(_ context.Context, email Email) error {
	d.log.Info("Email dispatched",
		"kind", email.Kind,
		"to", email.To,
		"subject", email.Subject,
		"reference", email.Reference,
	)
	return nil
}
