// Package documents renders tickets and invoices from committed booking
// state. Rendering is pure: it reads its arguments and nothing else.
package documents

import (
	"errors"

	"flightbook/pkg/model"
)

var (
	ErrNotIssuable = errors.New("documents are issued only for confirmed or completed bookings")
	ErrNotPaid     = errors.New("invoices are issued only for paid or refunded payments")
)

type Renderer interface {
	// Ticket returns a PNG boarding document.
	Ticket(booking *model.Booking) ([]byte, error)
	// Invoice returns a plain-text invoice.
	Invoice(payment *model.Payment, booking *model.Booking) ([]byte, error)
}

type renderer struct{}

func NewRenderer() Renderer {
	return renderer{}
}

func issuable(booking *model.Booking) bool {
	return booking.Status == model.BookingConfirmed || booking.Status == model.BookingCompleted
}
