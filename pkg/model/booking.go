package model

import (
	"slices"
	"time"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

// CanTransitionBooking reports whether the booking state machine allows from -> to.
// cancelled and completed are terminal.
func CanTransitionBooking(from, to string) bool {
	return slices.Contains(bookingTransitions[from], to)
}

// BookingSources returns every status from which a booking may move to to.
func BookingSources(to string) []string {
	var sources []string
	for from, targets := range bookingTransitions {
		if slices.Contains(targets, to) {
			sources = append(sources, from)
		}
	}
	slices.Sort(sources)
	return sources
}

type Passenger struct {
	FirstName   string       `json:"first_name" bson:"first_name" validate:"required,min=1,max=60"`
	LastName    string       `json:"last_name" bson:"last_name" validate:"required,min=1,max=60"`
	DateOfBirth string       `json:"date_of_birth" bson:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      string       `json:"gender" bson:"gender" validate:"required,oneof=male female other"`
	Seat        SeatSnapshot `json:"seat" bson:"seat" validate:"required"`
}

type Booking struct {
	ID            string      `json:"id,omitempty" bson:"_id,omitempty"`
	Reference     string      `json:"reference" bson:"reference"`
	UserID        string      `json:"user_id" bson:"user_id" validate:"required,max=64"`
	FlightID      string      `json:"flight_id" bson:"flight_id" validate:"required,min=2,max=32"`
	Passengers    []Passenger `json:"passengers" bson:"passengers" validate:"required,min=1,max=9,dive"`
	TotalAmount   int64       `json:"total_amount" bson:"total_amount" validate:"gte=0"`
	Currency      string      `json:"currency" bson:"currency" validate:"required,len=3"`
	Status        string      `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	ContactEmail  string      `json:"contact_email" bson:"contact_email" validate:"required,email"`
	ContactPhone  string      `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	HoldID        string      `json:"-" bson:"hold_id"`
	HoldExpiresAt time.Time   `json:"hold_expires_at" bson:"hold_expires_at"`
	CancelReason  string      `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt     time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" bson:"updated_at"`
	ConfirmedAt   *time.Time  `json:"confirmed_at,omitempty" bson:"confirmed_at,omitempty"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// IsActive reports whether the booking still owns its seats.
func (b *Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// SeatNumbers returns the seat numbers in passenger order.
func (b *Booking) SeatNumbers() []string {
	numbers := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		numbers = append(numbers, p.Seat.Number)
	}
	return numbers
}

// SumSeatPrices is the booking total as defined by its snapshots.
func SumSeatPrices(passengers []Passenger) int64 {
	var total int64
	for _, p := range passengers {
		total += p.Seat.Price
	}
	return total
}

type PassengerInput struct {
	FirstName   string `json:"first_name" validate:"required,min=1,max=60"`
	LastName    string `json:"last_name" validate:"required,min=1,max=60"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"required,oneof=male female other"`
}

// CreateBookingRequest is the client's booking attempt. Passenger i sits in SeatNumbers[i].
type CreateBookingRequest struct {
	UserID        string           `json:"-" validate:"required,max=64"`
	FlightID      string           `json:"flight_id" validate:"required,min=2,max=32"`
	Passengers    []PassengerInput `json:"passengers" validate:"required,min=1,max=9,dive"`
	SeatNumbers   []string         `json:"seat_numbers" validate:"required,min=1,max=9,unique,dive,seat_number"`
	ContactEmail  string           `json:"contact_email" validate:"required,email"`
	ContactPhone  string           `json:"contact_phone,omitempty" validate:"omitempty,e164"`
	PaymentMethod string           `json:"payment_method" validate:"required,oneof=card paypal bank_transfer"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

// Reservation is returned to the client when a booking attempt succeeds.
type Reservation struct {
	Booking *Booking            `json:"booking"`
	Payment PaymentInstructions `json:"payment"`
}
