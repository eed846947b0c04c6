package model

import "time"

const (
	EntitySeat    = "seat"
	EntityBooking = "booking"
	EntityPayment = "payment"
)

const (
	ActionSeatsHeld              = "seats_held"
	ActionSeatsReleased          = "seats_released"
	ActionSeatsCommitted         = "seats_committed"
	ActionSeatBlocked            = "seat_blocked"
	ActionSeatUnblocked          = "seat_unblocked"
	ActionBookingCreated         = "booking_created"
	ActionBookingConfirmed       = "booking_confirmed"
	ActionBookingCancelled       = "booking_cancelled"
	ActionBookingCompleted       = "booking_completed"
	ActionPaymentInitiated       = "payment_initiated"
	ActionPaymentPaid            = "payment_paid"
	ActionPaymentFailed          = "payment_failed"
	ActionPaymentRefunded        = "payment_refunded"
	ActionReconciliationRequired = "reconciliation_required"
)

// SystemActor is recorded when a transition is not driven by a user request.
const SystemActor = "system"

// AuditLog is an append-only trace of a state transition.
type AuditLog struct {
	ID         string         `json:"id,omitempty" bson:"_id,omitempty"`
	Action     string         `json:"action" bson:"action"`
	Entity     string         `json:"entity" bson:"entity"`
	EntityID   string         `json:"entity_id" bson:"entity_id"`
	ActingUser string         `json:"acting_user" bson:"acting_user"`
	Changes    map[string]any `json:"changes,omitempty" bson:"changes,omitempty"`
	Timestamp  time.Time      `json:"timestamp" bson:"timestamp"`
}

// SweepLock is a lease document that keeps a single sweeper active across replicas.
type SweepLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
