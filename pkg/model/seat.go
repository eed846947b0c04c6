package model

import "time"

const (
	ClassEconomy        = "economy"
	ClassPremiumEconomy = "premium_economy"
	ClassBusiness       = "business"
	ClassFirst          = "first"
)

const (
	BlockMaintenance = "maintenance"
	BlockCleaning    = "cleaning"
	BlockDamaged     = "damaged"
	BlockOther       = "other"
)

// Seat is the live, mutable inventory record. It belongs to exactly one flight.
type Seat struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty"`
	FlightID      string     `json:"flight_id" bson:"flight_id" validate:"required,min=2,max=32"`
	Number        string     `json:"number" bson:"number" validate:"required,seat_number"`
	Class         string     `json:"class" bson:"class" validate:"required,oneof=economy premium_economy business first"`
	Price         int64      `json:"price" bson:"price" validate:"gte=0"`
	Available     bool       `json:"available" bson:"available"`
	Blocked       bool       `json:"blocked" bson:"blocked"`
	BlockReason   string     `json:"block_reason,omitempty" bson:"block_reason,omitempty" validate:"omitempty,oneof=maintenance cleaning damaged other"`
	Features      []string   `json:"features,omitempty" bson:"features,omitempty" validate:"omitempty,max=8,dive,oneof=extra_legroom window aisle exit_row power_outlet"`
	EmergencyExit bool       `json:"emergency_exit" bson:"emergency_exit"`
	HoldID        string     `json:"-" bson:"hold_id,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// Biddable reports whether the seat can be placed on hold.
func (s *Seat) Biddable() bool {
	return s.Available && !s.Blocked
}

func (s *Seat) Snapshot() SeatSnapshot {
	return SeatSnapshot{
		Number: s.Number,
		Class:  s.Class,
		Price:  s.Price,
	}
}

// SeatSnapshot is the point-in-time copy of a seat taken when a hold is placed.
// Later edits to the live seat never change it.
type SeatSnapshot struct {
	Number string `json:"number" bson:"number" validate:"required,seat_number"`
	Class  string `json:"class" bson:"class" validate:"required,oneof=economy premium_economy business first"`
	Price  int64  `json:"price" bson:"price" validate:"gte=0"`
}

// Hold is the result of a successful reservation: every seat in Seats carries
// ID until the hold is committed, released or expires.
type Hold struct {
	ID        string         `json:"id"`
	FlightID  string         `json:"flight_id"`
	ExpiresAt time.Time      `json:"expires_at"`
	Seats     []SeatSnapshot `json:"seats"`
}

type SeatBlockRequest struct {
	Reason string `json:"reason" validate:"required,oneof=maintenance cleaning damaged other"`
}
