package model

import (
	"slices"
	"time"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var paymentTransitions = map[string][]string{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
}

func CanTransitionPayment(from, to string) bool {
	return slices.Contains(paymentTransitions[from], to)
}

type Payment struct {
	ID            string     `json:"id" bson:"_id"`
	BookingID     string     `json:"booking_id" bson:"booking_id"`
	Amount        int64      `json:"amount" bson:"amount"`
	Currency      string     `json:"currency" bson:"currency"`
	Method        string     `json:"method" bson:"method"`
	Status        string     `json:"status" bson:"status"`
	TransactionID string     `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty" bson:"refunded_at,omitempty"`
}

type PaymentOutcomeRequest struct {
	Outcome       string `json:"outcome" validate:"required,oneof=success failure"`
	TransactionID string `json:"transaction_id" validate:"required,min=4,max=128"`
	Reason        string `json:"reason,omitempty" validate:"omitempty,max=200"`
}

// PaymentInstructions is what the client needs to complete a pending payment.
type PaymentInstructions struct {
	PaymentID string    `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}
