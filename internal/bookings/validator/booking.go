package validator

import (
	"fmt"

	"flightbook/pkg/logger"
	"flightbook/pkg/model"
	"flightbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

// ValidateRequest checks a booking attempt before any seat is touched.
func (v *BookingValidator) ValidateRequest(req *model.CreateBookingRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	if len(req.Passengers) != len(req.SeatNumbers) {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "seat_numbers",
				Message: fmt.Sprintf("passenger count (%d) must match seat count (%d)", len(req.Passengers), len(req.SeatNumbers)),
			},
		}
	}

	return nil
}

// Validate checks an assembled booking, including every seat snapshot.
func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := validation.Struct(v.validate, booking); err != nil {
		return err
	}

	if booking.TotalAmount != model.SumSeatPrices(booking.Passengers) {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "total_amount",
				Message: "total_amount must equal the sum of seat prices",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateCancel(req *model.CancelBookingRequest) error {
	return validation.Struct(v.validate, req)
}
