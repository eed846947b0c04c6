package validator

import (
	"flightbook/pkg/logger"
	"flightbook/pkg/model"
	"flightbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type SeatValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewSeatValidator(log *logger.Logger) *SeatValidator {
	return &SeatValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *SeatValidator) Validate(seat *model.Seat) error {
	return validation.Struct(v.validate, seat)
}

func (v *SeatValidator) ValidateBlock(req *model.SeatBlockRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateNumbers checks a normalised list of seat numbers.
func (v *SeatValidator) ValidateNumbers(numbers []string) error {
	if len(numbers) == 0 {
		return validation.ValidationErrors{
			{Field: "seat_numbers", Message: "at least one seat number is required"},
		}
	}

	var errs validation.ValidationErrors
	for _, number := range numbers {
		if !validation.IsSeatNumber(number) {
			errs = append(errs, validation.ValidationError{
				Field:   "seat_numbers",
				Message: "invalid seat number " + number,
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
