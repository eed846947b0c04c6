package validator

import (
	"flightbook/pkg/logger"
	"flightbook/pkg/model"
	"flightbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type PaymentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPaymentValidator(log *logger.Logger) *PaymentValidator {
	return &PaymentValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *PaymentValidator) ValidateOutcome(req *model.PaymentOutcomeRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *PaymentValidator) ValidateMethod(method string) error {
	if err := v.validate.Var(method, "required,oneof=card paypal bank_transfer"); err != nil {
		return validation.ValidationErrors{
			validation.ValidationError{Field: "payment_method", Message: "payment_method must be one of: card paypal bank_transfer"},
		}
	}
	return nil
}
