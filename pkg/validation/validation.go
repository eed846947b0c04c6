// Package validation holds the struct validator shared by every domain
// validator, its custom tags and the translation of validator errors into
// field-level messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/logger"

	"github.com/go-playground/validator/v10"
)

var seatNumberRegex = regexp.MustCompile(`^[1-9][0-9]{0,2}[A-K]$`)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ToAppError renders the field errors as a VALIDATION_ERROR response.
func (v ValidationErrors) ToAppError(message string) *apperrors.AppError {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return apperrors.Validation(message, map[string]any{"fields": fields})
}

// New returns a validator with the custom tags registered. Field names in
// errors use the json tag so they match the request body.
func New(log *logger.Logger) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("seat_number", validateSeatNumber); err != nil {
		log.Fatal("Failed to register 'seat_number' validator", "error", err)
	}

	return v
}

// IsSeatNumber reports whether s is a row number followed by a column letter A-K.
func IsSeatNumber(s string) bool {
	return seatNumberRegex.MatchString(s)
}

func validateSeatNumber(fl validator.FieldLevel) bool {
	return IsSeatNumber(fl.Field().String())
}

// Struct validates s and returns ValidationErrors for field failures.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Translate(validationErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := strings.TrimPrefix(err.Namespace(), rootNamespace(err.Namespace()))
		if field == "" {
			field = err.Field()
		}

		message := err.Error()
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must have length %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +16502530000)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "unique":
			message = fmt.Sprintf("%s must not contain duplicates", err.Field())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in the format %s", err.Field(), err.Param())
		case "seat_number":
			message = fmt.Sprintf("%s must be a row number followed by a column letter A-K (e.g., 12A)", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// rootNamespace returns the struct name prefix ("CreateBookingRequest.") of ns.
func rootNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[:i+1]
	}
	return ""
}
