package validation

import (
	"errors"
	"testing"

	apperrors "flightbook/pkg/errors"
	"flightbook/pkg/logger"
)

type seatRequest struct {
	Numbers []string `json:"seat_numbers" validate:"required,min=1,unique,dive,seat_number"`
	Email   string   `json:"contact_email" validate:"required,email"`
}

func TestIsSeatNumber(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1A", true},
		{"12K", true},
		{"123C", true},
		{"0A", false},
		{"12L", false},
		{"12a", false},
		{"A12", false},
		{"1234A", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsSeatNumber(tt.input); got != tt.want {
				t.Errorf("IsSeatNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStruct_TranslatesFieldErrors(t *testing.T) {
	v := New(logger.Discard())

	err := Struct(v, &seatRequest{Numbers: []string{"12A", "99Z"}, Email: "nope"})
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	if !fields["seat_numbers[1]"] || !fields["contact_email"] {
		t.Errorf("unexpected fields: %v", errs)
	}
}

func TestStruct_RejectsDuplicates(t *testing.T) {
	v := New(logger.Discard())
	if err := Struct(v, &seatRequest{Numbers: []string{"1A", "1A"}, Email: "a@b.co"}); err == nil {
		t.Error("duplicate seat numbers must fail")
	}
}

func TestStruct_Valid(t *testing.T) {
	v := New(logger.Discard())
	if err := Struct(v, &seatRequest{Numbers: []string{"1A", "1B"}, Email: "a@b.co"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrors_ToAppError(t *testing.T) {
	appErr := ValidationErrors{{Field: "passengers", Message: "mismatch"}}.ToAppError("Booking validation failed")
	if appErr.Code != apperrors.CodeValidation {
		t.Errorf("code = %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].(map[string]string)
	if !ok || fields["passengers"] != "mismatch" {
		t.Errorf("details = %v", appErr.Details)
	}
}
