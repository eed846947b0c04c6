package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "resource not found"},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"seat unavailable", SeatUnavailable("taken", []string{"12A"}), CodeSeatUnavailable, http.StatusConflict},
		{"seat not found", SeatNotFound("LY001", "99Z"), CodeSeatNotFound, http.StatusNotFound},
		{"invalid transition", InvalidTransition("Booking", "cancelled", "confirmed"), CodeInvalidTransition, http.StatusConflict},
		{"amount mismatch", AmountMismatch(450, 400), CodeAmountMismatch, http.StatusUnprocessableEntity},
		{"hold expired", HoldExpired("too late"), CodeHoldExpired, http.StatusGone},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"conflict", Conflict("exists"), CodeConflict, http.StatusConflict},
		{"unavailable", Unavailable("MongoDB", nil), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestAmountMismatch_Details(t *testing.T) {
	err := AmountMismatch(450, 400)
	if err.Details["expected"] != int64(450) || err.Details["got"] != int64(400) {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestWithCause_ErrorsIs(t *testing.T) {
	sentinel := errors.New("seat unavailable")
	appErr := SeatUnavailable("taken", []string{"1A"}).WithCause(sentinel)
	wrapped := fmt.Errorf("reserve: %w", appErr)

	if !errors.Is(wrapped, sentinel) {
		t.Errorf("errors.Is should find the domain cause through AppError")
	}
	if !HasCode(wrapped, CodeSeatUnavailable) {
		t.Errorf("HasCode should see the wrapped AppError code")
	}
	if HasCode(errors.New("plain"), CodeSeatUnavailable) {
		t.Errorf("HasCode should be false for non-AppError values")
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("Booking")

	if !IsAppError(appErr) {
		t.Errorf("IsAppError() should return true for AppError")
	}
	if !IsAppError(fmt.Errorf("context: %w", appErr)) {
		t.Errorf("IsAppError() should unwrap wrapped AppError")
	}
	if IsAppError(errors.New("regular error")) {
		t.Errorf("IsAppError() should return false for regular error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	jsonStr := string(NotFoundWithID("Booking", "12345").ToJSON())

	if !strings.Contains(jsonStr, "NOT_FOUND") {
		t.Errorf("ToJSON() should contain error code")
	}
	if !strings.Contains(jsonStr, "12345") {
		t.Errorf("ToJSON() should contain details")
	}
}
