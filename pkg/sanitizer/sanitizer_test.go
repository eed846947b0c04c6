package sanitizer

import (
	"reflect"
	"testing"
)

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid E.164 format", "+972541234567", "+972541234567"},
		{"with spaces", "+972 54 123 4567", "+972541234567"},
		{"with dashes", "+972-54-123-4567", "+972541234567"},
		{"with parentheses", "+1 (650) 253-0000", "+16502530000"},
		{"leading and trailing spaces", "  +16502530000  ", "+16502530000"},
		{"national format", "650-253-0000", "+16502530000"},
		{"too short to dial", "+1 650 253", "+1 650 253"},
		{"empty string", "", ""},
		{"only whitespace", "   ", ""},
		{"not a phone number", "call me", "call me"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizePhone(tt.input); got != tt.want {
				t.Errorf("SanitizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeSeatNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12A", "12A"},
		{"12a", "12A"},
		{" 3c ", "3C"},
		{"12-B", "12B"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeSeatNumber(tt.input); got != tt.want {
				t.Errorf("SanitizeSeatNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeSeatNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"keeps order", []string{"12B", "12A"}, []string{"12B", "12A"}},
		{"removes duplicates after normalizing", []string{"12a", "12A ", "12b"}, []string{"12A", "12B"}},
		{"drops empty values", []string{"", "  ", "1A"}, []string{"1A"}},
		{"empty input", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeSeatNumbers(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SanitizeSeatNumbers(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Ada  ", "Ada"},
		{"multiple spaces between words", "Mary    Ann", "Mary Ann"},
		{"tabs and newlines", "Mary\t\nAnn", "Mary Ann"},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve accents", " Zoë O'Brien ", "Zoë O'Brien"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeEmailAndCodes(t *testing.T) {
	if got := SanitizeEmail("  Ada@Example.COM "); got != "ada@example.com" {
		t.Errorf("SanitizeEmail = %q", got)
	}
	if got := SanitizeFlightID(" ba117 "); got != "BA117" {
		t.Errorf("SanitizeFlightID = %q", got)
	}
	if got := SanitizeReference(" k7m2qp"); got != "K7M2QP" {
		t.Errorf("SanitizeReference = %q", got)
	}
	if got := SanitizeCurrency("usd"); got != "USD" {
		t.Errorf("SanitizeCurrency = %q", got)
	}
}

func TestSanitizers_Idempotent(t *testing.T) {
	inputs := []string{" 12a ", "+1 (650) 253-0000", "  Mary   Ann ", "Ada@Example.com"}
	strategies := map[string]Strategy{
		"seat":  SanitizeSeatNumber,
		"phone": SanitizePhone,
		"name":  SanitizeName,
		"email": SanitizeEmail,
	}

	for name, fn := range strategies {
		for _, in := range inputs {
			once := fn(in)
			if twice := fn(once); twice != once {
				t.Errorf("%s not idempotent for %q: %q then %q", name, in, once, twice)
			}
		}
	}
}

func TestSanitizeFreeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"collapses whitespace", "  changed \n\n plans ", 0, "changed plans"},
		{"drops control characters", "late\x00 flight\x07", 0, "late flight"},
		{"cuts to rune limit", "überbooked flight", 5, "überb"},
		{"trims after cut", "sick child", 5, "sick"},
		{"short input untouched", "ok", 10, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFreeText(tt.input, tt.max); got != tt.want {
				t.Errorf("SanitizeFreeText(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
