package sanitizer

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	supportedRegions = []string{
		"US",
		"GB",
		"IL",
	}

	reValidPhone   = regexp.MustCompile(`^\+?[0-9][0-9 ()\-.]{6,20}$`)
	reNonSeatChars = regexp.MustCompile(`[^0-9A-Z]+`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}

func SanitizeSeatNumber(input string) string {
	p := Pipeline{
		trim,
		upper,
		func(s string) string { return reNonSeatChars.ReplaceAllString(s, "") },
	}
	return p.Apply(input)
}

func SanitizeFlightID(input string) string {
	return Pipeline{trim, upper}.Apply(input)
}

// SanitizeReference normalises a booking reference typed by a user.
func SanitizeReference(input string) string {
	return Pipeline{trim, upper}.Apply(input)
}

func SanitizeCurrency(input string) string {
	return Pipeline{trim, upper}.Apply(input)
}

func SanitizeEmail(input string) string {
	return Pipeline{trim, lower}.Apply(input)
}

func SanitizeName(input string) string {
	return collapseSpace(input)
}

// SanitizePhone formats a number of plausible length as E.164. Numbers in
// ranges the metadata does not know yet are still normalized. Anything else
// is returned trimmed so validation can reject it.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" || !reValidPhone.MatchString(phone) {
		return phone
	}

	for _, region := range supportedRegions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil && phonenumbers.IsPossibleNumber(parsedNumber) {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return phone
}
