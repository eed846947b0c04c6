package sanitizer

import (
	"strings"
	"unicode"
)

// collapseSpace drops control characters and folds runs of whitespace into a
// single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsControl(r):
		default:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeFreeText cleans user supplied text such as a cancellation reason.
// The result is cut to maxRunes when maxRunes is positive.
func SanitizeFreeText(input string, maxRunes int) string {
	s := collapseSpace(input)
	if maxRunes <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}
