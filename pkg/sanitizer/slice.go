package sanitizer

// SanitizeSlice applies strategy to every value and drops empties and duplicates,
// keeping first-seen order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	if len(values) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}

func SanitizeSeatNumbers(numbers []string) []string {
	return SanitizeSlice(numbers, SanitizeSeatNumber)
}
