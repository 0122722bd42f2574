package components

import (
	"strconv"
	"strings"
)

// toStringSlice coerces a parsed list-of-text port value into []string,
// skipping any element that isn't a string rather than failing the whole
// conversion — callers have already run this through schema validation.
func toStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// nonEmptyLines splits s on newlines, trims each, and drops blanks.
func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// atoiOr returns def if s is empty or does not parse as a positive
// integer, and the parsed value otherwise.
func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
