package common

import "strconv"

// AtoiDefault parses value as an int, returning def for empty or bad input.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
