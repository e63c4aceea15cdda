package invoice

import (
	"strconv"
	"strings"

	"fakturo/internal/core/apperror"
)

// ParseNumber parses the contract's string form of an invoice number.
// Numbers are decimal representations of positive integers; anything else is
// a validation error, never a lookup miss.
func ParseNumber(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, apperror.NewValidation("invoice number must be a decimal integer").
			WithDetail("number", s)
	}
	if n < 1 {
		return 0, apperror.NewValidation("invoice number must be positive").
			WithDetail("number", s)
	}
	return n, nil
}

// FormatNumber returns the canonical string form of an invoice number.
func FormatNumber(n int64) string {
	return strconv.FormatInt(n, 10)
}
