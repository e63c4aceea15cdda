package invoice

import (
	"time"

	"fakturo/internal/core/apperror"
)

// DateOnly truncates a timestamp to its calendar day at UTC midnight.
// Ordering never looks at time of day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateOrdering checks the date-monotonicity invariant for a candidate
// date against its numeric neighbors: the candidate must not precede the
// previous neighbor and must not follow the next one. Either neighbor may be
// absent. Pure function; callers resolve the neighbors.
func ValidateOrdering(candidate time.Time, prev, next *time.Time) error {
	c := DateOnly(candidate)
	if prev != nil && c.Before(DateOnly(*prev)) {
		return apperror.NewOrderViolation(c, DateOnly(*prev), "previous")
	}
	if next != nil && c.After(DateOnly(*next)) {
		return apperror.NewOrderViolation(c, DateOnly(*next), "next")
	}
	return nil
}
