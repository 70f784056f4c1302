package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidationError is a local rejection of an edit. It never reaches the
// network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateCell checks a (resolution, duration, credits) edit and returns the
// parsed duration.
func ValidateCell(resolution, duration string, credits float64) (int, error) {
	if strings.TrimSpace(resolution) == "" {
		return 0, &ValidationError{Field: "resolution", Reason: "must not be empty"}
	}

	seconds, err := strconv.Atoi(strings.TrimSpace(duration))
	if err != nil || seconds <= 0 {
		return 0, &ValidationError{Field: "duration", Reason: "must be a positive integer"}
	}

	if math.IsNaN(credits) || math.IsInf(credits, 0) {
		return 0, &ValidationError{Field: "credits", Reason: "must be a finite number"}
	}
	if credits < 0 {
		return 0, &ValidationError{Field: "credits", Reason: "must not be negative"}
	}

	return seconds, nil
}
