// Package analysis derives dividend investment signals from raw market data.
// Everything here is pure: inputs in, values out, no I/O.
package analysis

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks caller-supplied values that cannot be analysed,
// such as a negative budget, a non-positive price or a malformed symbol.
var ErrInvalidInput = errors.New("invalid input")

// ValidateBudget rejects budgets a scan cannot plan with: zero, negative,
// NaN or infinite.
func ValidateBudget(budget float64) error {
	if !finite(budget) || budget <= 0 {
		return fmt.Errorf("%w: budget must be a positive number, got %v", ErrInvalidInput, budget)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
