// Package tools holds the functions agents may call during a stage.
package tools

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/marketlens/internal/domain"
)

// EstimateMarketSize echoes the supporting data back as a sizing statement.
func EstimateMarketSize(data string) string {
	return "Estimated market size based on: " + data
}

// CalculateCAGR returns the compound annual growth rate (final/initial)^(1/years) - 1.
func CalculateCAGR(initial, final float64, years int) (float64, error) {
	switch {
	case initial <= 0 || math.IsNaN(initial):
		return 0, fmt.Errorf("initial value must be positive, got %v: %w", initial, domain.ErrInvalidCAGRInput)
	case years == 0:
		return 0, fmt.Errorf("years must be non-zero: %w", domain.ErrInvalidCAGRInput)
	case final < 0 || math.IsNaN(final):
		return 0, fmt.Errorf("final value must not be negative, got %v: %w", final, domain.ErrInvalidCAGRInput)
	}

	cagr := math.Pow(final/initial, 1/float64(years)) - 1
	if math.IsNaN(cagr) || math.IsInf(cagr, 0) {
		return 0, fmt.Errorf("CAGR is not finite for %v -> %v over %d years: %w",
			initial, final, years, domain.ErrInvalidCAGRInput)
	}
	return cagr, nil
}
