package payment

import "math"

// The ledger stores amounts as decimal major units for compatibility with
// the order export format, while the gateway speaks minor units. All
// conversions go through these two helpers so rounding happens exactly once.

// MinorUnits converts a decimal major-unit amount to gateway minor units
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits converts gateway minor units back to a decimal major-unit amount
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
