// Package fee computes the protocol fee split and percentage shares.
package fee

import (
	"auto-savings-vault/internal/core/safemath"
)

const (
	// BasisPoints is the protocol fee rate: 40 bps, i.e. 0.4%.
	BasisPoints uint64 = 40
	// Divisor converts basis points to a fraction.
	Divisor uint64 = 10_000
	// PercentDivisor converts whole percentages to a fraction.
	PercentDivisor uint64 = 100
)

// Split is the result of skimming the fee off a gross amount. Fee + Net == gross.
type Split struct {
	Fee uint64
	Net uint64
}

// Compute returns floor(gross*40/10000) and the remainder.
func Compute(gross uint64) (Split, error) {
	f, err := Of(gross)
	if err != nil {
		return Split{}, err
	}
	net, err := safemath.Sub(gross, f)
	if err != nil {
		return Split{}, err
	}
	return Split{Fee: f, Net: net}, nil
}

// Of returns the fee charged on amount.
func Of(amount uint64) (uint64, error) {
	return safemath.MulDiv(amount, BasisPoints, Divisor)
}

// Share returns floor(amount*percent/100).
func Share(amount uint64, percent uint8) (uint64, error) {
	return safemath.MulDiv(amount, uint64(percent), PercentDivisor)
}
