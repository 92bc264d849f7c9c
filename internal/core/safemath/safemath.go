// Package safemath provides checked unsigned arithmetic for ledger counters.
package safemath

import (
	"errors"
	"math/bits"
)

// ErrOverflow is returned when a result does not fit in 64 bits or would go negative.
var ErrOverflow = errors.New("arithmetic overflow")

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, ErrOverflow
	}
	return diff, nil
}

// SaturatingSub returns a-b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// MulDiv returns floor(a*b/d) using a 128-bit intermediate.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, nil
}
