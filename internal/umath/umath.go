// Package umath provides checked unsigned arithmetic for share and value
// math. Results that would overflow uint64 are rejected, never wrapped.
package umath

import (
	"math"
	"math/bits"

	"lukechampine.com/uint128"

	"github.com/ballastfi/ballast/internal/domain"
)

// Add returns a+b, or ErrOverflow if the sum exceeds uint64.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b, or ErrOverflow if b > a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrOverflow
	}
	return diff, nil
}

// Mul returns a*b, or ErrOverflow if the product exceeds uint64.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, domain.ErrOverflow
	}
	return lo, nil
}

// MulDiv returns a*b/c with a 128-bit intermediate product and floor
// division. The division never loses the high word silently: if the quotient
// does not fit uint64, ErrOverflow is returned. c must be non-zero.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, domain.ErrOverflow
	}
	product := uint128.From64(a).Mul64(b)
	quotient := product.Div64(c)
	if quotient.Hi != 0 {
		return 0, domain.ErrOverflow
	}
	return quotient.Lo, nil
}

// ToInt64 converts u for SQLite INTEGER storage. Values beyond the int64
// range are rejected rather than sign-flipped.
func ToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, domain.ErrOverflow
	}
	return int64(u), nil
}

// FromInt64 converts a SQLite INTEGER back to uint64, rejecting negatives.
func FromInt64(i int64) (uint64, error) {
	if i < 0 {
		return 0, domain.ErrOverflow
	}
	return uint64(i), nil
}

// AbsDiff returns |a-b| without branching on error paths.
func AbsDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
