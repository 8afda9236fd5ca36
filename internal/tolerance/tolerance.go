// Package tolerance compares floating-point results whose association order
// differs, as reductions on different backends do.
package tolerance

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Config defines tolerance parameters for floating-point comparison
type Config struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float64

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float64

	// ULPTol is the maximum allowed difference in ULPs (Units in Last Place)
	ULPTol int64
}

// Default returns default tolerance configuration
func Default() Config {
	return Config{AbsTol: 1e-7, RelTol: 1e-5, ULPTol: 4}
}

// Strict returns strict tolerance configuration for high precision
func Strict() Config {
	return Config{AbsTol: 1e-9, RelTol: 1e-7, ULPTol: 1}
}

// Accumulated returns a tolerance for the sum of n terms of type T: the
// relative error bound of a sum grows with the number of roundings.
func Accumulated[T constraints.Float](n int) Config {
	eps := math.Nextafter(1, 2) - 1
	var zero T
	if _, ok := any(zero).(float32); ok {
		eps = float64(math.Nextafter32(1, 2) - 1)
	}
	return Config{AbsTol: eps * float64(n), RelTol: eps * float64(n), ULPTol: 4}
}

// NearEqual checks if two values are equal within tolerance. Two NaNs, and
// two infinities of the same sign, are equal.
func NearEqual[T constraints.Float](a, b T, tol Config) bool {
	fa, fb := float64(a), float64(b)
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return math.IsNaN(fa) && math.IsNaN(fb)
	}
	// Check if exactly equal (handles ±0 and same-signed infinities)
	if a == b {
		return true
	}
	if math.IsInf(fa, 0) || math.IsInf(fb, 0) {
		return false
	}

	diff := math.Abs(fa - fb)
	if diff <= tol.AbsTol {
		return true
	}
	larger := math.Max(math.Abs(fa), math.Abs(fb))
	if diff <= larger*tol.RelTol {
		return true
	}
	return tol.ULPTol > 0 && ULPDiff(a, b) <= tol.ULPTol
}

// ULPDiff computes the difference in ULPs between two values of the same
// sign; values of different signs return math.MaxInt64.
func ULPDiff[T constraints.Float](a, b T) int64 {
	if _, ok := any(a).(float32); ok {
		aBits, bBits := math.Float32bits(float32(a)), math.Float32bits(float32(b))
		if (aBits^bBits)&0x80000000 != 0 {
			return math.MaxInt64
		}
		return int64(max(aBits, bBits) - min(aBits, bBits))
	}
	aBits, bBits := math.Float64bits(float64(a)), math.Float64bits(float64(b))
	if (aBits^bBits)&(1<<63) != 0 {
		return math.MaxInt64
	}
	return int64(max(aBits, bBits) - min(aBits, bBits))
}

// Describe formats a mismatch for test failures.
func Describe[T constraints.Float](want, got T) string {
	return fmt.Sprintf("want %v, got %v (abs diff %e, %d ULPs)",
		want, got, math.Abs(float64(want)-float64(got)), ULPDiff(want, got))
}
