package common

import "cmp"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AtLeast returns v, or floor if v is smaller.
//
// Parameters:
//   - v: the value to clamp
//   - floor: the smallest allowed result
//
// Returns:
//   - T: max(v, floor)
func AtLeast[T cmp.Ordered](v, floor T) T {
	if v < floor {
		return floor
	}
	return v
}
