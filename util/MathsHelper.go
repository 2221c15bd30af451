package util

import (
	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. NaN is returned unchanged.
func Clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat32 behaves like fmaxf(lo, fminf(hi, v)), so NaN maps to hi.
func ClampFloat32(v float32, lo float32, hi float32) float32 {
	if isNan(v) {
		return hi
	}
	return Clamp(v, lo, hi)
}

func isNan[T comparable](arg T) bool {
	return arg != arg
}
