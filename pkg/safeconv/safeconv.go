// Package safeconv provides safe integer type conversion functions that panic on overflow.
package safeconv

import "math"

// MaxInt32 is the maximum value for int32 type.
const MaxInt32 = math.MaxInt32

// MustIntToInt32 converts int to int32, panics on bounds violation.
func MustIntToInt32(v int) int32 {
	if v < math.MinInt32 || v > MaxInt32 {
		panic("safeconv: int to int32 out of bounds")
	}

	return int32(v)
}

// Int64ToUint64 converts int64 to uint64, clamping negative values to zero.
func Int64ToUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}
