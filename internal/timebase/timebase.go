// Package timebase converts 20 MHz hardware counter ticks to microseconds
// and seconds, and provides rollover-aware differencing for counters that
// wrap at a configurable bit width (30 bits for the per-stream trigger
// timestamp counter, 32 bits elsewhere).
package timebase

// TickFrequencyMHz is the TSC's fixed sampling rate.
const TickFrequencyMHz = 20.0

// TicksToMicros converts a tick count to microseconds.
func TicksToMicros(ticks int64) float64 {
	return float64(ticks) / TickFrequencyMHz
}

// TicksToSeconds converts a tick count to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / 20e6
}

// DiffWithRollover returns the signed, shortest-path difference
// later-earlier modulo 2^modulusBits. Values are first reduced into
// [0, 2^modulusBits) before differencing, so callers may pass raw counter
// values that already wrapped any number of times.
//
// The result is odd-symmetric: DiffWithRollover(x, y, b) == -DiffWithRollover(y, x, b)
// for every pair whose true (unwrapped) separation is less than 2^(b-1).
func DiffWithRollover(later, earlier uint64, modulusBits uint) int64 {
	modulus := int64(1) << modulusBits
	half := modulus / 2
	mask := uint64(modulus - 1)

	l := int64(later & mask)
	e := int64(earlier & mask)

	raw := (l - e) % modulus
	if raw > half {
		raw -= modulus
	} else if raw < -half {
		raw += modulus
	}
	return raw
}
