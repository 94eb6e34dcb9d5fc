package timebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTicksToMicros(t *testing.T) {
	assert.Equal(t, 1e6, TicksToMicros(20_000_000))
	assert.Equal(t, 0.05, TicksToMicros(1))
}

func TestTicksToSeconds(t *testing.T) {
	assert.Equal(t, 1.0, TicksToSeconds(20_000_000))
}

// Scenario (d): 30-bit rollover.
func TestDiffWithRollover_30BitRolloverScenario(t *testing.T) {
	later := uint64(5)
	earlier := uint64(1<<30) - 10
	d := DiffWithRollover(later, earlier, 30)
	assert.Equal(t, int64(15), d)
	assert.Equal(t, 0.75, TicksToMicros(d))
}

func TestDiffWithRollover_NoWrap(t *testing.T) {
	assert.Equal(t, int64(100), DiffWithRollover(200, 100, 30))
	assert.Equal(t, int64(-100), DiffWithRollover(100, 200, 30))
}

// Universal invariant 7: odd symmetry for any pair with |delta| < 2^(bits-1).
func TestDiffWithRollover_OddSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := uint(rapid.IntRange(2, 36).Draw(t, "bits"))
		modulus := uint64(1) << bits
		x := rapid.Uint64Range(0, modulus-1).Draw(t, "x")
		half := int64(modulus / 2)
		delta := rapid.Int64Range(-(half - 1), half-1).Draw(t, "delta")

		y := int64(x) + delta
		for y < 0 {
			y += int64(modulus)
		}
		yu := uint64(y) % modulus

		dxy := DiffWithRollover(x, yu, bits)
		dyx := DiffWithRollover(yu, x, bits)
		assert.Equal(t, dxy, -dyx)
	})
}
