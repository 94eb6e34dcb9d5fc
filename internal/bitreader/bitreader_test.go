package bitreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtract(t *testing.T) {
	assert.Equal(t, uint32(0xFF), Extract(0xDEADBEFF, 0, 8))
	assert.Equal(t, uint32(0xBE), Extract(0xDEADBEFF, 8, 8))
	assert.Equal(t, uint32(0xDEADBEFF), Extract(0xDEADBEFF, 0, 32))
}

func TestExtractSigned(t *testing.T) {
	// 14-bit field, value -6550 as used by the trigger threshold registers.
	word := uint32(uint16(int16(-6550))) & 0x3FFF
	got := ExtractSigned(word, 0, 14)
	assert.Equal(t, int32(-6550), got)
}

func TestLEWordsRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 16).Draw(t, "n")
		words := make([]uint32, n)
		for i := range words {
			words[i] = rapid.Uint32().Draw(t, "w")
		}
		bytes := PutLEWords(words)
		back := LEWords(bytes)
		assert.Equal(t, words, back)
	})
}

func TestExtract_FieldIsolation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := uint(rapid.IntRange(0, 31).Draw(t, "lo"))
		width := uint(rapid.IntRange(1, int(32-lo)).Draw(t, "width"))
		word := rapid.Uint32().Draw(t, "word")

		got := Extract(word, lo, width)
		assert.LessOrEqual(t, got, (uint32(1)<<width)-1)
	})
}
