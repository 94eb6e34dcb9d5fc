package v1190

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
)

func testLogger() *dlog.Logger {
	return dlog.New(nil, 0)
}

func wordsToBank(words []uint32) frame.Bank {
	data := make([]byte, 0, len(words)*4)
	for _, w := range words {
		data = append(data, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return frame.Bank{Name: "TLT0", Data: data}
}

func makeWord(typ uint32, rest uint32) uint32 {
	return (typ << 27) | (rest & 0x07FFFFFF)
}

func measurementWord(channel int, trailing bool, ticks uint32) uint32 {
	w := makeWord(wordTypeTdcMeasurement, ticks&0x7FFFF)
	w |= uint32(channel&0x7F) << 19
	if trailing {
		w |= 1 << 26
	}
	return w
}

func headerWord(eventID int) uint32 {
	return makeWord(wordTypeTdcHeader, uint32(eventID&0xFFF)<<12)
}

func trailerWord(eventID int) uint32 {
	return makeWord(wordTypeTdcTrailer, uint32(eventID&0xFFF)<<12)
}

func TestDecode_MeasurementsGroupedByChannelAndEdge(t *testing.T) {
	words := []uint32{
		makeWord(wordTypeGlobalHeader, 100<<5),
		headerWord(7),
		measurementWord(3, false, 111),
		measurementWord(3, true, 222),
		measurementWord(5, false, 333),
		trailerWord(7),
		makeWord(wordTypeGlobalTrailer, 5<<5),
	}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.False(t, d.TrailerMismatch)
	assert.Equal(t, []uint32{111}, d.Channels[3].Leading)
	assert.Equal(t, []uint32{222}, d.Channels[3].Trailing)
	assert.Equal(t, []uint32{333}, d.Channels[5].Leading)
}

func TestDecode_TrailerEventIDMismatch(t *testing.T) {
	words := []uint32{
		headerWord(7),
		measurementWord(0, false, 1),
		trailerWord(8),
	}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.True(t, d.TrailerMismatch)
}

func TestDecode_OverflowKeepsFirst32AndCountsByOne(t *testing.T) {
	words := make([]uint32, 0, 42)
	words = append(words, headerWord(1))
	for i := 0; i < 40; i++ {
		words = append(words, measurementWord(10, false, uint32(i)))
	}
	words = append(words, trailerWord(1))

	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.Len(t, d.Channels[10].Leading, MaxHitsPerChannel)
	assert.Equal(t, uint32(0), d.Channels[10].Leading[0])
	assert.Equal(t, uint32(31), d.Channels[10].Leading[31])
	assert.Equal(t, 1, d.OverflowCount)
}

func TestDecode_ChannelOutOfRangeIsDroppedNotFatal(t *testing.T) {
	words := []uint32{measurementWord(200, false, 1)}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.Equal(t, 0, d.OverflowCount)
}

func TestDecode_ErrorWordAccumulatesFlags(t *testing.T) {
	words := []uint32{makeWord(wordTypeTdcError, 0x0005)}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x0005), d.ErrorFlags)
}

func TestDecode_UnknownWordTypeIsSkippedNotFatal(t *testing.T) {
	words := []uint32{makeWord(0x1F, 0), measurementWord(0, false, 9)}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.Equal(t, []uint32{9}, d.Channels[0].Leading)
}

func TestDecode_ExtendedTriggerTime(t *testing.T) {
	words := []uint32{makeWord(wordTypeExtendedTriggerTime, 12345)}
	d, err := Decode(testLogger(), "tail", wordsToBank(words))
	assert.NoError(t, err)
	assert.True(t, d.HasExtendedTime)
	assert.Equal(t, uint32(12345), d.ExtendedTriggerTime)
}
