package io32

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
)

func testLogger() *dlog.Logger {
	return dlog.New(nil, 0)
}

func wordsToBank(name string, words []uint32) frame.Bank {
	data := make([]byte, 0, len(words)*4)
	for _, w := range words {
		data = append(data, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	}
	return frame.Bank{Name: name, Data: data}
}

func TestDecodeTriggerInfo_OK(t *testing.T) {
	bank := wordsToBank("VTRH", []uint32{
		ExpectedHeaderMagic, 42, 1000, 1010, 1050, 10, 40, 50, 0x0008,
	})
	ti, err := DecodeTriggerInfo(testLogger(), "head", bank)
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), ti.TrigCount)
	assert.Equal(t, int32(3), ti.WhichTrigger)
}

func TestDecodeTriggerInfo_BadLength(t *testing.T) {
	bank := wordsToBank("VTRH", []uint32{1, 2, 3})
	_, err := DecodeTriggerInfo(testLogger(), "head", bank)
	assert.Error(t, err)
}

func TestDecodeTriggerInfo_AmbiguousLatch(t *testing.T) {
	bank := wordsToBank("VTRH", []uint32{
		ExpectedHeaderMagic, 1, 1, 1, 1, 1, 1, 1, 0x0003,
	})
	ti, err := DecodeTriggerInfo(testLogger(), "head", bank)
	assert.NoError(t, err)
	assert.Equal(t, int32(-1), ti.WhichTrigger)
}

func TestDecodeTriggerInfo_NoBitsSet(t *testing.T) {
	bank := wordsToBank("VTRH", []uint32{
		ExpectedHeaderMagic, 1, 1, 1, 1, 1, 1, 1, 0,
	})
	ti, err := DecodeTriggerInfo(testLogger(), "head", bank)
	assert.NoError(t, err)
	assert.Equal(t, int32(-1), ti.WhichTrigger)
}

func tscEntry(channel uint32, ticksLow30 uint32, upper uint32) (uint32, uint32) {
	return (channel << 30) | (ticksLow30 & 0x3FFFFFFF), upper
}

func TestDecodeTSC_MinOfChannelZero(t *testing.T) {
	lo1, hi1 := tscEntry(0, 500, 0)
	lo2, hi2 := tscEntry(0, 100, 0)
	lo3, hi3 := tscEntry(1, 9, 0)
	ctrl := uint32(3) // 3 entries, no overflow
	bank := wordsToBank("TSCH", []uint32{0x1, 0xAAAA, 0, ctrl, lo1, hi1, lo2, hi2, lo3, hi3})

	tsc, err := DecodeTSC(testLogger(), "head", bank, KnownFirmwareRevisions())
	assert.NoError(t, err)
	assert.True(t, tsc.HasTrigger)
	assert.Equal(t, uint64(100), tsc.TriggerTicks)
	assert.Equal(t, []uint64{9}, tsc.CrossTrigger)
}

func TestDecodeTSC_Overflow(t *testing.T) {
	ctrl := uint32(1) << 15
	bank := wordsToBank("TSCH", []uint32{0x1, 0, 0, ctrl})
	tsc, err := DecodeTSC(testLogger(), "head", bank, KnownFirmwareRevisions())
	assert.NoError(t, err)
	assert.True(t, tsc.Overflow)
	assert.False(t, tsc.HasTrigger)
}

func TestDecodeTSC_UnknownRevisionIsWarningNotError(t *testing.T) {
	bank := wordsToBank("TSCH", []uint32{0xFF, 0, 0, 0})
	tsc, err := DecodeTSC(testLogger(), "head", bank, KnownFirmwareRevisions())
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xFF), tsc.FirmwareRevision)
}

func TestDecodeTSC_BadLength(t *testing.T) {
	ctrl := uint32(2)
	bank := wordsToBank("TSCH", []uint32{0x1, 0, 0, ctrl, 0})
	_, err := DecodeTSC(testLogger(), "head", bank, KnownFirmwareRevisions())
	assert.Error(t, err)
}
