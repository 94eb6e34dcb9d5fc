// Package io32 decodes the trigger/IO32 FPGA bank (9 x u32 fixed fields)
// and the variable-length multi-channel TSC bank that carries each frame's
// high-resolution trigger timestamp.
//
// Grounded on original_source/src/vme/Io32.{hxx,cxx}: both banks are
// already fully formed by the front-end firmware, so unpacking is a
// straight field copy plus the one-hot trigger_latch decode and the TSC
// FIFO's per-channel bit layout.
package io32

import (
	"math/bits"

	"github.com/triumf-dragon/coincore/internal/bitreader"
	"github.com/triumf-dragon/coincore/internal/decodeerr"
	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
)

// ExpectedBankLength is the fixed word count of the trigger/IO32 bank.
const ExpectedBankLength = 9

// ExpectedHeaderMagic is the fixed header+version value the firmware
// stamps into the first word of the bank, per the front-end source
// (0xaaaa0020).
const ExpectedHeaderMagic = 0xaaaa0020

// TriggerInfo is the decoded content of the 9-word trigger/IO32 bank.
type TriggerInfo struct {
	HeaderMagic     uint32
	TrigCount       uint32
	TstampCoarse    uint32
	ReadoutStart    uint32
	ReadoutEnd      uint32
	Latency         uint32 // readout_start - trigger_time, computed by firmware
	ReadoutDuration uint32 // readout_end - readout_start, computed by firmware
	BusyDuration    uint32 // readout_end - trigger_time, computed by firmware
	TriggerLatch    uint32 // one-hot bitmask
	WhichTrigger    int32  // index of the single set bit in TriggerLatch, or -1
}

// DecodeTriggerInfo decodes the trigger/IO32 bank. A length mismatch is
// the only condition that fails the bank outright; a trigger_latch with
// zero or more than one bit set still decodes, with WhichTrigger set to -1
// and a warning logged.
func DecodeTriggerInfo(logger *dlog.Logger, module string, bank frame.Bank) (TriggerInfo, error) {
	words := bank.Words()
	if len(words) != ExpectedBankLength {
		return TriggerInfo{}, decodeerr.New(decodeerr.BadLength, module,
			"trigger/IO32 bank: expected 9 words")
	}

	ti := TriggerInfo{
		HeaderMagic:     words[0],
		TrigCount:       words[1],
		TstampCoarse:    words[2],
		ReadoutStart:    words[3],
		ReadoutEnd:      words[4],
		Latency:         words[5],
		ReadoutDuration: words[6],
		BusyDuration:    words[7],
		TriggerLatch:    words[8],
	}

	if ti.HeaderMagic != ExpectedHeaderMagic {
		logger.Warn("trigger/IO32 bank: unexpected header magic", "module", module, "got", ti.HeaderMagic)
	}

	switch n := bits.OnesCount32(ti.TriggerLatch); n {
	case 1:
		ti.WhichTrigger = int32(bits.TrailingZeros32(ti.TriggerLatch))
	default:
		ti.WhichTrigger = -1
		logger.Warn("trigger_latch does not have exactly one bit set", "module", module, "latch", ti.TriggerLatch, "bits_set", n)
	}

	return ti, nil
}

// Tsc is the decoded content of the variable-length TSC bank.
type Tsc struct {
	FirmwareRevision uint32
	WriteTimestamp   uint32
	Routing          uint32
	Overflow         bool

	// TriggerTicks is the minimum of all channel-0 (trigger-tag) FIFO
	// entries in this frame; HasTrigger is false if the bank carried no
	// channel-0 entry at all (e.g. a malformed or partial readout).
	TriggerTicks uint64
	HasTrigger   bool

	// CrossTrigger holds every channel-1 entry, in FIFO order.
	CrossTrigger []uint64

	// Aux holds channel-2 and channel-3 ("auxiliary") entries, indexed by
	// channel-2.
	Aux [2][]uint64
}

// delayed-message bit keys for the two TSC warning conditions, which are
// not literal hardware error bits but recur at hardware rate the same way.
const (
	delayedBitUnknownRevision = -1
	delayedBitOverflow        = -2
)

// KnownFirmwareRevisions is the fixed set of recognized TSC firmware
// revisions; an unknown revision is a warning, never an error (the TSC
// firmware-version Open Question's resolution, see DESIGN.md). DecodeTSC
// checks against whatever set its caller passes; the dispatcher always
// passes this one, and no configuration key changes it.
func KnownFirmwareRevisions() map[uint32]bool {
	return map[uint32]bool{
		0x1: true,
		0x2: true,
		0x3: true,
		0x4: true,
		0x5: true,
	}
}

// DecodeTSC decodes the TSC bank: firmware revision, write timestamp,
// routing, a control word (bit 15 = overflow, bits 0-14 = entry count),
// then that many (lower, upper) word pairs.
func DecodeTSC(logger *dlog.Logger, module string, bank frame.Bank, knownRevisions map[uint32]bool) (Tsc, error) {
	words := bank.Words()
	if len(words) < 4 {
		return Tsc{}, decodeerr.New(decodeerr.BadLength, module, "TSC bank: missing fixed header words")
	}

	var out Tsc
	out.FirmwareRevision = words[0]
	out.WriteTimestamp = words[1]
	out.Routing = words[2]
	ctrl := words[3]
	out.Overflow = bitreader.Extract(ctrl, 15, 1) != 0
	n := int(bitreader.Extract(ctrl, 0, 15))

	if len(words) != 4+n*2 {
		return Tsc{}, decodeerr.New(decodeerr.BadLength, module, "TSC bank: entry count disagrees with bank length")
	}

	if knownRevisions != nil && !knownRevisions[out.FirmwareRevision] {
		logger.Delayed(module, delayedBitUnknownRevision, "TSC firmware revision not in known set",
			"revision", out.FirmwareRevision)
	}
	if out.Overflow {
		logger.Delayed(module, delayedBitOverflow, "TSC control word overflow flag set")
	}

	haveTrig := false
	var minTrig uint64
	for i := 0; i < n; i++ {
		lower := words[4+i*2]
		upper := words[4+i*2+1]
		ch := bitreader.Extract(lower, 30, 2)
		ticks := uint64(bitreader.Extract(lower, 0, 30)) | uint64(bitreader.Extract(upper, 0, 30))<<30

		switch ch {
		case 0:
			if !haveTrig || ticks < minTrig {
				minTrig = ticks
				haveTrig = true
			}
		case 1:
			out.CrossTrigger = append(out.CrossTrigger, ticks)
		case 2, 3:
			out.Aux[ch-2] = append(out.Aux[ch-2], ticks)
		}
	}
	out.TriggerTicks = minTrig
	out.HasTrigger = haveTrig
	return out, nil
}
