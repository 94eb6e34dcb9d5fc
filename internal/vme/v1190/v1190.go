// Package v1190 decodes the multi-hit TDC bank. The bank is a stream of
// 32-bit words tagged by a 5-bit type field (bits 31:27), following the
// CAEN V1190-family buffer layout described in the front-end firmware
// sources: a global header/trailer pair wrapping one or more per-chip TDC
// header/measurement/error/trailer sequences, with an optional extended
// trigger time tag word.
package v1190

import (
	"github.com/triumf-dragon/coincore/internal/bitreader"
	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
)

// Word type tags, bits 31:27 of every buffer word.
const (
	wordTypeTdcMeasurement      = 0x00
	wordTypeTdcHeader           = 0x01
	wordTypeTdcTrailer          = 0x03
	wordTypeTdcError            = 0x04
	wordTypeGlobalHeader        = 0x08
	wordTypeGlobalTrailer       = 0x10
	wordTypeExtendedTriggerTime = 0x11
	wordTypeFiller              = 0x18
)

// NumChannels is the TDC's channel capacity. The measurement word's
// channel field is 7 bits wide (0-127), but the V1190 itself only ever
// populates channels 0-63; a channel at or above NumChannels is warned
// and dropped rather than silently accepted.
const NumChannels = 64

// MaxHitsPerChannel bounds how many leading/trailing edges this decoder
// retains per channel per frame; excess hits are dropped with a single
// delayed warning, and OverflowCount advances by exactly one per
// overflow occurrence (the first hit that exceeds the limit on a given
// channel within a frame), not by the number of hits dropped after it.
const MaxHitsPerChannel = 32

// tdcErrorBitNames names the 15 TDC per-chip error flags carried in the
// low 15 bits of a TDC Error word.
var tdcErrorBitNames = [15]string{
	"hit_fifo_overflow_chip0", "hit_fifo_overflow_chip1", "hit_fifo_overflow_chip2", "hit_fifo_overflow_chip3",
	"l1_buffer_overflow_chip0", "l1_buffer_overflow_chip1", "l1_buffer_overflow_chip2", "l1_buffer_overflow_chip3",
	"event_fifo_overflow", "trigger_fifo_overflow", "tdc_parity_error", "tdc_config_error",
	"tdc_control_error", "tdc_readout_fifo_overflow", "tdc_event_lost",
}

// ChannelHits holds the leading- and trailing-edge hit lists for one TDC
// channel within a single frame.
type ChannelHits struct {
	Leading  []uint32
	Trailing []uint32
}

// Decoded is the decoded content of one multi-hit TDC bank.
type Decoded struct {
	HeaderEventCount    uint32
	TrailerWordCount    uint32
	ExtendedTriggerTime uint32
	HasExtendedTime     bool
	GlobalTdcErrorFlag  bool

	Channels [NumChannels]ChannelHits

	ErrorFlags      uint32 // union of every TDC Error word's low 15 bits seen
	OverflowCount   int    // channels that exceeded MaxHitsPerChannel in this bank (one per channel, not per dropped hit)
	TrailerMismatch bool   // a TDC trailer's event id disagreed with its header's
}

func wordType(w uint32) uint32 {
	return bitreader.Extract(w, 27, 5)
}

// Decode walks the bank's words and classifies each by its type tag.
// An unrecognized type tag is a warning, not a failure: the word is
// skipped and decoding continues with the rest of the bank.
func Decode(logger *dlog.Logger, module string, bank frame.Bank) (Decoded, error) {
	words := bank.Words()
	var out Decoded

	currentHeaderEventID := -1
	overflowWarned := make(map[int]bool, NumChannels)

	for _, w := range words {
		switch wordType(w) {
		case wordTypeGlobalHeader:
			out.HeaderEventCount = bitreader.Extract(w, 5, 22)

		case wordTypeGlobalTrailer:
			out.TrailerWordCount = bitreader.Extract(w, 5, 19)
			out.GlobalTdcErrorFlag = bitreader.Extract(w, 24, 1) != 0

		case wordTypeExtendedTriggerTime:
			out.ExtendedTriggerTime = bitreader.Extract(w, 0, 27)
			out.HasExtendedTime = true

		case wordTypeTdcHeader:
			currentHeaderEventID = int(bitreader.Extract(w, 12, 12))

		case wordTypeTdcTrailer:
			trailerEventID := int(bitreader.Extract(w, 12, 12))
			if currentHeaderEventID >= 0 && trailerEventID != currentHeaderEventID {
				out.TrailerMismatch = true
				logger.Warn("TDC trailer event id disagrees with header", "module", module,
					"header_event_id", currentHeaderEventID, "trailer_event_id", trailerEventID)
			}
			currentHeaderEventID = -1

		case wordTypeTdcMeasurement:
			channel := int(bitreader.Extract(w, 19, 7))
			trailing := bitreader.Extract(w, 26, 1) != 0
			ticks := bitreader.Extract(w, 0, 19)
			if channel >= NumChannels {
				logger.Delayed(module, -3, "TDC measurement channel out of range", "channel", channel)
				continue
			}
			ch := &out.Channels[channel]
			list := &ch.Leading
			if trailing {
				list = &ch.Trailing
			}
			if len(*list) >= MaxHitsPerChannel {
				if !overflowWarned[channel] {
					overflowWarned[channel] = true
					out.OverflowCount++
					logger.Delayed(module, -4, "TDC channel hit count exceeds MaxHitsPerChannel", "channel", channel)
				}
				continue
			}
			*list = append(*list, ticks)

		case wordTypeTdcError:
			flags := bitreader.Extract(w, 0, 15)
			out.ErrorFlags |= flags
			for bit := 0; bit < 15; bit++ {
				if flags&(1<<uint(bit)) != 0 {
					logger.Delayed(module, bit, "TDC error flag set", "flag", tdcErrorBitNames[bit])
				}
			}

		case wordTypeFiller:
			// padding, not a real datum

		default:
			logger.Warn("unrecognized TDC buffer word type", "module", module, "type", wordType(w))
		}
	}

	return out, nil
}
