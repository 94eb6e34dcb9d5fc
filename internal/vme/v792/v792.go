// Package v792 decodes the peak-sensing QDC/ADC bank. The CAEN V792-family
// buffer is a stream of 32-bit words tagged by a 3-bit data-type field
// (bits 26:24): header, valid datum, invalid datum (below-threshold
// conversion) and end-of-block. The tail stream carries two such modules
// side by side (ADC0/ADC1); this package decodes one bank at a time, so
// the dispatcher simply calls it twice with the two bank names.
package v792

import (
	"github.com/triumf-dragon/coincore/internal/bitreader"
	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
	"github.com/triumf-dragon/coincore/internal/sentinel"
)

const (
	dataTypeValid   = 0x0
	dataTypeHeader  = 0x2
	dataTypeEOB     = 0x4
	dataTypeInvalid = 0x6
)

// NumChannels is the module's channel count.
const NumChannels = 32

func dataType(w uint32) uint32 {
	return bitreader.Extract(w, 24, 3)
}

// Decoded is the decoded content of one peak-ADC bank.
type Decoded struct {
	Channels     [NumChannels]int32
	Overflow     [NumChannels]bool
	Underflow    [NumChannels]bool
	EventCounter uint32
	HasEventCounter bool
}

// Decode walks the bank's words. An invalid-datum word leaves its channel
// at the no-data sentinel; an out-of-range channel index or an
// unrecognized data-type tag is a warning, and the word is dropped without
// aborting the rest of the bank.
func Decode(logger *dlog.Logger, module string, bank frame.Bank) (Decoded, error) {
	words := bank.Words()

	var out Decoded
	for i := range out.Channels {
		out.Channels[i] = sentinel.NoDataSigned[int32]()
	}

	for _, w := range words {
		switch dataType(w) {
		case dataTypeHeader:
			// carries crate/geo/channel-count fields not needed downstream

		case dataTypeEOB:
			out.EventCounter = bitreader.Extract(w, 0, 24)
			out.HasEventCounter = true

		case dataTypeValid, dataTypeInvalid:
			channel := int(bitreader.Extract(w, 16, 5))
			if channel >= NumChannels {
				logger.Delayed(module, -5, "ADC channel out of range", "channel", channel)
				continue
			}
			if dataType(w) == dataTypeInvalid {
				continue // below-threshold conversion: leave the no-data sentinel
			}
			out.Channels[channel] = int32(bitreader.Extract(w, 0, 12))
			out.Overflow[channel] = bitreader.Extract(w, 13, 1) != 0
			out.Underflow[channel] = bitreader.Extract(w, 12, 1) != 0

		default:
			logger.Warn("unrecognized ADC buffer word data type", "module", module, "type", dataType(w))
		}
	}

	return out, nil
}
