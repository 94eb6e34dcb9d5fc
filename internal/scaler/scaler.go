// Package scaler decodes the scaler banks (VSCH/VSCT). These carry plain
// 32-bit free-running counts with no framing beyond the bank itself, so
// decoding is a pass-through: the bank's words are the scaler values, in
// channel order.
package scaler

import (
	"github.com/triumf-dragon/coincore/internal/decodeerr"
	"github.com/triumf-dragon/coincore/internal/frame"
)

// Decoded is one scaler bank's channel counts.
type Decoded struct {
	Counts []uint32
}

// Decode returns the bank's words verbatim as scaler counts. The only
// failure mode is an empty bank, which the dispatcher treats as
// BadLength since a scaler readout with zero channels cannot be
// distinguished from a missing bank.
func Decode(module string, bank frame.Bank) (Decoded, error) {
	words := bank.Words()
	if len(words) == 0 {
		return Decoded{}, decodeerr.New(decodeerr.BadLength, module, "scaler bank: empty")
	}
	return Decoded{Counts: words}, nil
}
