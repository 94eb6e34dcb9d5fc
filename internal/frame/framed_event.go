package frame

import (
	"math"

	"github.com/triumf-dragon/coincore/internal/timebase"
)

// RolloverBits is the width of the per-stream trigger timestamp counter
// (the low word of a TSC FIFO entry, per the TSC FIFO entry data model).
const RolloverBits = 30

// FramedEvent wraps a decoded raw frame plus its extracted high-resolution
// trigger time. Events constructed with Participates == false (no TSC bank
// in this frame's event id, e.g. a scaler or run-parameter frame) are never
// pushed into the coincidence queue.
type FramedEvent struct {
	Raw                 RawFrame
	TriggerTicks        uint64 // low 30 bits significant; see RolloverBits
	TriggerTimeUs       float64
	CoincidenceWindowUs float64
	Participates        bool
}

// New builds a FramedEvent. triggerTicks/participates are supplied by the
// caller, who is expected to have already run the TSC-decoding portion of
// the trigger FPGA decoder (internal/vme/io32) against this frame's TSC
// bank, if any.
func New(raw RawFrame, triggerTicks uint64, participates bool, coincidenceWindowUs float64) FramedEvent {
	return FramedEvent{
		Raw:                 raw,
		TriggerTicks:        triggerTicks,
		TriggerTimeUs:       timebase.TicksToMicros(int64(triggerTicks)),
		CoincidenceWindowUs: coincidenceWindowUs,
		Participates:        participates,
	}
}

// TimeDiffUs is self - other, computed on the raw clock-tick values with a
// 30-bit rollover-aware difference so two events straddling the rollover
// boundary still yield a small signed delta, then converted to
// microseconds.
func (e FramedEvent) TimeDiffUs(other FramedEvent) float64 {
	ticks := timebase.DiffWithRollover(e.TriggerTicks, other.TriggerTicks, RolloverBits)
	return timebase.TicksToMicros(ticks)
}

// IsCoincident reports whether e and other fall within e's configured
// coincidence window of one another.
func (e FramedEvent) IsCoincident(other FramedEvent) bool {
	return math.Abs(e.TimeDiffUs(other)) < e.CoincidenceWindowUs
}

// Less implements the queue's ordering: a < b iff a and b are not
// coincident and a's trigger time precedes b's. This is not a strict weak
// order across all events (see spec §9), but is well-behaved whenever no
// three events in the comparison set straddle the coincidence window.
func (e FramedEvent) Less(other FramedEvent) bool {
	return !e.IsCoincident(other) && e.TriggerTimeUs < other.TriggerTimeUs
}
