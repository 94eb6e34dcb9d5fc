// Package dispatch is the top-level coincidence-matching core: it routes
// incoming raw frames by MIDAS event id, derives each physics event's
// trigger timestamp from its TSC bank eagerly (cheap, and needed for
// queue ordering), defers the rest of the bank decode until the event is
// actually retired from the coincidence queue, and hands the result to
// caller-supplied sinks.
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/triumf-dragon/coincore/internal/coincqueue"
	"github.com/triumf-dragon/coincore/internal/dlog"
	"github.com/triumf-dragon/coincore/internal/frame"
	"github.com/triumf-dragon/coincore/internal/rundb"
	"github.com/triumf-dragon/coincore/internal/scaler"
	"github.com/triumf-dragon/coincore/internal/vme/io32"
	"github.com/triumf-dragon/coincore/internal/vme/v1190"
	"github.com/triumf-dragon/coincore/internal/vme/v792"
)

// EventKind classifies a raw frame by its MIDAS event id.
type EventKind int

const (
	HeadEvent EventKind = iota
	TailEvent
	HeadScaler
	TailScaler
	BeginOfRun
	EndOfRun
	OtherEvent
)

func (k EventKind) String() string {
	switch k {
	case HeadEvent:
		return "HeadEvent"
	case TailEvent:
		return "TailEvent"
	case HeadScaler:
		return "HeadScaler"
	case TailScaler:
		return "TailScaler"
	case BeginOfRun:
		return "BeginOfRun"
	case EndOfRun:
		return "EndOfRun"
	default:
		return "OtherEvent"
	}
}

// MIDAS reserves these two event ids for run transitions; the physics and
// scaler event ids are installation-specific (configured via Router).
const (
	midasEventIDBeginOfRun = 0x8000
	midasEventIDEndOfRun   = 0x8001
)

// Router maps the installation's configured event ids to EventKind.
type Router struct {
	HeadEventID  uint16
	TailEventID  uint16
	HeadScalerID uint16
	TailScalerID uint16
}

// DefaultRouter is the conventional DRAGON front-end event id assignment.
func DefaultRouter() Router {
	return Router{HeadEventID: 1, TailEventID: 2, HeadScalerID: 5, TailScalerID: 6}
}

// Classify returns the EventKind for a raw frame's event id.
func (r Router) Classify(eventID uint16) EventKind {
	switch eventID {
	case r.HeadEventID:
		return HeadEvent
	case r.TailEventID:
		return TailEvent
	case r.HeadScalerID:
		return HeadScaler
	case r.TailScalerID:
		return TailScaler
	case midasEventIDBeginOfRun:
		return BeginOfRun
	case midasEventIDEndOfRun:
		return EndOfRun
	default:
		return OtherEvent
	}
}

// DecodedEvent aggregates everything a retired physics or scaler frame can
// carry. Only the fields relevant to Kind are populated; the rest are
// left at their zero value.
type DecodedEvent struct {
	Kind EventKind
	Raw  frame.RawFrame

	Trigger io32.TriggerInfo
	Tsc     io32.Tsc
	Tdc     v1190.Decoded
	Adc0    v792.Decoded
	Adc1    v792.Decoded // tail only

	Scaler scaler.Decoded
}

// Sinks are the dispatcher's outputs. They replace the original
// implementation's virtual dispatch on event type with plain function
// values, the same pattern coincqueue.Sinks uses one layer down.
type Sinks struct {
	OnSingle func(DecodedEvent)
	// OnCoincidence fires once per matched (head, tail) pair, deltaUs
	// being the tail's trigger time minus the head's.
	OnCoincidence func(head, tail DecodedEvent, deltaUs float64)
	OnScaler      func(DecodedEvent)
	OnRunStart    func(frame.RawFrame)
	OnRunStop     func(frame.RawFrame)
	OnDiagnostics func(coincqueue.Diagnostics)
}

// Dispatcher is the coincidence-matching core.
type Dispatcher struct {
	mu sync.Mutex

	logger    *dlog.Logger
	router    Router
	headBanks rundb.HeadBankNames
	tailBanks rundb.TailBankNames
	coinc     rundb.CoincidenceVariables

	headScalerBank string
	tailScalerBank string

	queue       *coincqueue.Queue
	singlesOnly bool

	sinks Sinks

	warnedUnknownBank map[string]bool
}

// New builds a Dispatcher in coincidence-matching mode.
func New(logger *dlog.Logger, router Router, headBanks rundb.HeadBankNames, tailBanks rundb.TailBankNames,
	headScalerBank, tailScalerBank string, coinc rundb.CoincidenceVariables, sinks Sinks) *Dispatcher {

	d := &Dispatcher{
		logger:            logger,
		router:            router,
		headBanks:         headBanks,
		tailBanks:         tailBanks,
		coinc:             coinc,
		headScalerBank:    headScalerBank,
		tailScalerBank:    tailScalerBank,
		sinks:             sinks,
		warnedUnknownBank: make(map[string]bool),
	}
	d.queue = coincqueue.New(coinc.BufferSpanUs, coincqueue.DefaultMaxEntries, coincqueue.Sinks{
		OnSingle:      d.onQueueSingle,
		OnCoincidence: d.onQueueCoincidence,
		OnDiagnostics: d.onQueueDiagnostics,
	})
	return d
}

// SetSinglesMode switches the dispatcher into pass-through mode: every
// participating event is emitted through OnSingle immediately, bypassing
// the coincidence queue entirely. If the dispatcher was in coincidence
// mode, whatever is currently buffered is flushed first (within
// flushTimeoutS, or without a deadline if flushTimeoutS <= 0) so no event
// is silently dropped by the mode switch.
func (d *Dispatcher) SetSinglesMode(flushTimeoutS float64) error {
	d.mu.Lock()
	wasCoincidence := !d.singlesOnly
	d.mu.Unlock()

	if wasCoincidence {
		if err := coincqueue.FlushTimeout(d.queue, time.Duration(flushTimeoutS*float64(time.Second))); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.singlesOnly = true
	d.mu.Unlock()
	return nil
}

// SetCoincidenceMode switches the dispatcher back to windowed matching.
func (d *Dispatcher) SetCoincidenceMode() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.singlesOnly = false
}

// Diagnostics returns the coincidence queue's lifetime counters.
func (d *Dispatcher) Diagnostics() coincqueue.Diagnostics {
	return d.queue.Diagnostics()
}

// FlushAtEndOfRun force-drains the coincidence queue without a deadline;
// Dispatch calls this automatically on an EndOfRun frame.
func (d *Dispatcher) FlushAtEndOfRun() error {
	return coincqueue.FlushTimeout(d.queue, 0)
}

// Dispatch routes one raw frame by event id.
func (d *Dispatcher) Dispatch(raw frame.RawFrame) error {
	kind := d.router.Classify(raw.EventID)
	switch kind {
	case BeginOfRun:
		if d.sinks.OnRunStart != nil {
			d.sinks.OnRunStart(raw)
		}
		return nil

	case EndOfRun:
		err := d.FlushAtEndOfRun()
		if d.sinks.OnRunStop != nil {
			d.sinks.OnRunStop(raw)
		}
		return err

	case HeadScaler:
		return d.dispatchScaler(kind, raw, d.headScalerBank)
	case TailScaler:
		return d.dispatchScaler(kind, raw, d.tailScalerBank)

	case HeadEvent, TailEvent:
		return d.dispatchPhysicsEvent(kind, raw)

	default:
		d.warnUnknownEventID(raw.EventID)
		return nil
	}
}

func (d *Dispatcher) dispatchScaler(kind EventKind, raw frame.RawFrame, bankName string) error {
	b, ok := d.bank(raw, bankName)
	if !ok {
		return nil
	}
	module := "scaler:" + kind.String()
	dec, err := scaler.Decode(module, b)
	if err != nil {
		return err
	}
	if d.sinks.OnScaler != nil {
		d.sinks.OnScaler(DecodedEvent{Kind: kind, Raw: raw, Scaler: dec})
	}
	return nil
}

func (d *Dispatcher) dispatchPhysicsEvent(kind EventKind, raw frame.RawFrame) error {
	ticks, participates := d.extractTriggerTicks(raw, kind)
	fe := frame.New(raw, ticks, participates, d.coinc.WindowUs)

	d.mu.Lock()
	singlesOnly := d.singlesOnly
	d.mu.Unlock()

	if !participates || singlesOnly {
		d.onQueueSingle(fe)
		return nil
	}
	return d.queue.Push(fe)
}

func (d *Dispatcher) extractTriggerTicks(raw frame.RawFrame, kind EventKind) (uint64, bool) {
	tscName := d.headBanks.TSC
	module := "tsc:head"
	if kind == TailEvent {
		tscName = d.tailBanks.TSC
		module = "tsc:tail"
	}
	b, ok := d.bank(raw, tscName)
	if !ok {
		return 0, false
	}
	tsc, err := io32.DecodeTSC(d.logger, module, b, io32.KnownFirmwareRevisions())
	if err != nil {
		return 0, false
	}
	return tsc.TriggerTicks, tsc.HasTrigger
}

// onQueueSingle is the coincqueue single-retirement callback: it runs the
// full (deferred) decode and forwards to OnSingle.
func (d *Dispatcher) onQueueSingle(fe frame.FramedEvent) {
	kind := d.router.Classify(fe.Raw.EventID)
	decoded := d.decodeFull(kind, fe.Raw)
	if d.sinks.OnSingle != nil {
		d.sinks.OnSingle(decoded)
	}
}

// onQueueCoincidence is the coincqueue pair-retirement callback. It fires
// once per matched pair (never once per chain), ignores pairs whose two
// events come from the same stream, decodes both sides fully, and reorders
// them into (head, tail) regardless of which one the queue happened to
// retire first.
func (d *Dispatcher) onQueueCoincidence(front, other frame.FramedEvent, deltaUs float64) {
	frontKind := d.router.Classify(front.Raw.EventID)
	otherKind := d.router.Classify(other.Raw.EventID)
	if frontKind == otherKind {
		return // same-stream pair: not a head/tail coincidence
	}

	var head, tail DecodedEvent
	var headTailDeltaUs float64
	if otherKind == HeadEvent && frontKind != HeadEvent {
		head = d.decodeFull(otherKind, other.Raw)
		tail = d.decodeFull(frontKind, front.Raw)
		headTailDeltaUs = -deltaUs
	} else {
		head = d.decodeFull(frontKind, front.Raw)
		tail = d.decodeFull(otherKind, other.Raw)
		headTailDeltaUs = deltaUs
	}

	if d.sinks.OnCoincidence != nil {
		d.sinks.OnCoincidence(head, tail, headTailDeltaUs)
	}
}

func (d *Dispatcher) onQueueDiagnostics(diag coincqueue.Diagnostics) {
	if d.sinks.OnDiagnostics != nil {
		d.sinks.OnDiagnostics(diag)
	}
}

// decodeFull runs every bank decoder for one raw frame, according to
// which stream it belongs to. A missing bank is warned once (per bank
// name, not per frame) and its field is left at its zero value; decoding
// continues with the rest of the frame.
func (d *Dispatcher) decodeFull(kind EventKind, raw frame.RawFrame) DecodedEvent {
	out := DecodedEvent{Kind: kind, Raw: raw}

	type bankSet struct {
		io32, adc, tdc, tsc string
	}
	var banks bankSet
	adc1Name := ""
	streamTag := "head"
	if kind == TailEvent {
		streamTag = "tail"
		banks = bankSet{io32: d.tailBanks.IO32, adc: d.tailBanks.ADC0, tdc: d.tailBanks.TDC, tsc: d.tailBanks.TSC}
		adc1Name = d.tailBanks.ADC1
	} else {
		banks = bankSet{io32: d.headBanks.IO32, adc: d.headBanks.ADC, tdc: d.headBanks.TDC, tsc: d.headBanks.TSC}
	}

	if b, ok := d.bank(raw, banks.io32); ok {
		if ti, err := io32.DecodeTriggerInfo(d.logger, "io32:"+streamTag, b); err == nil {
			out.Trigger = ti
		}
	}
	if b, ok := d.bank(raw, banks.tsc); ok {
		if tsc, err := io32.DecodeTSC(d.logger, "tsc:"+streamTag, b, io32.KnownFirmwareRevisions()); err == nil {
			out.Tsc = tsc
		}
	}
	if b, ok := d.bank(raw, banks.tdc); ok {
		if td, err := v1190.Decode(d.logger, "tdc:"+streamTag, b); err == nil {
			out.Tdc = td
		}
	}
	if b, ok := d.bank(raw, banks.adc); ok {
		if ad, err := v792.Decode(d.logger, "adc0:"+streamTag, b); err == nil {
			out.Adc0 = ad
		}
	}
	if adc1Name != "" {
		if b, ok := d.bank(raw, adc1Name); ok {
			if ad, err := v792.Decode(d.logger, "adc1:"+streamTag, b); err == nil {
				out.Adc1 = ad
			}
		}
	}

	return out
}

func (d *Dispatcher) bank(raw frame.RawFrame, name string) (frame.Bank, bool) {
	b, ok := raw.Bank(name)
	if !ok {
		d.mu.Lock()
		if !d.warnedUnknownBank[name] {
			d.warnedUnknownBank[name] = true
			d.logger.Warn("expected bank not present in frame", "bank", name)
		}
		d.mu.Unlock()
	}
	return b, ok
}

func (d *Dispatcher) warnUnknownEventID(id uint16) {
	key := fmt.Sprintf("event_id:%d", id)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.warnedUnknownBank[key] {
		return
	}
	d.warnedUnknownBank[key] = true
	d.logger.Warn("unrecognized event id, frame dropped", "event_id", id)
}
