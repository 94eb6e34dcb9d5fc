// Package decodeerr defines the error taxonomy surfaced by the VME bank
// decoders and the coincidence queue. Decoders never panic; every failure
// path returns a *Error so callers can switch on Kind without parsing
// strings.
package decodeerr

import "fmt"

// Kind enumerates the recoverable (and, for QueueInsertFailed, fatal)
// failure modes named in the error handling design.
type Kind int

const (
	// BadLength: bank length differs from the expected fixed width.
	BadLength Kind = iota
	// BadBankType: bank's declared type doesn't match what the caller requested.
	BadBankType
	// UnknownBuffer: unrecognized top-bits code inside a TDC/ADC buffer stream.
	UnknownBuffer
	// ChannelOutOfRange: channel field exceeds the module's channel capacity.
	ChannelOutOfRange
	// HitCountExceeded: a channel's hit list has reached its configured limit.
	HitCountExceeded
	// TscVersionUnknown: TSC firmware revision isn't in the known-revision set.
	TscVersionUnknown
	// TscOverflow: the TSC control word's overflow flag is set.
	TscOverflow
	// QueueInsertFailed: the coincidence queue rejected an insertion.
	QueueInsertFailed
	// FlushTimeout: Flush ran out of wall-clock time with events still queued.
	FlushTimeout
)

func (k Kind) String() string {
	switch k {
	case BadLength:
		return "BadLength"
	case BadBankType:
		return "BadBankType"
	case UnknownBuffer:
		return "UnknownBuffer"
	case ChannelOutOfRange:
		return "ChannelOutOfRange"
	case HitCountExceeded:
		return "HitCountExceeded"
	case TscVersionUnknown:
		return "TscVersionUnknown"
	case TscOverflow:
		return "TscOverflow"
	case QueueInsertFailed:
		return "QueueInsertFailed"
	case FlushTimeout:
		return "FlushTimeout"
	default:
		return "Unknown"
	}
}

// Error is the concrete error value returned by decoders. Module names the
// logical decoder/bank at fault (e.g. "io32:VTRH", "v1190:TDC0") so callers
// and the delayed-message registry can key on it.
type Error struct {
	Kind   Kind
	Module string
	Detail string
}

func New(kind Kind, module, detail string) *Error {
	return &Error{Kind: kind, Module: module, Detail: detail}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Module, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Module, e.Kind, e.Detail)
}

// Is lets errors.Is(err, decodeerr.BadLength) style comparisons work against
// a target constructed with just a Kind (Module/Detail left zero).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Of constructs a bare sentinel for use with errors.Is, e.g.
// errors.Is(err, decodeerr.Of(decodeerr.BadLength)).
func Of(kind Kind) *Error {
	return &Error{Kind: kind}
}
