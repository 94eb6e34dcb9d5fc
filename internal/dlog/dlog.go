// Package dlog is the structured logger shared by every decoder, the
// coincidence queue, and the dispatcher. It wraps charmbracelet/log (used
// the same way by the pack's other hardware front end,
// doismellburning/samoyed) and adds the delayed-message aggregation
// registry called for by the error handling design: identical
// (module, error bit) warnings are counted and printed at most once per
// configured period, so a noisy FIFO-overflow bit doesn't flood the log at
// hardware rate.
package dlog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the structured sink passed to decoders, the queue, and the
// dispatcher. It embeds *log.Logger for Debug/Info/Warn/Error plus the
// delayed-message registry.
type Logger struct {
	*log.Logger
	delayed *DelayedRegistry
}

// New builds a Logger writing to w (os.Stderr in production, a bytes.Buffer
// in tests) with the given delayed-message aggregation period.
func New(w io.Writer, period time.Duration) *Logger {
	if w == nil {
		w = os.Stderr
	}
	base := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
	return &Logger{
		Logger:  base,
		delayed: NewDelayedRegistry(base, period),
	}
}

// Delayed reports a recurring error condition through the delayed-message
// registry instead of logging it directly.
func (l *Logger) Delayed(module string, bit int, msg string, keyvals ...interface{}) {
	l.delayed.Report(module, bit, msg, keyvals...)
}

// FlushDelayed must be called at normal termination so any suppressed
// counts still pending are printed; the registry's lifetime is tied to the
// logger's, not the process's, to keep it testable.
func (l *Logger) FlushDelayed() {
	l.delayed.FlushAll()
}

// DelayedKey identifies a recurring error condition: the logical module
// (e.g. "v1190:TDC0") and the hardware-defined error bit.
type DelayedKey struct {
	Module string
	Bit    int
}

type delayedEntry struct {
	suppressed   int
	lastPrinted  time.Time
	lastMsg      string
	lastKeyvals  []interface{}
	everPrinted  bool
}

// DelayedRegistry is the process-wide-in-spirit, but explicitly owned,
// replacement for the original implementation's global delayed-message
// factory keyed by object identity (see DESIGN.md "Global delayed-message
// factory"). Each Logger built by New owns one instance; decoders reach it
// through the Logger the dispatcher passes them.
type DelayedRegistry struct {
	mu      sync.Mutex
	period  time.Duration
	logger  *log.Logger
	entries map[DelayedKey]*delayedEntry
	now     func() time.Time
}

func NewDelayedRegistry(logger *log.Logger, period time.Duration) *DelayedRegistry {
	return &DelayedRegistry{
		period:  period,
		logger:  logger,
		entries: make(map[DelayedKey]*delayedEntry),
		now:     time.Now,
	}
}

// Report records one occurrence of (module, bit). If this is the first
// occurrence, or at least `period` has elapsed since the last time this
// key was printed, the message is printed immediately (noting how many
// occurrences were suppressed since the last print); otherwise the
// occurrence is only counted.
func (r *DelayedRegistry) Report(module string, bit int, msg string, keyvals ...interface{}) {
	key := DelayedKey{Module: module, Bit: bit}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &delayedEntry{}
		r.entries[key] = e
	}
	e.lastMsg = msg
	e.lastKeyvals = keyvals

	if !e.everPrinted || now.Sub(e.lastPrinted) >= r.period {
		kv := append(append([]interface{}{}, keyvals...), "module", module, "bit", bit)
		if e.suppressed > 0 {
			kv = append(kv, "suppressed_since_last", e.suppressed)
		}
		r.logger.Warn(msg, kv...)
		e.everPrinted = true
		e.lastPrinted = now
		e.suppressed = 0
		return
	}
	e.suppressed++
}

// FlushAll prints any remaining suppressed counts for every key that has
// occurrences pending since its last print. Call this once, at shutdown.
func (r *DelayedRegistry) FlushAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if e.suppressed > 0 {
			kv := append(append([]interface{}{}, e.lastKeyvals...),
				"module", key.Module, "bit", key.Bit, "suppressed_since_last", e.suppressed)
			r.logger.Warn(e.lastMsg, kv...)
			e.suppressed = 0
		}
	}
}
