// Package coincqueue implements the timestamp-ordered coincidence-matching
// queue. The original implementation held pending events in a
// std::multiset keyed by trigger time and matched pairs with
// equal_range; per the queue's design notes this is reimplemented here as
// a plain sorted slice with an explicit forward scan at retirement time,
// which is both simpler and cheaper in Go (no red-black tree, no
// iterator invalidation to reason about).
package coincqueue

import (
	"context"
	"sync"
	"time"

	"github.com/triumf-dragon/coincore/internal/decodeerr"
	"github.com/triumf-dragon/coincore/internal/frame"
)

// Diagnostics accumulates the queue's lifetime counters.
type Diagnostics struct {
	Pushed           uint64
	Retired          uint64 // entries erased as front; equals Pushed once the queue drains (a dropped event is never counted in Pushed)
	Singles          uint64 // retirements emitted through OnSingle; every retired front is one
	CoincidencePairs uint64 // (head, tail) notifications fired; an entry can appear in more than one before it is itself retired
	Dropped          uint64
	InsertRetries    uint64
}

// Sinks are the callbacks the queue invokes when it retires events. They
// replace the original design's virtual OwnedQueue<T> dispatch with
// ordinary Go function values supplied at construction.
//
// OnCoincidence fires once per matched pair, carrying the signed time
// delta between them (other's trigger time minus front's), mirroring
// tstamp::Queue::Pop's per-match callback rather than collecting a
// transitively-chained run into one notification.
type Sinks struct {
	OnSingle      func(frame.FramedEvent)
	OnCoincidence func(front, other frame.FramedEvent, deltaUs float64)
	OnDiagnostics func(Diagnostics)
}

// Queue is the coincidence-matching buffer. It is not safe for concurrent
// use by multiple goroutines pushing simultaneously without external
// synchronization beyond what Push/Flush already provide internally
// (the internal mutex only protects the queue's own state, not caller
// ordering guarantees).
type Queue struct {
	mu sync.Mutex

	entries []frame.FramedEvent

	bufferSpanUs float64 // latency tolerance: how long an entry waits before it's provably final
	maxEntries   int     // simulated capacity ceiling; see Push

	latestTimeUs float64
	sinks        Sinks
	diag         Diagnostics
}

// DefaultMaxEntries bounds queue growth so a stuck stream (no new pushes
// ever arrive to trigger settle) cannot grow without limit; real streams
// never approach it; Push's flush-and-retry-once path exists for this
// ceiling, not for ordinary operation.
const DefaultMaxEntries = 1 << 20

// New builds a Queue. bufferSpanUs is the run configuration's coincidence
// buffer span (see rundb.CoincidenceVariables.BufferSpanUs); maxEntries is
// typically coincqueue.DefaultMaxEntries.
func New(bufferSpanUs float64, maxEntries int, sinks Sinks) *Queue {
	return &Queue{
		bufferSpanUs: bufferSpanUs,
		maxEntries:   maxEntries,
		sinks:        sinks,
	}
}

// Len reports how many events are currently buffered, awaiting settle.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// TimeExtentUs is the span, in microseconds, between the oldest and
// newest buffered event's trigger time. It is 0 with fewer than two
// entries.
func (q *Queue) TimeExtentUs() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) < 2 {
		return 0
	}
	return q.entries[len(q.entries)-1].TriggerTimeUs - q.entries[0].TriggerTimeUs
}

// Diagnostics returns a snapshot of the lifetime counters.
func (q *Queue) Diagnostics() Diagnostics {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.diag
}

// Push inserts e in trigger-time order and then settles every prefix
// entry old enough that no later push could still match it.
//
// If the queue is already at its capacity ceiling, Push tries exactly
// once to make room by force-retiring the oldest entry (the
// flush-and-retry-once behavior named in the error handling design); if
// that still leaves no room, e is dropped and a QueueInsertFailed error
// is returned, which callers should treat as fatal for the run.
func (q *Queue) Push(e frame.FramedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxEntries {
		q.retireFrontLocked(true)
		if len(q.entries) >= q.maxEntries {
			q.diag.Dropped++
			return decodeerr.New(decodeerr.QueueInsertFailed, "coincqueue",
				"capacity ceiling reached even after flush-and-retry")
		}
		q.diag.InsertRetries++
	}

	pos := 0
	for pos < len(q.entries) && q.entries[pos].TriggerTimeUs <= e.TriggerTimeUs {
		pos++
	}
	q.entries = append(q.entries, frame.FramedEvent{})
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = e

	if e.TriggerTimeUs > q.latestTimeUs || len(q.entries) == 1 {
		q.latestTimeUs = e.TriggerTimeUs
	}
	q.diag.Pushed++

	q.settleLocked()
	return nil
}

// settleLocked retires every leading entry old enough (relative to the
// newest trigger time seen so far) that no future push can still be
// within its coincidence window.
func (q *Queue) settleLocked() {
	for len(q.entries) > 0 && q.latestTimeUs-q.entries[0].TriggerTimeUs > q.bufferSpanUs {
		q.retireFrontLocked(false)
	}
}

// retireFrontLocked pops exactly one entry, q.entries[0], the way
// tstamp::Queue::Pop does: take the equal_range of entries coincident
// with the front alone (not chained through intermediate members), fire
// one OnCoincidence notification per match found, then emit the front
// through OnSingle and erase only the front. Every match stays in the queue to be popped (and possibly
// re-matched against whatever is in front of it then) on a later call.
//
// Because entries are kept in trigger-time order, the coincident-with-
// front members form a prefix of the remaining entries: once one entry
// fails the coincidence test, every later one (strictly farther from the
// front in time) does too, so the scan stops at the first miss.
//
// force bypasses the bufferSpanUs settle check and is used only by the
// capacity-ceiling recovery path and by Flush/FlushOne.
func (q *Queue) retireFrontLocked(force bool) {
	if len(q.entries) == 0 {
		return
	}
	_ = force // documents intent at call sites; the pop itself is unconditional once invoked

	front := q.entries[0]
	for i := 1; i < len(q.entries); i++ {
		other := q.entries[i]
		if !other.IsCoincident(front) {
			break
		}
		q.diag.CoincidencePairs++
		if q.sinks.OnCoincidence != nil {
			q.sinks.OnCoincidence(front, other, other.TimeDiffUs(front))
		}
	}

	q.diag.Singles++
	if q.sinks.OnSingle != nil {
		q.sinks.OnSingle(front)
	}

	q.entries = q.entries[1:]
	q.diag.Retired++

	if q.sinks.OnDiagnostics != nil {
		q.sinks.OnDiagnostics(q.diag)
	}
}

// FlushOne force-retires exactly one entry (bypassing the buffer-span
// settle check), or is a no-op if the queue is empty.
func (q *Queue) FlushOne() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retireFrontLocked(true)
}

// Flush drains the entire queue, force-retiring entries until it is empty
// or ctx is done. A timed-out flush with entries still queued returns a
// FlushTimeout error; the caller decides whether that is fatal (e.g. at
// end-of-run, it should be).
func (q *Queue) Flush(ctx context.Context) error {
	for {
		q.mu.Lock()
		empty := len(q.entries) == 0
		q.mu.Unlock()
		if empty {
			return nil
		}
		select {
		case <-ctx.Done():
			return decodeerr.New(decodeerr.FlushTimeout, "coincqueue", "events still queued at flush deadline")
		default:
		}
		q.FlushOne()
	}
}

// FlushTimeout builds a context with the given timeout and calls Flush; a
// convenience wrapper for the dispatcher's end-of-run and singles-mode
// flush-timeout paths. timeout <= 0 means no deadline at all (force-drain
// the whole queue, used at confirmed end-of-run).
func FlushTimeout(q *Queue, timeout time.Duration) error {
	if timeout <= 0 {
		return q.Flush(context.Background())
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.Flush(ctx)
}
