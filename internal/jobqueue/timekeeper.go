package jobqueue

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// OffsetSource reports this node's current best estimate of its clock's
// offset from true network time, the way a time-sync service (NTP-like)
// would (spec.md §4.J: "a bounded (±seconds) offset obtained from a
// time-sync source").
type OffsetSource interface {
	Offset() time.Duration
}

// ManualOffsetSource is an OffsetSource whose offset is set directly,
// useful for tests and for a simulated network where peer clocks are
// deliberately skewed.
type ManualOffsetSource struct {
	mu     sync.RWMutex
	offset time.Duration
}

func (s *ManualOffsetSource) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

func (s *ManualOffsetSource) Set(offset time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
}

// Timekeeper exposes now() and closeTime() corrected by a bounded offset
// from a time-sync source, and validates that a peer-proposed close-time
// falls within tolerance of local time before it's trusted (spec.md §4.J).
type Timekeeper struct {
	clk       clock.Clock
	source    OffsetSource
	tolerance time.Duration
}

// NewTimekeeper builds a Timekeeper backed by clk and source, rejecting
// proposed close-times more than tolerance away from corrected local time
// (spec.md §4.J's clockToleranceDeltaSeconds).
func NewTimekeeper(clk clock.Clock, source OffsetSource, tolerance time.Duration) *Timekeeper {
	return &Timekeeper{clk: clk, source: source, tolerance: tolerance}
}

// Now returns local time corrected by the current offset estimate.
func (tk *Timekeeper) Now() time.Time {
	return tk.clk.Now().Add(tk.source.Offset())
}

// CloseTime is the time used for ledger close-time voting; it is simply
// the corrected current time, since close-time rounding to a ledger's
// resolution happens downstream in internal/ledger.
func (tk *Timekeeper) CloseTime() time.Time {
	return tk.Now()
}

// Accept reports whether a peer-proposed time is close enough to this
// node's corrected clock to be trusted (spec.md §4.J: "close-times in
// proposals must fall within clockToleranceDeltaSeconds of local time or
// are discarded").
func (tk *Timekeeper) Accept(proposed time.Time) bool {
	diff := proposed.Sub(tk.Now())
	if diff < 0 {
		diff = -diff
	}
	return diff <= tk.tolerance
}
