package ledger

import "time"

// closeResolutionSteps are the selectable close-time resolutions. Each step
// is double the previous one, so a close either moves to the next value
// (doubling, on disagreement) or back (halving, after sustained agreement),
// bounded below by the first entry and above by the last.
var closeResolutionSteps = []time.Duration{
	10 * time.Second,
	20 * time.Second,
	40 * time.Second,
	80 * time.Second,
	160 * time.Second,
}

const sustainedAgreementCount = 20 // ledgers of agreement before halving, rippled-style hysteresis

// ResolutionTracker adjusts the close-time resolution across successive
// ledger closes: it increases immediately on any disagreement (peers could
// not agree on the rounded close-time) and decreases only after a run of
// sustainedAgreementCount consecutive agreeing closes, so the network
// doesn't flap between resolutions (spec.md §4.D).
type ResolutionTracker struct {
	current    time.Duration
	agreeCount int
}

// NewResolutionTracker starts at the smallest resolution step.
func NewResolutionTracker() *ResolutionTracker {
	return &ResolutionTracker{current: closeResolutionSteps[0]}
}

// Current returns the resolution to use for the ledger being built.
func (r *ResolutionTracker) Current() time.Duration { return r.current }

// Observe records whether the just-closed round's peers agreed on the
// close-time and returns the resolution to use for the NEXT round.
func (r *ResolutionTracker) Observe(agreed bool) time.Duration {
	idx := stepIndex(r.current)
	if !agreed {
		r.agreeCount = 0
		if idx < len(closeResolutionSteps)-1 {
			r.current = closeResolutionSteps[idx+1]
		}
		return r.current
	}
	r.agreeCount++
	if r.agreeCount >= sustainedAgreementCount && idx > 0 {
		r.current = closeResolutionSteps[idx-1]
		r.agreeCount = 0
	}
	return r.current
}

func stepIndex(d time.Duration) int {
	for i, s := range closeResolutionSteps {
		if s == d {
			return i
		}
	}
	return 0
}

// RoundCloseTime rounds proposed down to the nearest multiple of
// resolution (measured from the Unix epoch), then — per the resolved
// open question recorded in DESIGN.md — always advances by one full
// resolution unit if the rounded value collides with parentCloseTime,
// whether or not rounding actually changed the value.
func RoundCloseTime(proposed, parentCloseTime time.Time, resolution time.Duration) time.Time {
	rounded := proposed.Truncate(resolution)
	if !rounded.After(parentCloseTime) {
		rounded = rounded.Add(resolution)
	}
	return rounded
}
