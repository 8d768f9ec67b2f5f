// Package consensus implements the round-based avalanche consensus state
// machine (spec.md §4.H), generalized from the teacher's hybrid PoH+PoS+PoW
// engine (core/consensus.go's NewConsensus/Start shape: adapter interfaces
// for network/security/authority, a dedicated goroutine per timed loop)
// into a single round state machine with no block-reward/difficulty
// concerns of its own.
package consensus

import "time"

// ConsensusParms holds every numeric threshold a round is driven by.
// Values are rippled's ConsensusParms.h defaults verbatim
// (original_source/src/ripple/consensus/ConsensusParms.h), per SPEC_FULL.md
// §4.H's explicit instruction to take them "verbatim".
type ConsensusParms struct {
	ValidationValidWall  time.Duration
	ValidationValidLocal time.Duration
	ValidationValidEarly time.Duration

	ProposeFreshness time.Duration
	ProposeInterval  time.Duration

	MinConsensusPct int // percent of trusted peers required for Establish -> Accepted

	LedgerIdleInterval time.Duration
	LedgerMinConsensus time.Duration
	LedgerMaxConsensus time.Duration
	LedgerMinClose     time.Duration
	LedgerGranularity  time.Duration

	// Avalanche position-update threshold schedule: the minimum percentage
	// of trusted peers that must include a candidate transaction before
	// this node includes it too, rising as the round ages. AvMinConsensusTime
	// is the time unit the schedule's percentages (AvMidConsensusTime=50,
	// AvLateConsensusTime=85, AvStuckConsensusTime=200) are measured against
	// — elapsed round time expressed as a percentage of AvMinConsensusTime.
	AvMinConsensusTime   time.Duration
	AvInitConsensusPct   int // 50
	AvMidConsensusTime   int // 50 (percent of AvMinConsensusTime)
	AvMidConsensusPct    int // 65
	AvLateConsensusTime  int // 85 (percent of AvMinConsensusTime)
	AvLateConsensusPct   int // 70
	AvStuckConsensusTime int // 200 (percent of AvMinConsensusTime)
	AvStuckConsensusPct  int // 95

	AvCloseTimeConsensusPct int // 75, close-time agreement threshold

	UseRoundedCloseTime bool
}

// DefaultConsensusParms returns rippled's stock parameter set.
func DefaultConsensusParms() ConsensusParms {
	return ConsensusParms{
		ValidationValidWall:  5 * time.Minute,
		ValidationValidLocal: 3 * time.Minute,
		ValidationValidEarly: 3 * time.Minute,

		ProposeFreshness: 20 * time.Second,
		ProposeInterval:  12 * time.Second,

		MinConsensusPct: 80,

		LedgerIdleInterval: 15 * time.Second,
		LedgerMinConsensus: 1950 * time.Millisecond,
		LedgerMaxConsensus: 10 * time.Second,
		LedgerMinClose:     2 * time.Second,
		LedgerGranularity:  1 * time.Second,

		AvMinConsensusTime:   5 * time.Second,
		AvInitConsensusPct:   50,
		AvMidConsensusTime:   50,
		AvMidConsensusPct:    65,
		AvLateConsensusTime:  85,
		AvLateConsensusPct:   70,
		AvStuckConsensusTime: 200,
		AvStuckConsensusPct:  95,

		AvCloseTimeConsensusPct: 75,

		UseRoundedCloseTime: true,
	}
}

// avalancheThreshold returns the minimum trusted-peer support percentage a
// candidate transaction needs at elapsed time into the round (spec.md
// §4.H's "threshold monotonically tightens" schedule).
func (p ConsensusParms) avalancheThreshold(elapsed time.Duration) int {
	pct := elapsedPercent(elapsed, p.AvMinConsensusTime)
	switch {
	case pct >= p.AvStuckConsensusTime:
		return p.AvStuckConsensusPct
	case pct >= p.AvLateConsensusTime:
		return p.AvLateConsensusPct
	case pct >= p.AvMidConsensusTime:
		return p.AvMidConsensusPct
	default:
		return p.AvInitConsensusPct
	}
}

func elapsedPercent(elapsed, unit time.Duration) int {
	if unit <= 0 {
		return 0
	}
	return int(elapsed * 100 / unit)
}
