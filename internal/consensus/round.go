package consensus

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"concordd/internal/crypto"
)

// Phase is a round's place in its lifecycle (spec.md §4.H: "Open ->
// Establish -> Accepted (or -> Expired)").
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseEstablish
	PhaseAccepted
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseEstablish:
		return "establish"
	case PhaseAccepted:
		return "accepted"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Proposal is one peer's signed position, per spec.md §3's Proposal shape.
type Proposal struct {
	PrevLedger  crypto.Hash256
	CloseTime   time.Time
	Disposition map[crypto.Hash256]bool // candidate tx hash -> included
	ProposeSeq  uint32
	NodeID      crypto.AccountID
	SigningTime time.Time
	Signature   []byte
}

// position is a peer's (or our own) latest avalanche disposition over the
// candidate set, plus the close-time it's voting for.
type position struct {
	disposition map[crypto.Hash256]bool
	closeTime   time.Time
	proposeSeq  uint32
	signingTime time.Time
}

// Round drives one consensus round's state machine. A round is not
// reentrant-safe from multiple goroutines except via its own methods, which
// serialize through mu — matching spec.md §5's "consensus advances are
// serialized through a single lock around the active-round state".
type Round struct {
	parms ConsensusParms
	clock clock.Clock

	parentLedgerHash crypto.Hash256
	parentCloseTime  time.Time

	trusted map[crypto.AccountID]bool

	mu             sync.Mutex
	phase          Phase
	startedAt      time.Time
	candidates     map[crypto.Hash256]bool // transactions under consideration this round
	ourPosition    position
	lastChangeAt   time.Time
	peerPositions  map[crypto.AccountID]position
	closeTimeVotes map[int64]int

	metrics *Metrics
}

// NewRound opens a fresh round building on parentLedgerHash, trusting
// exactly the peers in trusted (by validator AccountID).
func NewRound(parms ConsensusParms, clk clock.Clock, parentLedgerHash crypto.Hash256, parentCloseTime time.Time, trusted map[crypto.AccountID]bool, metrics *Metrics) *Round {
	now := clk.Now()
	r := &Round{
		parms:            parms,
		clock:            clk,
		parentLedgerHash: parentLedgerHash,
		parentCloseTime:  parentCloseTime,
		trusted:          trusted,
		phase:            PhaseOpen,
		startedAt:        now,
		candidates:       make(map[crypto.Hash256]bool),
		lastChangeAt:     now,
		peerPositions:    make(map[crypto.AccountID]position),
		closeTimeVotes:   make(map[int64]int),
		metrics:          metrics,
	}
	r.metrics.observePhase(r.phase)
	return r
}

// Phase reports the round's current phase.
func (r *Round) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Propose submits candidate transactions this node wants included and a
// close-time vote, opening the round's own position (spec.md §4.H).
func (r *Round) Propose(txHashes []crypto.Hash256, closeTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range txHashes {
		r.candidates[h] = true
	}
	r.ourPosition = position{
		disposition: cloneDisposition(r.candidates),
		closeTime:   roundToResolution(closeTime, r.parms.LedgerGranularity),
		signingTime: r.clock.Now(),
	}
	r.voteCloseTime(r.ourPosition.closeTime)
}

// ReceiveProposal admits a peer's proposal into the round's position table,
// rejecting stale ones per spec.md §4.H ("proposals older than
// proposeFRESHNESS are rejected").
func (r *Round) ReceiveProposal(p Proposal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.trusted[p.NodeID] {
		return false
	}
	if r.clock.Now().Sub(p.SigningTime) > r.parms.ProposeFreshness {
		return false
	}
	for h := range p.Disposition {
		r.candidates[h] = true
	}
	r.peerPositions[p.NodeID] = position{
		disposition: p.Disposition,
		closeTime:   p.CloseTime,
		proposeSeq:  p.ProposeSeq,
		signingTime: p.SigningTime,
	}
	r.voteCloseTime(p.CloseTime)
	r.metrics.observeProposal()
	return true
}

func (r *Round) voteCloseTime(t time.Time) {
	r.closeTimeVotes[t.Unix()]++
}

// Tick advances the round's phase and avalanche position as of now,
// returning the resulting phase. Callers drive this on a timer at
// LedgerGranularity (spec.md §4.H: "position updates ... every
// ledgerGranularity (1s)").
func (r *Round) Tick(now time.Time) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := now.Sub(r.startedAt)

	switch r.phase {
	case PhaseOpen:
		if now.Sub(r.parentCloseTime) >= r.parms.LedgerMinClose && len(r.peerPositions) > 0 {
			r.phase = PhaseEstablish
			r.metrics.observePhase(r.phase)
		}
		return r.phase
	case PhaseEstablish:
		r.recomputePosition(elapsed)
		if elapsed >= r.parms.LedgerMaxConsensus {
			r.phase = PhaseExpired
			r.metrics.observePhase(r.phase)
			r.metrics.observeExpired()
			return r.phase
		}
		if r.hasConverged(now) {
			r.phase = PhaseAccepted
			r.metrics.observePhase(r.phase)
			r.metrics.observeAccepted()
		}
		return r.phase
	default:
		return r.phase
	}
}

// recomputePosition applies the avalanche threshold schedule: a candidate
// is included in our position iff the fraction of trusted peers currently
// including it meets or exceeds the schedule's threshold for elapsed round
// time (spec.md §4.H).
func (r *Round) recomputePosition(elapsed time.Duration) {
	threshold := r.parms.avalancheThreshold(elapsed)
	total := len(r.trusted)
	if total == 0 {
		return
	}
	next := make(map[crypto.Hash256]bool, len(r.candidates))
	for h := range r.candidates {
		support := 0
		for peer := range r.trusted {
			if pos, ok := r.peerPositions[peer]; ok && pos.disposition[h] {
				support++
			}
		}
		if support*100/total >= threshold {
			next[h] = true
		}
	}
	if !dispositionsEqual(next, r.ourPosition.disposition) {
		r.ourPosition.disposition = next
		r.lastChangeAt = r.clock.Now()
		r.metrics.observePositionChange()
	}
}

// hasConverged reports whether Establish -> Accepted's two conditions hold:
// >= MinConsensusPct of trusted peers agree on the same disposition as
// ours, and that agreement has held stable for at least AvMinConsensusTime.
func (r *Round) hasConverged(now time.Time) bool {
	if now.Sub(r.lastChangeAt) < r.parms.AvMinConsensusTime {
		return false
	}
	total := len(r.trusted)
	if total == 0 {
		return false
	}
	agree := 0
	for peer := range r.trusted {
		if pos, ok := r.peerPositions[peer]; ok && dispositionsEqual(pos.disposition, r.ourPosition.disposition) {
			agree++
		}
	}
	return agree*100/total >= r.parms.MinConsensusPct
}

// AcceptedTxSet returns our final included-transaction set once the round
// reaches Accepted; callers feed this to internal/ledger.Close.
func (r *Round) AcceptedTxSet() []crypto.Hash256 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]crypto.Hash256, 0, len(r.ourPosition.disposition))
	for h, included := range r.ourPosition.disposition {
		if included {
			out = append(out, h)
		}
	}
	return out
}

// CloseTimeResult returns the round's voted close-time and whether
// agreement reached the 75% threshold (spec.md §4.H: "if <75% agree, the
// round closes with closeTimeAgreeFlag=false").
func (r *Round) CloseTimeResult() (closeTime time.Time, agreed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int
	var bestUnix int64
	var bestCount int
	for unix, count := range r.closeTimeVotes {
		total += count
		if count > bestCount || (count == bestCount && unix > bestUnix) {
			bestCount, bestUnix = count, unix
		}
	}
	if total == 0 {
		return r.parentCloseTime, false
	}
	agreed = bestCount*100/total >= r.parms.AvCloseTimeConsensusPct
	return time.Unix(bestUnix, 0).UTC(), agreed
}

func cloneDisposition(src map[crypto.Hash256]bool) map[crypto.Hash256]bool {
	out := make(map[crypto.Hash256]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func dispositionsEqual(a, b map[crypto.Hash256]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func roundToResolution(t time.Time, resolution time.Duration) time.Time {
	if resolution <= 0 {
		return t
	}
	return t.Truncate(resolution)
}
