// Package validation implements signed Validations, UNL trust-set
// membership, preferred-ledger choice, and fully-validated quorum and fork
// detection (spec.md §4.I). Grounded on the teacher's
// core/validator_node.go / core/consensus_validator_management.go
// mutex-guarded identity-keyed bookkeeping, generalized from stake-weighted
// validator registration to trusted-set membership plus a per-signer
// last-seen validation map.
package validation

import (
	"bytes"
	"sync"
	"time"

	"concordd/internal/crypto"
)

// Validation is a signed statement that a validator accepted a given
// ledger (spec.md §3's Validation shape).
type Validation struct {
	LedgerHash    crypto.Hash256
	Seq           uint32
	SigningTime   time.Time
	NodePublicKey crypto.AccountID
	Flags         uint32
	Signature     []byte
}

// UNL is the trusted validator set ("unique node list"). The zero value is
// an empty set.
type UNL struct {
	mu      sync.RWMutex
	trusted map[crypto.AccountID]bool
}

// NewUNL builds a trust set from the given validator identities.
func NewUNL(members ...crypto.AccountID) *UNL {
	u := &UNL{trusted: make(map[crypto.AccountID]bool, len(members))}
	for _, m := range members {
		u.trusted[m] = true
	}
	return u
}

func (u *UNL) Add(id crypto.AccountID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.trusted[id] = true
}

func (u *UNL) Remove(id crypto.AccountID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.trusted, id)
}

func (u *UNL) IsTrusted(id crypto.AccountID) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.trusted[id]
}

// Size returns the number of trusted members.
func (u *UNL) Size() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.trusted)
}

func (u *UNL) snapshot() map[crypto.AccountID]bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make(map[crypto.AccountID]bool, len(u.trusted))
	for k, v := range u.trusted {
		out[k] = v
	}
	return out
}

// Collector gathers Validations keyed by signer, keeping only each
// signer's most recent one (spec.md §5: "per-signer last-seen replaces
// older entries").
type Collector struct {
	mu   sync.Mutex
	last map[crypto.AccountID]Validation
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{last: make(map[crypto.AccountID]Validation)}
}

// Record admits v, replacing any earlier validation from the same signer.
// A validation whose SigningTime is not after the one on file is ignored,
// since peers may redeliver.
func (c *Collector) Record(v Validation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.last[v.NodePublicKey]; ok && !v.SigningTime.After(cur.SigningTime) {
		return
	}
	c.last[v.NodePublicKey] = v
}

func (c *Collector) snapshot() map[crypto.AccountID]Validation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[crypto.AccountID]Validation, len(c.last))
	for k, v := range c.last {
		out[k] = v
	}
	return out
}

type ledgerSupport struct {
	seq   uint32
	count int
}

// PreferredLedger picks the ledger hash with highest trusted-validator
// support, breaking ties by highest sequence then lexicographically
// greatest hash (spec.md §4.I). Reports ok=false if no trusted validator
// has reported anything.
func PreferredLedger(c *Collector, unl *UNL) (hash crypto.Hash256, seq uint32, support int, ok bool) {
	trusted := unl.snapshot()
	tallies := make(map[crypto.Hash256]*ledgerSupport)
	for signer, v := range c.snapshot() {
		if !trusted[signer] {
			continue
		}
		t, exists := tallies[v.LedgerHash]
		if !exists {
			t = &ledgerSupport{seq: v.Seq}
			tallies[v.LedgerHash] = t
		}
		t.count++
	}

	var bestHash crypto.Hash256
	var best *ledgerSupport
	for h, t := range tallies {
		if best == nil || betterLedger(t, h, best, bestHash) {
			best, bestHash = t, h
		}
	}
	if best == nil {
		return crypto.Hash256{}, 0, 0, false
	}
	return bestHash, best.seq, best.count, true
}

func betterLedger(t *ledgerSupport, h crypto.Hash256, best *ledgerSupport, bestHash crypto.Hash256) bool {
	if t.count != best.count {
		return t.count > best.count
	}
	if t.seq != best.seq {
		return t.seq > best.seq
	}
	return bytes.Compare(h[:], bestHash[:]) > 0
}

// FullyValidated reports whether the preferred ledger has reached quorum
// (cumulative trusted support at or above quorumPct of the trust set) and
// no competing ledger at the same sequence has equal or greater support
// (spec.md §4.I: "fully validated ... AND no fork with equal support
// exists"). lookup resolves ancestry for the fork check.
func FullyValidated(c *Collector, unl *UNL, lookup LedgerLookup, quorumPct int) (hash crypto.Hash256, seq uint32, ok bool) {
	trustedCount := unl.Size()
	if trustedCount == 0 {
		return crypto.Hash256{}, 0, false
	}
	hash, seq, support, found := PreferredLedger(c, unl)
	if !found || support*100/trustedCount < quorumPct {
		return crypto.Hash256{}, 0, false
	}
	if hasCompetingSupport(c, unl, lookup, hash, seq, support) {
		return crypto.Hash256{}, 0, false
	}
	return hash, seq, true
}

func hasCompetingSupport(c *Collector, unl *UNL, lookup LedgerLookup, hash crypto.Hash256, seq uint32, support int) bool {
	trusted := unl.snapshot()
	tallies := make(map[crypto.Hash256]int)
	for signer, v := range c.snapshot() {
		if trusted[signer] {
			tallies[v.LedgerHash]++
		}
	}
	for h, count := range tallies {
		if h == hash || count < support {
			continue
		}
		if DetectFork(lookup, hash, h) {
			return true
		}
	}
	return false
}

// LedgerHeader is the minimal ancestry information common-ancestor search
// needs from a ledger: its own hash, its parent's hash, and its sequence.
type LedgerHeader struct {
	Hash       crypto.Hash256
	ParentHash crypto.Hash256
	Seq        uint32
}

// LedgerLookup resolves a ledger hash to its header, the way a node's
// local ledger history store would.
type LedgerLookup interface {
	Header(hash crypto.Hash256) (LedgerHeader, bool)
}

// CommonAncestor walks the higher chain back to the lower of the two
// sequences, then walks both chains back together until they meet, and
// returns the hash where they meet, if any (spec.md §4.I:
// "fork detection compares sequence histories via common-ancestor
// search").
func CommonAncestor(lookup LedgerLookup, a, b crypto.Hash256) (crypto.Hash256, bool) {
	ha, oka := lookup.Header(a)
	hb, okb := lookup.Header(b)
	if !oka || !okb {
		return crypto.Hash256{}, false
	}
	for ha.Seq > hb.Seq {
		ha, oka = lookup.Header(ha.ParentHash)
		if !oka {
			return crypto.Hash256{}, false
		}
	}
	for hb.Seq > ha.Seq {
		hb, okb = lookup.Header(hb.ParentHash)
		if !okb {
			return crypto.Hash256{}, false
		}
	}
	for ha.Hash != hb.Hash {
		if ha.Seq == 0 {
			return crypto.Hash256{}, false
		}
		ha, oka = lookup.Header(ha.ParentHash)
		hb, okb = lookup.Header(hb.ParentHash)
		if !oka || !okb {
			return crypto.Hash256{}, false
		}
	}
	return ha.Hash, true
}

// DetectFork reports whether a and b are two distinct ledgers at the same
// sequence whose ancestry resolves to a common ancestor. Two hashes at
// different sequences are not reported as a fork, whether or not one
// descends from the other. If ancestry can't be resolved for either hash,
// it conservatively reports a fork.
func DetectFork(lookup LedgerLookup, a, b crypto.Hash256) bool {
	if a == b {
		return false
	}
	_, ok := CommonAncestor(lookup, a, b)
	if !ok {
		return true
	}
	ha, oka := lookup.Header(a)
	hb, okb := lookup.Header(b)
	if !oka || !okb {
		return true
	}
	return ha.Seq == hb.Seq && ha.Hash != hb.Hash
}
