package ledger

import (
	"fmt"
	"time"

	"concordd/internal/crypto"
	"concordd/internal/shamap"
	"concordd/internal/stobject"
	"concordd/internal/txn"
	"concordd/internal/view"
	"concordd/pkg/errs"
)

// Candidate is one transaction proposed for inclusion in the ledger being
// built: the decoded wire object plus the fields Apply needs that aren't
// worth re-extracting from the object on every call (spec.md §4.E/§4.D).
type Candidate struct {
	Hash     crypto.Hash256
	Type     txn.TxType
	Account  crypto.AccountID
	FeeDrops uint64
	Object   *stobject.STObject
}

// Outcome pairs a candidate's hash with the pipeline result it produced,
// for the caller (consensus/RPC layer) to report back to submitters.
type Outcome struct {
	Hash crypto.Hash256
	txn.Outcome
}

// Close builds the next ledger from parent by applying candidates in
// canonical order against mutable snapshots of parent's maps (spec.md
// §4.D: "deterministic construction... any two honest nodes applying the
// same set of transactions to the same parent ledger arrive at the same
// resulting ledger"). Only tes/tec outcomes are written into TxMap and
// StateMap; tel/tem/tef outcomes are reported but leave no trace in
// either map, matching the TER taxonomy's "only tes/tec written to the
// ledger" rule.
//
// agreed reports whether the consensus round that produced closeTime
// reached the close-time agreement threshold (spec.md §4.H); it feeds
// tracker.Observe to adjust the resolution used by the FOLLOWING close.
// An invariant violation aborts the whole close and returns an error, per
// spec.md §7's "controlled abort of the current ledger build" — the
// caller must retry with a possibly-reordered candidate set, never accept
// a partially-built ledger.
func Close(parent *Ledger, candidates []Candidate, closeTime time.Time, tracker *ResolutionTracker, agreed bool) (*Ledger, []Outcome, error) {
	resolution := tracker.Current()
	roundedClose := RoundCloseTime(closeTime, parent.CloseTime, resolution)
	parentHash := parent.Hash()

	hashes := make([]crypto.Hash256, len(candidates))
	byHash := make(map[crypto.Hash256]Candidate, len(candidates))
	for i, c := range candidates {
		hashes[i] = c.Hash
		byHash[c.Hash] = c
	}
	ordered := txn.Order(parentHash, hashes)

	stateMap := parent.StateMap.Snapshot(true)
	txMap := shamap.New(stateMap.Layout(), errs.MapTransaction)
	info := view.LedgerInfo{
		Seq:             parent.Seq + 1,
		ParentCloseTime: parent.CloseTime,
		CloseTime:       roundedClose,
		BaseFeeDrops:    baseFeeDrops,
	}
	raw := view.NewRawView(info, stateMap)

	var totalBurned uint64
	results := make([]Outcome, 0, len(ordered))
	for _, h := range ordered {
		c := byHash[h]
		av := view.NewApplyView(raw)
		out, err := txn.Apply(c.Object, c.Type, c.Account, c.FeeDrops, av)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: close aborted on %x: %w", h, err)
		}
		results = append(results, Outcome{Hash: h, Outcome: out})
		if !out.TER.Succeeded() {
			continue
		}
		if err := av.Commit(raw); err != nil {
			return nil, nil, fmt.Errorf("ledger: commit %x: %w", h, err)
		}
		body, err := c.Object.EncodeBinary(false)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: encode %x: %w", h, err)
		}
		if err := txMap.Add(shamap.Item{Key: h, Data: body}); err != nil {
			return nil, nil, fmt.Errorf("ledger: add tx %x to txmap: %w", h, err)
		}
		totalBurned += av.Burned()
	}

	next := &Ledger{
		Header: Header{
			ParentHash:      parentHash,
			Seq:             info.Seq,
			TotalDrops:      parent.TotalDrops - totalBurned,
			ParentCloseTime: parent.CloseTime,
			CloseTime:       roundedClose,
			CloseResolution: resolution,
		},
		TxMap:    txMap,
		StateMap: stateMap,
	}
	if !agreed {
		next.CloseFlags |= CloseFlagNoConsensusTime
	}
	tracker.Observe(agreed)
	next.TxMapHash = next.TxMap.GetHash()
	next.StateMapHash = next.StateMap.GetHash()
	return next, results, nil
}

// baseFeeDrops is the reference transaction cost spec.md §4.D/§4.H name as
// a network-voted fee parameter; fee voting itself (the Fee pseudo-
// transaction) is one of the stubbed transactor types, so this is a fixed
// placeholder rather than a value read back from the ledger.
const baseFeeDrops = 10
